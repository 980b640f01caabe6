package redis_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/slaengine/internal/adapters/redis"
	"github.com/example/slaengine/internal/ports/secondary"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// setupLedger connects to the Redis named by SLAENGINE_TEST_REDIS_ADDR and
// isolates the test under a random key prefix.
func setupLedger(t *testing.T) *redis.EscalationLedger {
	t.Helper()

	addr := os.Getenv("SLAENGINE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SLAENGINE_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(addr, "", 0)
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	prefix := "slaengine-test:" + uuid.NewString()
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	return redis.NewEscalationLedger(client, prefix)
}

func claim(item string, level int, token string, now time.Time) secondary.EscalationClaim {
	return secondary.EscalationClaim{WorkItemID: item, Level: level, Role: "Lead", Token: token, Now: now, Lease: 5 * time.Minute}
}

func TestEscalationLedger_ClaimConfirm(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	ok, err := ledger.Claim(ctx, claim("WI-001", 1, "a", t0))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ledger.Claim(ctx, claim("WI-001", 1, "b", t0.Add(time.Minute)))
	require.NoError(t, err)
	assert.False(t, ok, "claim within lease must lose")

	err = ledger.Confirm(ctx, "WI-001", 1, "b", t0, nil)
	assert.True(t, errors.Is(err, secondary.ErrConflict))

	require.NoError(t, ledger.Confirm(ctx, "WI-001", 1, "a", t0.Add(time.Minute), []string{"lead@example.com"}))

	exists, err := ledger.Exists(ctx, "WI-001", 1)
	require.NoError(t, err)
	assert.True(t, exists)

	ok, _ = ledger.Claim(ctx, claim("WI-001", 1, "c", t0.Add(48*time.Hour)))
	assert.False(t, ok, "sent record must never be reclaimed")

	records, err := ledger.List(ctx, secondary.EscalationFilters{WorkItemID: "WI-001"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, secondary.EscalationStatusSent, records[0].Status)
	assert.Equal(t, []string{"lead@example.com"}, records[0].Recipients)
	assert.True(t, t0.Equal(records[0].ClaimedAt))
}

func TestEscalationLedger_ReleaseAndLease(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	ok, _ := ledger.Claim(ctx, claim("WI-002", 1, "a", t0))
	require.True(t, ok)
	require.NoError(t, ledger.Release(ctx, "WI-002", 1, "a"))

	exists, _ := ledger.Exists(ctx, "WI-002", 1)
	assert.False(t, exists)

	ok, _ = ledger.Claim(ctx, claim("WI-002", 1, "b", t0))
	require.True(t, ok)

	ok, _ = ledger.Claim(ctx, claim("WI-002", 1, "c", t0.Add(6*time.Minute)))
	assert.True(t, ok, "expired lease must be taken over")
}

func TestEscalationLedger_ConcurrentClaims(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ledger.Claim(ctx, claim("WI-003", 2, uuid.NewString(), t0))
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}
