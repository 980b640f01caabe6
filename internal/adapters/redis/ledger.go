// Package redis contains a Redis implementation of the escalation ledger,
// for deployments where several engine hosts share one database.
package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/slaengine/internal/ports/secondary"
)

// DefaultPrefix namespaces ledger keys.
const DefaultPrefix = "slaengine:escalation"

// claimScript reserves a (work item, level) hash atomically.
// KEYS[1] = record key
// ARGV[1] = role
// ARGV[2] = claim token
// ARGV[3] = now (unix microseconds)
// ARGV[4] = stale-before (unix microseconds)
var claimScript = redis.NewScript(`
local key = KEYS[1]
local status = redis.call("HGET", key, "status")

if status then
    if status ~= "pending" then
        return 0
    end
    local claimed = tonumber(redis.call("HGET", key, "claimed_at"))
    if claimed and claimed >= tonumber(ARGV[4]) then
        return 0
    end
end

redis.call("HSET", key, "status", "pending", "role", ARGV[1], "token", ARGV[2], "claimed_at", ARGV[3])
return 1
`)

// confirmScript marks a pending claim as sent when the token still matches.
// KEYS[1] = record key
// ARGV[1] = claim token
// ARGV[2] = sent_at (unix microseconds)
// ARGV[3] = comma-separated recipients
var confirmScript = redis.NewScript(`
local key = KEYS[1]
local state = redis.call("HMGET", key, "status", "token")
if state[1] ~= "pending" or state[2] ~= ARGV[1] then
    return 0
end
redis.call("HSET", key, "status", "sent", "sent_at", ARGV[2], "recipients", ARGV[3])
return 1
`)

// releaseScript deletes a pending claim held by the given token.
// KEYS[1] = record key
// ARGV[1] = claim token
var releaseScript = redis.NewScript(`
local key = KEYS[1]
local state = redis.call("HMGET", key, "status", "token")
if state[1] == "pending" and state[2] == ARGV[1] then
    redis.call("DEL", key)
    return 1
end
return 0
`)

// EscalationLedger implements secondary.EscalationLedger using Redis hashes.
// Sent records carry no expiry.
type EscalationLedger struct {
	client redis.UniversalClient
	prefix string
}

// NewEscalationLedger creates a ledger on an existing client.
func NewEscalationLedger(client redis.UniversalClient, prefix string) *EscalationLedger {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &EscalationLedger{client: client, prefix: prefix}
}

// NewClient builds a single-node client for the ledger.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (l *EscalationLedger) key(workItemID string, level int) string {
	return fmt.Sprintf("%s:%s:%d", l.prefix, workItemID, level)
}

// Claim runs the claim script.
func (l *EscalationLedger) Claim(ctx context.Context, c secondary.EscalationClaim) (bool, error) {
	now := c.Now.UTC()
	res, err := claimScript.Run(ctx, l.client, []string{l.key(c.WorkItemID, c.Level)},
		c.Role, c.Token, now.UnixMicro(), now.Add(-c.Lease).UnixMicro()).Int()
	if err != nil {
		return false, fmt.Errorf("redis ledger claim %s/L%d: %w", c.WorkItemID, c.Level, err)
	}
	return res == 1, nil
}

// Confirm runs the confirm script.
func (l *EscalationLedger) Confirm(ctx context.Context, workItemID string, level int, token string, sentAt time.Time, recipients []string) error {
	res, err := confirmScript.Run(ctx, l.client, []string{l.key(workItemID, level)},
		token, sentAt.UTC().UnixMicro(), strings.Join(recipients, ",")).Int()
	if err != nil {
		return fmt.Errorf("redis ledger confirm %s/L%d: %w", workItemID, level, err)
	}
	if res == 0 {
		return fmt.Errorf("escalation %s/L%d claim lost: %w", workItemID, level, secondary.ErrConflict)
	}
	return nil
}

// Release runs the release script.
func (l *EscalationLedger) Release(ctx context.Context, workItemID string, level int, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key(workItemID, level)}, token).Err(); err != nil {
		return fmt.Errorf("redis ledger release %s/L%d: %w", workItemID, level, err)
	}
	return nil
}

// Exists reports whether the record is in the sent state.
func (l *EscalationLedger) Exists(ctx context.Context, workItemID string, level int) (bool, error) {
	status, err := l.client.HGet(ctx, l.key(workItemID, level), "status").Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis ledger exists %s/L%d: %w", workItemID, level, err)
	}
	return status == secondary.EscalationStatusSent, nil
}

// List scans the ledger keyspace. It is an operator query, not a hot path.
func (l *EscalationLedger) List(ctx context.Context, filters secondary.EscalationFilters) ([]*secondary.EscalationRecord, error) {
	pattern := l.prefix + ":*"
	if filters.WorkItemID != "" {
		pattern = fmt.Sprintf("%s:%s:*", l.prefix, filters.WorkItemID)
	}

	var records []*secondary.EscalationRecord
	iter := l.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		fields, err := l.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("redis ledger read %s: %w", key, err)
		}
		record, ok := l.parse(key, fields)
		if !ok {
			continue
		}
		if filters.WorkItemID != "" && record.WorkItemID != filters.WorkItemID {
			continue
		}
		if filters.Status != "" && record.Status != filters.Status {
			continue
		}
		records = append(records, record)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis ledger scan: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].ClaimedAt.Equal(records[j].ClaimedAt) {
			return records[i].ClaimedAt.After(records[j].ClaimedAt)
		}
		if records[i].WorkItemID != records[j].WorkItemID {
			return records[i].WorkItemID < records[j].WorkItemID
		}
		return records[i].Level < records[j].Level
	})
	return records, nil
}

func (l *EscalationLedger) parse(key string, fields map[string]string) (*secondary.EscalationRecord, bool) {
	if len(fields) == 0 {
		return nil, false
	}
	rest := strings.TrimPrefix(key, l.prefix+":")
	idx := strings.LastIndex(rest, ":")
	if idx <= 0 {
		return nil, false
	}
	level, err := strconv.Atoi(rest[idx+1:])
	if err != nil {
		return nil, false
	}

	record := &secondary.EscalationRecord{
		WorkItemID: rest[:idx],
		Level:      level,
		Status:     fields["status"],
		Role:       fields["role"],
		ClaimedAt:  micros(fields["claimed_at"]),
		SentAt:     micros(fields["sent_at"]),
	}
	if r := fields["recipients"]; r != "" {
		record.Recipients = strings.Split(r, ",")
	}
	return record, true
}

func micros(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

// Ensure EscalationLedger implements the interface
var _ secondary.EscalationLedger = (*EscalationLedger)(nil)
