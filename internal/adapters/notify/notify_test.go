package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/slaengine/internal/ports/secondary"
)

var ref = secondary.Reference{Type: "work_item", ID: "WI-001"}

func TestLogNotifier_Send(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	err := n.Send(context.Background(), []string{"lead@example.com"}, "subj", "body", ref)
	require.NoError(t, err)

	entries := logs.FilterMessage("notification").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "subj", entries[0].ContextMap()["subject"])
	assert.Equal(t, "WI-001", entries[0].ContextMap()["ref_id"])
}

func TestLogNotifier_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewLogNotifier(nil).Send(ctx, nil, "", "", ref)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWebhookNotifier_Send(t *testing.T) {
	var got WebhookMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, got.ID, r.Header.Get("Idempotency-Key"))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, srv.Client())
	err := n.Send(context.Background(), []string{"a@example.com", "b@example.com"}, "subj", "body", ref)
	require.NoError(t, err)

	assert.Equal(t, []string{"a@example.com", "b@example.com"}, got.Recipients)
	assert.Equal(t, "subj", got.Subject)
	assert.Equal(t, ref, got.Reference)
	assert.NotEmpty(t, got.ID)
}

func TestWebhookNotifier_Failures(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer srv.Close()

		err := NewWebhookNotifier(srv.URL, srv.Client()).Send(context.Background(), nil, "s", "b", ref)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("deadline", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err := NewWebhookNotifier(srv.URL, srv.Client()).Send(ctx, nil, "s", "b", ref)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

type countingNotifier struct {
	calls int32
	err   error
	delay time.Duration
}

func (c *countingNotifier) Send(ctx context.Context, _ []string, _, _ string, _ secondary.Reference) error {
	atomic.AddInt32(&c.calls, 1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return c.err
}

func TestThrottledNotifier(t *testing.T) {
	t.Run("forwards within budget", func(t *testing.T) {
		next := &countingNotifier{}
		n := NewThrottledNotifier(next, 100, 2, time.Second)
		require.NoError(t, n.Send(context.Background(), nil, "s", "b", ref))
		require.NoError(t, n.Send(context.Background(), nil, "s", "b", ref))
		assert.Equal(t, int32(2), next.calls)
	})

	t.Run("saturated limiter fails within timeout", func(t *testing.T) {
		next := &countingNotifier{}
		n := NewThrottledNotifier(next, 0.01, 1, 50*time.Millisecond)
		require.NoError(t, n.Send(context.Background(), nil, "s", "b", ref))

		err := n.Send(context.Background(), nil, "s", "b", ref)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limit")
		assert.Equal(t, int32(1), next.calls)
	})

	t.Run("slow transport times out", func(t *testing.T) {
		next := &countingNotifier{delay: time.Second}
		n := NewThrottledNotifier(next, 0, 1, 20*time.Millisecond)
		err := n.Send(context.Background(), nil, "s", "b", ref)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("transport error passes through", func(t *testing.T) {
		boom := errors.New("smtp down")
		n := NewThrottledNotifier(&countingNotifier{err: boom}, 0, 1, 0)
		assert.ErrorIs(t, n.Send(context.Background(), nil, "s", "b", ref), boom)
	})
}

func notice() secondary.EscalationNotice {
	return secondary.EscalationNotice{
		WorkItemID:     "WI-001",
		PolicyID:       "POL-STD",
		Level:          1,
		Role:           "Lead",
		MinutesOverdue: 31,
		Due:            time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC),
		Link:           "https://sla.example.com/items/WI-001",
	}
}

func TestPlainTextRenderer(t *testing.T) {
	subject, body, err := PlainTextRenderer{}.Render(notice())
	require.NoError(t, err)
	assert.Equal(t, "[SLA L1] Work item WI-001 is 31 minutes overdue", subject)
	assert.Contains(t, body, "Minutes overdue:  31")
	assert.Contains(t, body, "2026-03-02 18:00 UTC")
	assert.Contains(t, body, "https://sla.example.com/items/WI-001")
}

func TestTemplateRenderer_Default(t *testing.T) {
	r, err := NewTemplateRenderer(DefaultTemplate, nil, nil)
	require.NoError(t, err)

	n := notice()
	n.Level = 2
	n.Role = "Manager"
	subject, body, err := r.Render(n)
	require.NoError(t, err)
	assert.Equal(t, "[SLA L2] WI-001 overdue by 31 min", subject)
	assert.Contains(t, body, "Escalated to: Manager (L2)")
	assert.Contains(t, body, "Due: 2026-03-02 18:00 UTC")
	assert.Contains(t, body, "Open: https://sla.example.com/items/WI-001")
}

func TestTemplateRenderer_FallsBack(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	src := `{{define "subject"}}{{.Missing}}{{end}}{{define "body"}}ok{{end}}`
	r, err := NewTemplateRenderer(src, PlainTextRenderer{}, zap.New(core))
	require.NoError(t, err)

	subject, _, err := r.Render(notice())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(subject, "[SLA L1] Work item WI-001"))
	assert.Equal(t, 1, logs.FilterMessage("template render failed, using fallback").Len())
}

func TestNewTemplateRenderer_Rejects(t *testing.T) {
	_, err := NewTemplateRenderer(`{{define "subject"}}x{{end}}`, nil, nil)
	assert.ErrorContains(t, err, `must define "body"`)

	_, err = NewTemplateRenderer(`{{define "subject"}`, nil, nil)
	assert.Error(t, err)
}
