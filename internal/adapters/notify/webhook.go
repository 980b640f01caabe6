package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/example/slaengine/internal/ports/secondary"
)

// WebhookMessage is the JSON body posted by WebhookNotifier.
type WebhookMessage struct {
	ID         string              `json:"id"`
	Recipients []string            `json:"recipients"`
	Subject    string              `json:"subject"`
	Body       string              `json:"body"`
	Reference  secondary.Reference `json:"reference"`
}

// WebhookNotifier posts each notification to an HTTP endpoint that owns
// delivery (mail relay, chat bridge).
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a WebhookNotifier. A nil client uses
// http.DefaultClient; deadlines come from the caller's context.
func NewWebhookNotifier(url string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookNotifier{url: url, client: client}
}

// Send posts the message. Any non-2xx response is a failure.
func (n *WebhookNotifier) Send(ctx context.Context, recipients []string, subject, body string, ref secondary.Reference) error {
	msg := WebhookMessage{
		ID:         uuid.NewString(),
		Recipients: recipients,
		Subject:    subject,
		Body:       body,
		Reference:  ref,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", msg.ID)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

var _ secondary.Notifier = (*WebhookNotifier)(nil)
