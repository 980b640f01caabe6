// Package notify contains notification transports and message renderers.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/slaengine/internal/ports/secondary"
)

// LogNotifier writes notifications to the log instead of delivering them.
// It is the default transport for local runs.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.Named("notify")}
}

// Send logs the message. It only fails if ctx is already done.
func (n *LogNotifier) Send(ctx context.Context, recipients []string, subject, body string, ref secondary.Reference) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.Info("notification",
		zap.Strings("recipients", recipients),
		zap.String("subject", subject),
		zap.String("body", body),
		zap.String("ref_type", ref.Type),
		zap.String("ref_id", ref.ID),
	)
	return nil
}

var _ secondary.Notifier = (*LogNotifier)(nil)
