package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/slaengine/internal/core/sla"
	"github.com/example/slaengine/internal/ctxutil"
	"github.com/example/slaengine/internal/ports/secondary"
)

// EscalationOutcome is the result of one MaybeEscalate call.
type EscalationOutcome int

const (
	// EscalationSkipped means nothing was sent: not due, already sent,
	// claimed elsewhere, or no recipients.
	EscalationSkipped EscalationOutcome = iota
	// EscalationSent means the notification went out and was recorded.
	EscalationSent
	// EscalationFailed means the send failed and the claim was released.
	EscalationFailed
)

func (o EscalationOutcome) String() string {
	switch o {
	case EscalationSent:
		return "sent"
	case EscalationFailed:
		return "failed"
	}
	return "skipped"
}

// DefaultClaimLease is how long a pending ledger claim blocks other senders.
const DefaultClaimLease = 5 * time.Minute

// DispatcherOptions configures an EscalationDispatcher.
type DispatcherOptions struct {
	NotifyTimeout time.Duration
	ClaimLease    time.Duration
	LinkBaseURL   string
}

// EscalationDispatcher sends each escalation level of a breached work item
// at most once.
type EscalationDispatcher struct {
	ledger   secondary.EscalationLedger
	users    secondary.UserDirectory
	notifier secondary.Notifier
	renderer secondary.Renderer
	opts     DispatcherOptions
	logger   *zap.Logger
	metrics  *Metrics
	newToken func() string
}

// NewEscalationDispatcher creates an EscalationDispatcher with injected dependencies.
func NewEscalationDispatcher(
	ledger secondary.EscalationLedger,
	users secondary.UserDirectory,
	notifier secondary.Notifier,
	renderer secondary.Renderer,
	opts DispatcherOptions,
	logger *zap.Logger,
	metrics *Metrics,
) *EscalationDispatcher {
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 10 * time.Second
	}
	if opts.ClaimLease <= 0 {
		opts.ClaimLease = DefaultClaimLease
	}
	if opts.ClaimLease <= opts.NotifyTimeout {
		opts.ClaimLease = 2 * opts.NotifyTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationDispatcher{
		ledger:   ledger,
		users:    users,
		notifier: notifier,
		renderer: renderer,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
		newToken: uuid.NewString,
	}
}

// MaybeEscalate sends level for a breached item if it is due and has not
// been sent. Transport failures are logged and reported as
// EscalationFailed, never as an error; the returned error is reserved for
// ledger and directory failures.
//
// Order: guard, ledger fast path, recipients, claim, render, send, then
// confirm or release.
func (d *EscalationDispatcher) MaybeEscalate(ctx context.Context, item *sla.WorkItem, rule *sla.Rule, level int, now time.Time) (EscalationOutcome, error) {
	outcome, err := d.maybeEscalate(ctx, item, rule, level, now)
	d.metrics.escalation(level, outcome)
	return outcome, err
}

func (d *EscalationDispatcher) maybeEscalate(ctx context.Context, item *sla.WorkItem, rule *sla.Rule, level int, now time.Time) (EscalationOutcome, error) {
	overdue := sla.MinutesOverdue(item.Due, now)
	ectx := sla.NewEscalationContext(item, rule, level, overdue)
	log := d.logger.With(
		zap.String("work_item_id", item.ID),
		zap.Int("level", level),
		zap.String("role", ectx.Role),
	)
	if id := ctxutil.SweepIDFromContext(ctx); id != "" {
		log = log.With(zap.String("sweep_id", id))
	}

	if r := sla.CanEscalate(ectx); !r.Allowed {
		log.Debug("escalation not due", zap.String("reason", r.Reason))
		return EscalationSkipped, nil
	}

	sent, err := d.ledger.Exists(ctx, item.ID, level)
	if err != nil {
		return EscalationSkipped, fmt.Errorf("check escalation ledger: %w", err)
	}
	if sent {
		log.Debug("escalation already sent")
		return EscalationSkipped, nil
	}

	recipients, err := d.users.RecipientsForRole(ctx, ectx.Role)
	if err != nil {
		return EscalationSkipped, fmt.Errorf("resolve role %s: %w", ectx.Role, err)
	}
	if len(recipients) == 0 {
		d.metrics.configWarning("role_without_users")
		log.Warn("escalation skipped",
			zap.Error(&ConfigurationError{Reason: fmt.Sprintf("no enabled users hold role %s", ectx.Role)}))
		return EscalationSkipped, nil
	}

	token := d.newToken()
	claimed, err := d.ledger.Claim(ctx, secondary.EscalationClaim{
		WorkItemID: item.ID,
		Level:      level,
		Role:       ectx.Role,
		Token:      token,
		Now:        now,
		Lease:      d.opts.ClaimLease,
	})
	if err != nil {
		return EscalationSkipped, fmt.Errorf("claim escalation: %w", err)
	}
	if !claimed {
		log.Debug("escalation claimed elsewhere")
		return EscalationSkipped, nil
	}

	notice := secondary.EscalationNotice{
		WorkItemID:     item.ID,
		PolicyID:       item.PolicyID,
		Level:          level,
		Role:           ectx.Role,
		MinutesOverdue: overdue,
		Due:            item.Due,
		Link:           d.link(item.ID),
	}
	subject, body, err := d.renderer.Render(notice)
	if err == nil {
		sendCtx, cancel := context.WithTimeout(ctx, d.opts.NotifyTimeout)
		err = d.notifier.Send(sendCtx, recipients, subject, body, secondary.Reference{Type: "work_item", ID: item.ID})
		cancel()
	}
	if err != nil {
		nerr := &NotificationError{WorkItemID: item.ID, Level: level, Err: err}
		log.Error("escalation send failed", zap.Error(nerr))
		if rerr := d.ledger.Release(context.WithoutCancel(ctx), item.ID, level, token); rerr != nil {
			log.Error("escalation claim release failed", zap.Error(rerr))
		}
		return EscalationFailed, nil
	}

	if err := d.confirm(context.WithoutCancel(ctx), item.ID, level, token, now, recipients); err != nil {
		if errors.Is(err, secondary.ErrConflict) {
			d.metrics.conflict()
			log.Warn("escalation sent but claim was taken over", zap.Error(err))
			return EscalationSent, nil
		}
		log.Error("escalation sent but not recorded, may be sent again after the claim lease",
			zap.Duration("lease", d.opts.ClaimLease), zap.Error(err))
		return EscalationSent, fmt.Errorf("confirm escalation: %w", err)
	}

	log.Info("escalation sent", zap.Int("recipients", len(recipients)), zap.Int("minutes_overdue", overdue))
	return EscalationSent, nil
}

// confirm records a delivered escalation, retrying once on any failure
// other than a lost claim.
func (d *EscalationDispatcher) confirm(ctx context.Context, id string, level int, token string, sentAt time.Time, recipients []string) error {
	err := d.ledger.Confirm(ctx, id, level, token, sentAt, recipients)
	if err == nil || errors.Is(err, secondary.ErrConflict) {
		return err
	}
	return d.ledger.Confirm(ctx, id, level, token, sentAt, recipients)
}

func (d *EscalationDispatcher) link(workItemID string) string {
	if d.opts.LinkBaseURL == "" {
		return ""
	}
	return strings.TrimRight(d.opts.LinkBaseURL, "/") + "/" + url.PathEscape(workItemID)
}
