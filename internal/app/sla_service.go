package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/slaengine/internal/core/sla"
	"github.com/example/slaengine/internal/ctxutil"
	"github.com/example/slaengine/internal/lock"
	"github.com/example/slaengine/internal/ports/primary"
	"github.com/example/slaengine/internal/ports/secondary"
)

// SweepOptions bounds a sweep pass.
type SweepOptions struct {
	Workers     int
	ItemTimeout time.Duration
}

// SLAServiceImpl implements the SLAService interface.
type SLAServiceImpl struct {
	items      secondary.WorkItemRepository
	policies   *PolicyStore
	dispatcher *EscalationDispatcher
	locks      *lock.MutexMap
	opts       SweepOptions
	logger     *zap.Logger
	metrics    *Metrics
	now        func() time.Time
}

// NewSLAService creates a new SLAService with injected dependencies.
func NewSLAService(
	items secondary.WorkItemRepository,
	policies *PolicyStore,
	dispatcher *EscalationDispatcher,
	opts SweepOptions,
	logger *zap.Logger,
	metrics *Metrics,
) *SLAServiceImpl {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAServiceImpl{
		items:      items,
		policies:   policies,
		dispatcher: dispatcher,
		locks:      lock.NewMutexMap(),
		opts:       opts,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}
}

// OnEvent records a workflow event as the item's current state and applies
// it to the SLA fields.
func (s *SLAServiceImpl) OnEvent(ctx context.Context, workItemID, event string) (*primary.ItemSLA, error) {
	s.locks.Lock(workItemID)
	defer s.locks.Unlock(workItemID)

	item, err := s.items.GetByID(ctx, workItemID)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(
		zap.String("work_item_id", item.ID),
		zap.String("event", event),
		zap.String("actor", ctxutil.ActorFromContext(ctx)),
	)
	stateChanged := item.CurrentState != event
	item.CurrentState = event

	if item.Phase() == sla.PhaseClosed {
		log.Debug("event ignored, sla closed")
		return s.recordState(ctx, item, stateChanged)
	}

	policy, err := s.policies.Resolve(ctx, item.PolicyID)
	if err != nil {
		return nil, err
	}
	now := s.now()

	if policy == nil || !policy.Enabled {
		if item.Phase() == sla.PhaseUnset {
			return s.recordState(ctx, item, stateChanged)
		}
		log.Info("no policy applies, resetting sla", zap.String("policy_id", item.PolicyID))
		sla.Reset(item)
		return s.persist(ctx, item)
	}
	log = log.With(zap.String("policy_id", policy.ID))

	switch sla.ClassifyEvent(policy, item, event) {
	case sla.EventStart:
		rule, _ := sla.Match(policy, item, event, sla.DirectionStart)
		if err := sla.ApplyStart(item, policy, &rule, event, now); err != nil {
			return nil, &ConfigurationError{Reason: err.Error()}
		}
		if err := sla.Recompute(item, policy, now); err != nil {
			return nil, err
		}
		log.Debug("sla started", zap.Time("due", item.Due))
	case sla.EventStop:
		if err := sla.Recompute(item, policy, now); err != nil {
			return nil, err
		}
		sla.Close(item, now)
		log.Debug("sla closed", zap.Float64("progress_pct", item.ProgressPct))
	default:
		if item.Phase() != sla.PhaseActive {
			return s.recordState(ctx, item, stateChanged)
		}
		if err := sla.Recompute(item, policy, now); err != nil {
			return nil, err
		}
	}

	return s.persist(ctx, item)
}

// recordState writes the state label when an event leaves the SLA fields alone.
func (s *SLAServiceImpl) recordState(ctx context.Context, item *sla.WorkItem, changed bool) (*primary.ItemSLA, error) {
	if !changed {
		return toItemSLA(item), nil
	}
	return s.persist(ctx, item)
}

func (s *SLAServiceImpl) persist(ctx context.Context, item *sla.WorkItem) (*primary.ItemSLA, error) {
	if err := s.items.UpdateSLA(ctx, item); err != nil {
		if errors.Is(err, secondary.ErrConflict) {
			s.metrics.conflict()
			return nil, fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
		}
		return nil, err
	}
	return toItemSLA(item), nil
}

type sweepCounts struct {
	checked   int
	sent      int
	errors    int
	conflicts int
	byStatus  map[sla.Status]int
}

// Sweep recomputes every open SLA, most overdue first, and fires due
// escalations. A failure on one item never stops the others.
func (s *SLAServiceImpl) Sweep(ctx context.Context) (*primary.SweepSummary, error) {
	started := time.Now()
	sweepID := uuid.NewString()
	ctx = ctxutil.WithSweepID(ctx, sweepID)
	log := s.logger.With(zap.String("sweep_id", sweepID), zap.String("actor", ctxutil.ActorFromContext(ctx)))

	open, err := s.items.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open work items: %w", err)
	}

	var checked, sent, failed, conflicts int64
	statuses := make([]sla.Status, len(open))

	g := new(errgroup.Group)
	g.SetLimit(s.opts.Workers)
	for i, candidate := range open {
		i := i
		id := candidate.ID
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(ctx, s.opts.ItemTimeout)
			defer cancel()

			res, err := s.sweepItem(itemCtx, id)
			if res.checked {
				atomic.AddInt64(&checked, 1)
				statuses[i] = res.status
			}
			if res.conflict {
				atomic.AddInt64(&conflicts, 1)
			}
			atomic.AddInt64(&sent, int64(res.sent))
			if err != nil || res.failed > 0 {
				atomic.AddInt64(&failed, 1)
			}
			if err != nil {
				log.Error("sweep item failed", zap.String("work_item_id", id), zap.Error(err))
			}
			return nil
		})
	}
	g.Wait()

	counts := sweepCounts{
		checked:   int(checked),
		sent:      int(sent),
		errors:    int(failed),
		conflicts: int(conflicts),
		byStatus:  make(map[sla.Status]int),
	}
	for _, st := range statuses {
		if st != sla.StatusNone {
			counts.byStatus[st]++
		}
	}

	summary := &primary.SweepSummary{
		SweepID:         sweepID,
		ItemsChecked:    counts.checked,
		EscalationsSent: counts.sent,
		Errors:          counts.errors,
		Conflicts:       counts.conflicts,
		Duration:        time.Since(started),
	}
	s.metrics.observeSweep(counts, summary.Duration.Seconds())
	log.Info("sweep complete",
		zap.Int("items_checked", summary.ItemsChecked),
		zap.Int("escalations_sent", summary.EscalationsSent),
		zap.Int("errors", summary.Errors),
		zap.Int("conflicts", summary.Conflicts),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

type itemResult struct {
	checked  bool
	conflict bool
	status   sla.Status
	sent     int
	failed   int
}

// sweepItem recomputes one item under its lock and escalates if breached.
// The item is re-read inside the lock so a concurrent sweep's write is seen.
func (s *SLAServiceImpl) sweepItem(ctx context.Context, id string) (itemResult, error) {
	var res itemResult

	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return res, err
	}
	if item.Phase() != sla.PhaseActive {
		return res, nil
	}
	log := s.logger.With(zap.String("work_item_id", id), zap.String("sweep_id", ctxutil.SweepIDFromContext(ctx)))

	policy, err := s.policies.Resolve(ctx, item.PolicyID)
	if err != nil {
		return res, err
	}
	now := s.now()

	if policy == nil || !policy.Enabled {
		log.Info("no policy applies, resetting sla", zap.String("policy_id", item.PolicyID))
		sla.Reset(item)
		_, err := s.persist(ctx, item)
		return res, s.discardConflict(log, &res, err)
	}

	if err := sla.Recompute(item, policy, now); err != nil {
		return res, err
	}
	if _, err := s.persist(ctx, item); err != nil {
		return res, s.discardConflict(log, &res, err)
	}
	res.checked = true
	res.status = item.Status
	log.Debug("sla recomputed",
		zap.Float64("progress_pct", item.ProgressPct),
		zap.String("status", string(item.Status)),
		zap.Bool("breached", item.Breached),
	)

	if !item.Breached {
		return res, nil
	}

	rule, ok := sla.Match(policy, item, item.StartEvent, sla.DirectionStart)
	if !ok {
		s.metrics.configWarning("rule_missing")
		log.Warn("escalation skipped", zap.String("policy_id", policy.ID), zap.Error(&ConfigurationError{
			Reason: fmt.Sprintf("no rule in policy %s matches start event %q", policy.ID, item.StartEvent),
		}))
		return res, nil
	}

	var firstErr error
	for _, level := range sla.EscalationLevels {
		outcome, err := s.dispatcher.MaybeEscalate(ctx, item, &rule, level, now)
		switch outcome {
		case EscalationSent:
			res.sent++
		case EscalationFailed:
			res.failed++
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return res, firstErr
}

// discardConflict drops a lost write race: the next sweep reconciles. The
// item still counts as checked.
func (s *SLAServiceImpl) discardConflict(log *zap.Logger, res *itemResult, err error) error {
	if errors.Is(err, ErrConcurrencyConflict) {
		log.Debug("sla write lost to concurrent writer, discarded")
		res.checked = true
		res.conflict = true
		return nil
	}
	return err
}

// GetItem retrieves the SLA view of a work item.
func (s *SLAServiceImpl) GetItem(ctx context.Context, workItemID string) (*primary.ItemSLA, error) {
	item, err := s.items.GetByID(ctx, workItemID)
	if err != nil {
		return nil, err
	}
	return toItemSLA(item), nil
}

// ListItems lists work items with optional filters.
func (s *SLAServiceImpl) ListItems(ctx context.Context, filters primary.ItemFilters) ([]*primary.ItemSLA, error) {
	status := sla.Status(filters.Status)
	switch status {
	case sla.StatusNone, sla.StatusGreen, sla.StatusYellow, sla.StatusRed:
	default:
		return nil, fmt.Errorf("invalid status filter %q (want green, yellow or red)", filters.Status)
	}

	items, err := s.items.List(ctx, secondary.WorkItemFilters{
		Status:       status,
		BreachedOnly: filters.BreachedOnly,
		OpenOnly:     filters.OpenOnly,
		Limit:        filters.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list work items: %w", err)
	}

	result := make([]*primary.ItemSLA, len(items))
	for i, item := range items {
		result[i] = toItemSLA(item)
	}
	return result, nil
}

// CreateItem registers a work item with the engine.
func (s *SLAServiceImpl) CreateItem(ctx context.Context, req primary.CreateItemRequest) (*primary.ItemSLA, error) {
	if req.ID == "" {
		return nil, fmt.Errorf("work item id is required")
	}
	item := &sla.WorkItem{
		ID:           req.ID,
		CurrentState: req.CurrentState,
		ServiceType:  req.ServiceType,
		Workshop:     req.Workshop,
		PolicyID:     req.PolicyID,
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}
	return toItemSLA(item), nil
}

func toItemSLA(item *sla.WorkItem) *primary.ItemSLA {
	return &primary.ItemSLA{
		ID:           item.ID,
		CurrentState: item.CurrentState,
		ServiceType:  item.ServiceType,
		Workshop:     item.Workshop,
		PolicyID:     item.PolicyID,
		Phase:        item.Phase().String(),
		Start:        timePtr(item.Start),
		Due:          timePtr(item.Due),
		ProgressPct:  sla.RoundPct(item.ProgressPct),
		Status:       string(item.Status),
		Breached:     item.Breached,
		ClosedAt:     timePtr(item.ClosedAt),
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var _ primary.SLAService = (*SLAServiceImpl)(nil)
