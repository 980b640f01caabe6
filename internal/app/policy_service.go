package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/slaengine/internal/core/sla"
	"github.com/example/slaengine/internal/ctxutil"
	"github.com/example/slaengine/internal/ports/primary"
	"github.com/example/slaengine/internal/ports/secondary"
)

// PolicyServiceImpl implements the PolicyService interface.
type PolicyServiceImpl struct {
	repo   secondary.PolicyRepository
	store  *PolicyStore
	logger *zap.Logger
}

// NewPolicyService creates a new PolicyService with injected dependencies.
func NewPolicyService(repo secondary.PolicyRepository, store *PolicyStore, logger *zap.Logger) *PolicyServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyServiceImpl{repo: repo, store: store, logger: logger}
}

// ImportPolicies validates every policy before storing any of them. When
// the import brings an enabled default, a stored default it does not
// mention is demoted so that only one default remains.
func (s *PolicyServiceImpl) ImportPolicies(ctx context.Context, policies []*sla.Policy) error {
	incoming := make(map[string]bool, len(policies))
	newDefault := ""
	for _, p := range policies {
		if r := sla.ValidatePolicy(p); !r.Allowed {
			return &ConfigurationError{Reason: r.Reason}
		}
		if incoming[p.ID] {
			return &ConfigurationError{Reason: fmt.Sprintf("duplicate policy %s", p.ID)}
		}
		incoming[p.ID] = true
		if p.Enabled && p.IsDefault {
			if newDefault != "" {
				return &ConfigurationError{Reason: fmt.Sprintf("policies %s and %s are both enabled defaults", newDefault, p.ID)}
			}
			newDefault = p.ID
		}
	}

	if newDefault != "" {
		if err := s.demoteDefaults(ctx, incoming, newDefault); err != nil {
			return err
		}
	}

	// Save non-defaults first so a policy losing default status is written
	// before its replacement claims the default slot.
	ordered := make([]*sla.Policy, 0, len(policies))
	for _, p := range policies {
		if !(p.Enabled && p.IsDefault) {
			ordered = append(ordered, p)
		}
	}
	for _, p := range policies {
		if p.Enabled && p.IsDefault {
			ordered = append(ordered, p)
		}
	}

	for _, p := range ordered {
		if err := s.repo.Save(ctx, p); err != nil {
			return fmt.Errorf("failed to import policy %s: %w", p.ID, err)
		}
		s.store.Invalidate(p.ID)
		s.logger.Info("policy imported",
			zap.String("policy_id", p.ID),
			zap.Int("rules", len(p.Rules)),
			zap.String("actor", ctxutil.ActorFromContext(ctx)),
		)
	}
	return nil
}

// SyncPolicies makes the stored policies match a policy file: the file's
// policies are imported and stored policies it no longer lists are deleted.
// The whole cache is dropped afterwards.
func (s *PolicyServiceImpl) SyncPolicies(ctx context.Context, policies []*sla.Policy) error {
	if err := s.ImportPolicies(ctx, policies); err != nil {
		return err
	}
	defer s.store.InvalidateAll()

	keep := make(map[string]bool, len(policies))
	for _, p := range policies {
		keep[p.ID] = true
	}
	existing, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list policies: %w", err)
	}
	for _, p := range existing {
		if keep[p.ID] {
			continue
		}
		if err := s.repo.Delete(ctx, p.ID); err != nil {
			return fmt.Errorf("failed to delete policy %s: %w", p.ID, err)
		}
		s.logger.Info("policy removed",
			zap.String("policy_id", p.ID),
			zap.String("actor", ctxutil.ActorFromContext(ctx)),
		)
	}
	return nil
}

func (s *PolicyServiceImpl) demoteDefaults(ctx context.Context, incoming map[string]bool, newDefault string) error {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list policies: %w", err)
	}
	for _, p := range existing {
		if p.ID == newDefault || incoming[p.ID] || !(p.Enabled && p.IsDefault) {
			continue
		}
		p.IsDefault = false
		if err := s.repo.Save(ctx, p); err != nil {
			return fmt.Errorf("failed to demote default policy %s: %w", p.ID, err)
		}
		s.store.Invalidate(p.ID)
		s.logger.Info("default policy replaced", zap.String("policy_id", p.ID), zap.String("new_default", newDefault))
	}
	return nil
}

// GetPolicy retrieves a policy by ID.
func (s *PolicyServiceImpl) GetPolicy(ctx context.Context, policyID string) (*sla.Policy, error) {
	return s.repo.GetByID(ctx, policyID)
}

// ListPolicies lists all policies.
func (s *PolicyServiceImpl) ListPolicies(ctx context.Context) ([]*sla.Policy, error) {
	return s.repo.List(ctx)
}

// DeletePolicy removes a policy. Items that referenced it fall back to the
// default policy on their next event or sweep.
func (s *PolicyServiceImpl) DeletePolicy(ctx context.Context, policyID string) error {
	if err := s.repo.Delete(ctx, policyID); err != nil {
		return err
	}
	s.store.Invalidate(policyID)
	return nil
}

var _ primary.PolicyService = (*PolicyServiceImpl)(nil)
