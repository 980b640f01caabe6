package primary

import (
	"context"

	"github.com/example/slaengine/internal/core/sla"
)

// PolicyService defines the primary port for SLA policy administration.
type PolicyService interface {
	// ImportPolicies validates and stores policies, replacing existing ones with the same ID.
	ImportPolicies(ctx context.Context, policies []*sla.Policy) error

	// SyncPolicies imports policies and deletes stored policies not among them.
	SyncPolicies(ctx context.Context, policies []*sla.Policy) error

	// GetPolicy retrieves a policy by ID.
	GetPolicy(ctx context.Context, policyID string) (*sla.Policy, error)

	// ListPolicies lists all policies.
	ListPolicies(ctx context.Context) ([]*sla.Policy, error)

	// DeletePolicy removes a policy.
	DeletePolicy(ctx context.Context, policyID string) error
}
