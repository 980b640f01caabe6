package app

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/example/slaengine/internal/core/sla"
	"github.com/example/slaengine/internal/ports/secondary"
)

// defaultPolicyKey is the cache key for the default policy. Policy IDs are
// never empty, so it cannot collide with one.
const defaultPolicyKey = ""

// PolicyStoreOptions bounds the policy cache.
type PolicyStoreOptions struct {
	Size int
	TTL  time.Duration
}

// PolicyStore resolves the policy governing a work item through a bounded
// LRU cache with per-entry expiry. Absence is cached too. Returned policies
// are shared and must not be modified.
type PolicyStore struct {
	repo    secondary.PolicyRepository
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time

	mu      sync.Mutex
	items   map[string]*list.Element
	lru     *list.List
	maxSize int
	ttl     time.Duration
	gen     uint64

	group singleflight.Group
}

type policyEntry struct {
	key       string
	policy    *sla.Policy // nil caches "no such policy"
	expiresAt time.Time
}

// NewPolicyStore creates a PolicyStore.
func NewPolicyStore(repo secondary.PolicyRepository, opts PolicyStoreOptions, logger *zap.Logger, metrics *Metrics) *PolicyStore {
	if opts.Size <= 0 {
		opts.Size = 64
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyStore{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: opts.Size,
		ttl:     opts.TTL,
	}
}

// Resolve returns the explicit policy if it exists, otherwise the enabled
// default policy, otherwise nil. An explicit policy is returned even when
// disabled; callers decide what a disabled policy means.
func (s *PolicyStore) Resolve(ctx context.Context, explicitID string) (*sla.Policy, error) {
	if explicitID != "" {
		p, err := s.lookup(ctx, explicitID)
		if err != nil || p != nil {
			return p, err
		}
	}
	return s.lookup(ctx, defaultPolicyKey)
}

// Invalidate drops one policy and the default entry, since any policy may
// have become or stopped being the default.
func (s *PolicyStore) Invalidate(policyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.remove(policyID)
	s.remove(defaultPolicyKey)
}

// InvalidateAll empties the cache.
func (s *PolicyStore) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.items = make(map[string]*list.Element)
	s.lru = list.New()
}

// Len returns the number of cached entries.
func (s *PolicyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

func (s *PolicyStore) lookup(ctx context.Context, key string) (*sla.Policy, error) {
	if p, ok := s.get(key); ok {
		s.metrics.cacheLookup(true)
		return p, nil
	}
	s.metrics.cacheLookup(false)

	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	v, err, _ := s.group.Do(key, func() (any, error) {
		p, err := s.load(ctx, key)
		if err != nil {
			return nil, err
		}
		s.set(key, p, gen)
		return p, nil
	})
	if err != nil {
		return nil, &PolicyLookupError{PolicyID: key, Err: err}
	}
	return v.(*sla.Policy), nil
}

func (s *PolicyStore) load(ctx context.Context, key string) (*sla.Policy, error) {
	var (
		p   *sla.Policy
		err error
	)
	if key == defaultPolicyKey {
		p, err = s.repo.GetDefault(ctx)
	} else {
		p, err = s.repo.GetByID(ctx, key)
	}
	if errors.Is(err, secondary.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	for _, v := range sla.InvalidRules(p) {
		s.metrics.configWarning("invalid_rule")
		s.logger.Warn("policy rule skipped",
			zap.String("policy_id", p.ID),
			zap.Int("rule", v.Index),
			zap.Error(&ConfigurationError{Reason: v.Reason}),
		)
	}
	return p, nil
}

func (s *PolicyStore) get(key string) (*sla.Policy, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*policyEntry)
	if s.now().After(entry.expiresAt) {
		s.remove(key)
		return nil, false
	}
	s.lru.MoveToFront(elem)
	return entry.policy, true
}

// set stores a loaded value unless the cache was invalidated while loading.
func (s *PolicyStore) set(key string, p *sla.Policy, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return
	}
	expiresAt := s.now().Add(s.ttl)
	if elem, ok := s.items[key]; ok {
		entry := elem.Value.(*policyEntry)
		entry.policy = p
		entry.expiresAt = expiresAt
		s.lru.MoveToFront(elem)
		return
	}
	s.items[key] = s.lru.PushFront(&policyEntry{key: key, policy: p, expiresAt: expiresAt})
	for s.lru.Len() > s.maxSize {
		s.remove(s.lru.Back().Value.(*policyEntry).key)
	}
}

func (s *PolicyStore) remove(key string) {
	if elem, ok := s.items[key]; ok {
		s.lru.Remove(elem)
		delete(s.items, key)
	}
}
