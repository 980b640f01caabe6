package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/slaengine/internal/core/sla"
	"github.com/example/slaengine/internal/ports/secondary"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// testClock is a settable clock shared by services under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{now: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Ensure mocks implement the interfaces
var (
	_ secondary.WorkItemRepository = (*mockWorkItemRepository)(nil)
	_ secondary.PolicyRepository   = (*mockPolicyRepository)(nil)
	_ secondary.EscalationLedger   = (*mockLedger)(nil)
	_ secondary.UserDirectory      = (*mockUserDirectory)(nil)
	_ secondary.Notifier           = (*mockNotifier)(nil)
)

// mockWorkItemRepository implements secondary.WorkItemRepository for testing.
// Items are stored by value so callers never share state with the store.
type mockWorkItemRepository struct {
	mu       sync.Mutex
	items    map[string]sla.WorkItem
	getErr   map[string]error
	updates  int
	conflict bool // force the next UpdateSLA to conflict
}

func newMockWorkItemRepository() *mockWorkItemRepository {
	return &mockWorkItemRepository{
		items:  make(map[string]sla.WorkItem),
		getErr: make(map[string]error),
	}
}

func (m *mockWorkItemRepository) put(item sla.WorkItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
}

func (m *mockWorkItemRepository) get(id string) sla.WorkItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id]
}

func (m *mockWorkItemRepository) GetByID(ctx context.Context, id string) (*sla.WorkItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.getErr[id]; err != nil {
		return nil, err
	}
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("work item %s: %w", id, secondary.ErrNotFound)
	}
	return &item, nil
}

func (m *mockWorkItemRepository) Create(ctx context.Context, item *sla.WorkItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; ok {
		return errors.New("UNIQUE constraint failed: work_items.id")
	}
	m.items[item.ID] = *item
	return nil
}

func (m *mockWorkItemRepository) UpdateSLA(ctx context.Context, item *sla.WorkItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[item.ID]
	if !ok {
		return secondary.ErrNotFound
	}
	if m.conflict || stored.Version != item.Version {
		m.conflict = false
		return fmt.Errorf("work item %s: %w", item.ID, secondary.ErrConflict)
	}
	item.ProgressPct = sla.RoundPct(item.ProgressPct)
	item.Version++
	m.items[item.ID] = *item
	m.updates++
	return nil
}

func (m *mockWorkItemRepository) ListOpen(ctx context.Context) ([]*sla.WorkItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*sla.WorkItem
	for _, item := range m.items {
		if item.Phase() == sla.PhaseActive {
			item := item
			out = append(out, &item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Due.Equal(out[j].Due) {
			return out[i].Due.Before(out[j].Due)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *mockWorkItemRepository) List(ctx context.Context, filters secondary.WorkItemFilters) ([]*sla.WorkItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*sla.WorkItem
	for _, item := range m.items {
		if filters.Status != sla.StatusNone && item.Status != filters.Status {
			continue
		}
		if filters.BreachedOnly && !item.Breached {
			continue
		}
		item := item
		out = append(out, &item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// mockPolicyRepository implements secondary.PolicyRepository for testing.
type mockPolicyRepository struct {
	mu       sync.Mutex
	policies map[string]*sla.Policy
	err      error
	loads    int
	block    chan struct{} // when set, reads wait on it
}

func newMockPolicyRepository(policies ...*sla.Policy) *mockPolicyRepository {
	m := &mockPolicyRepository{policies: make(map[string]*sla.Policy)}
	for _, p := range policies {
		m.policies[p.ID] = p
	}
	return m
}

func (m *mockPolicyRepository) read() error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	return m.err
}

func (m *mockPolicyRepository) loadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

func (m *mockPolicyRepository) GetByID(ctx context.Context, id string) (*sla.Policy, error) {
	if err := m.read(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.policies[id]
	if !ok {
		return nil, fmt.Errorf("policy %s: %w", id, secondary.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *mockPolicyRepository) GetDefault(ctx context.Context) (*sla.Policy, error) {
	if err := m.read(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.policies))
	for id := range m.policies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if p := m.policies[id]; p.Enabled && p.IsDefault {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("default policy: %w", secondary.ErrNotFound)
}

func (m *mockPolicyRepository) Save(ctx context.Context, p *sla.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Enabled && p.IsDefault {
		for id, other := range m.policies {
			if id != p.ID && other.Enabled && other.IsDefault {
				return errors.New("UNIQUE constraint failed: sla_policies.is_default")
			}
		}
	}
	cp := *p
	m.policies[p.ID] = &cp
	return nil
}

func (m *mockPolicyRepository) List(ctx context.Context) ([]*sla.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*sla.Policy
	for _, p := range m.policies {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockPolicyRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.policies[id]; !ok {
		return secondary.ErrNotFound
	}
	delete(m.policies, id)
	return nil
}

// mockLedger implements secondary.EscalationLedger with the same claim
// semantics as the SQL ledger.
type mockLedger struct {
	mu      sync.Mutex
	records map[string]*secondary.EscalationRecord
	tokens  map[string]string
	claims  int
	err     error

	confirmErrs []error // returned by successive Confirm calls before they succeed
	confirms    int
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		records: make(map[string]*secondary.EscalationRecord),
		tokens:  make(map[string]string),
	}
}

func ledgerKey(id string, level int) string { return fmt.Sprintf("%s/%d", id, level) }

func (m *mockLedger) Claim(ctx context.Context, c secondary.EscalationClaim) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	key := ledgerKey(c.WorkItemID, c.Level)
	if r, ok := m.records[key]; ok {
		if r.Status == secondary.EscalationStatusSent || !r.ClaimedAt.Before(c.Now.Add(-c.Lease)) {
			return false, nil
		}
	}
	m.claims++
	m.records[key] = &secondary.EscalationRecord{
		WorkItemID: c.WorkItemID,
		Level:      c.Level,
		Status:     secondary.EscalationStatusPending,
		Role:       c.Role,
		ClaimedAt:  c.Now,
	}
	m.tokens[key] = c.Token
	return true, nil
}

func (m *mockLedger) Confirm(ctx context.Context, id string, level int, token string, sentAt time.Time, recipients []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirms++
	if len(m.confirmErrs) > 0 {
		err := m.confirmErrs[0]
		m.confirmErrs = m.confirmErrs[1:]
		return err
	}
	key := ledgerKey(id, level)
	r, ok := m.records[key]
	if !ok || r.Status != secondary.EscalationStatusPending || m.tokens[key] != token {
		return secondary.ErrConflict
	}
	r.Status = secondary.EscalationStatusSent
	r.SentAt = sentAt
	r.Recipients = recipients
	return nil
}

func (m *mockLedger) Release(ctx context.Context, id string, level int, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ledgerKey(id, level)
	if r, ok := m.records[key]; ok && r.Status == secondary.EscalationStatusPending && m.tokens[key] == token {
		delete(m.records, key)
		delete(m.tokens, key)
	}
	return nil
}

func (m *mockLedger) Exists(ctx context.Context, id string, level int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	r, ok := m.records[ledgerKey(id, level)]
	return ok && r.Status == secondary.EscalationStatusSent, nil
}

func (m *mockLedger) List(ctx context.Context, filters secondary.EscalationFilters) ([]*secondary.EscalationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.EscalationRecord
	for _, r := range m.records {
		if filters.WorkItemID != "" && r.WorkItemID != filters.WorkItemID {
			continue
		}
		if filters.Status != "" && r.Status != filters.Status {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WorkItemID != out[j].WorkItemID {
			return out[i].WorkItemID < out[j].WorkItemID
		}
		return out[i].Level < out[j].Level
	})
	return out, nil
}

func (m *mockLedger) sent(id string, level int) bool {
	ok, _ := m.Exists(context.Background(), id, level)
	return ok
}

// mockUserDirectory implements secondary.UserDirectory for testing.
type mockUserDirectory struct {
	mu    sync.Mutex
	roles map[string][]string
	err   error
}

func newMockUserDirectory() *mockUserDirectory {
	return &mockUserDirectory{roles: map[string][]string{
		"Lead":    {"lead@example.com"},
		"Manager": {"manager@example.com"},
	}}
}

func (m *mockUserDirectory) RecipientsForRole(ctx context.Context, role string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.roles[role], nil
}

func (m *mockUserDirectory) CreateUser(ctx context.Context, user *secondary.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, role := range user.Roles {
		m.roles[role] = append(m.roles[role], user.Email)
	}
	return nil
}

func (m *mockUserDirectory) GrantRole(ctx context.Context, userID, role string) error {
	return nil
}

func (m *mockUserDirectory) SetEnabled(ctx context.Context, userID string, enabled bool) error {
	return nil
}

type sentMessage struct {
	Recipients []string
	Subject    string
	Body       string
	Ref        secondary.Reference
}

// mockNotifier implements secondary.Notifier for testing.
type mockNotifier struct {
	mu    sync.Mutex
	sent  []sentMessage
	err   error
	delay time.Duration
}

func (m *mockNotifier) Send(ctx context.Context, recipients []string, subject, body string, ref secondary.Reference) error {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMessage{Recipients: recipients, Subject: subject, Body: body, Ref: ref})
	return nil
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *mockNotifier) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// stdPolicy is the policy used across the end-to-end scenarios.
func stdPolicy() *sla.Policy {
	return &sla.Policy{
		ID:                   "POL-STD",
		Enabled:              true,
		IsDefault:            true,
		WarnThresholdPct:     70,
		CriticalThresholdPct: 90,
		Rules: []sla.Rule{
			{StartEvent: "Started", StopEvent: "Done", TATHours: 10, EscalationMinutes1: 30, EscalateToRole1: "Lead",
				EscalationMinutes2: 120, EscalateToRole2: "Manager"},
		},
	}
}
