package application_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/automation/domain"
	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

// memRules is an in-memory rule repository.
type memRules struct {
	items []*domain.AutomationRule
}

func (m *memRules) Save(ctx context.Context, rule *domain.AutomationRule) error {
	for i, existing := range m.items {
		if existing.ID() == rule.ID() {
			m.items[i] = rule
			return nil
		}
	}
	m.items = append(m.items, rule)
	return nil
}

func (m *memRules) FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*domain.AutomationRule, error) {
	for _, r := range m.items {
		if r.WorkspaceID() == workspaceID && r.ID() == id {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memRules) FindActiveByEventType(ctx context.Context, workspaceID uuid.UUID, eventType string) ([]*domain.AutomationRule, error) {
	var out []*domain.AutomationRule
	for _, r := range m.items {
		if r.WorkspaceID() == workspaceID && r.EventType() == eventType && r.IsActive() {
			out = append(out, r)
		}
	}
	return out, nil
}

// memRuns is an in-memory run repository with compare-and-set claims.
type memRuns struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.AutomationRun
	order []uuid.UUID
}

func newMemRuns() *memRuns {
	return &memRuns{items: map[uuid.UUID]*domain.AutomationRun{}}
}

func (m *memRuns) Create(ctx context.Context, run *domain.AutomationRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.RuleID() == run.RuleID() && existing.EventID() == run.EventID() {
			return domain.ErrDuplicateRun
		}
	}
	m.items[run.ID()] = run
	m.order = append(m.order, run.ID())
	return nil
}

func (m *memRuns) Save(ctx context.Context, run *domain.AutomationRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[run.ID()] = run
	return nil
}

func (m *memRuns) FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*domain.AutomationRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.items[id]
	if !ok || run.WorkspaceID() != workspaceID {
		return nil, domain.ErrNotFound
	}
	return run, nil
}

func (m *memRuns) FindPending(ctx context.Context, limit int) ([]*domain.AutomationRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AutomationRun
	for _, id := range m.order {
		if run := m.items[id]; run.Status() == domain.RunPending {
			out = append(out, run)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memRuns) MarkRunning(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.items[id]
	if !ok {
		return false, nil
	}
	if run.Status() != domain.RunPending {
		return false, nil
	}
	return true, nil
}

func (m *memRuns) CountByStatus(ctx context.Context) (map[domain.RunStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[domain.RunStatus]int{}
	for _, run := range m.items {
		counts[run.Status()]++
	}
	return counts, nil
}

func (m *memRuns) byRule(ruleID uuid.UUID) *domain.AutomationRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, run := range m.items {
		if run.RuleID() == ruleID {
			return run
		}
	}
	return nil
}

// memEventStore is an in-memory event log.
type memEventStore struct {
	mu      sync.Mutex
	records []*domain.EventRecord
	seq     int64
}

func (m *memEventStore) Append(ctx context.Context, event sharedDomain.DomainEvent) (*domain.EventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	record := domain.RecordFromDomainEvent(event)
	record.Seq = m.seq
	m.records = append(m.records, record)
	return record, nil
}

func (m *memEventStore) FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*domain.EventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.WorkspaceID == workspaceID && r.ID == id {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memEventStore) ReadSince(ctx context.Context, workspaceID uuid.UUID, eventType string, since domain.Cursor, limit int) ([]*domain.EventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.EventRecord
	for _, r := range m.records {
		if workspaceID != uuid.Nil && r.WorkspaceID != workspaceID {
			continue
		}
		if eventType != "" && r.EventType != eventType {
			continue
		}
		if !since.IsZero() {
			if r.CreatedAt.Before(since.CreatedAt) {
				continue
			}
			if r.CreatedAt.Equal(since.CreatedAt) && r.Seq <= since.Seq {
				continue
			}
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memEventStore) byType(eventType string) []*domain.EventRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.EventRecord
	for _, r := range m.records {
		if r.EventType == eventType {
			out = append(out, r)
		}
	}
	return out
}

// memAlerts is an in-memory alert repository.
type memAlerts struct {
	mu    sync.Mutex
	items []*domain.Alert
}

func (m *memAlerts) Save(ctx context.Context, alert *domain.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, alert)
	return nil
}

func (m *memAlerts) FindByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit int) ([]*domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Alert
	for i := len(m.items) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if m.items[i].WorkspaceID() == workspaceID {
			out = append(out, m.items[i])
		}
	}
	return out, nil
}

// fakeSender records sent messages and fails on demand.
type fakeSender struct {
	mu       sync.Mutex
	sent     []string
	subjects []string
	failOn   string
}

func (f *fakeSender) Send(ctx context.Context, workspaceID, conversationID uuid.UUID, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && body == f.failOn {
		return errors.New("delivery refused")
	}
	f.sent = append(f.sent, body)
	f.subjects = append(f.subjects, subject)
	return nil
}

// fakePauser records paused conversations.
type fakePauser struct {
	paused []uuid.UUID
}

func (f *fakePauser) Pause(ctx context.Context, workspaceID, conversationID uuid.UUID) error {
	f.paused = append(f.paused, conversationID)
	return nil
}

func eventRecord(workspaceID uuid.UUID, eventType string, payload map[string]any) *domain.EventRecord {
	return &domain.EventRecord{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		EventType:   eventType,
		EntityType:  "booking",
		EntityID:    uuid.New().String(),
		Actor:       sharedDomain.SystemActor(),
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}
}
