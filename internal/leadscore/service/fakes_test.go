package service

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"leadscore_backend/internal/leadscore/ports"
	"leadscore_backend/internal/leadscore/scoring"

	"github.com/google/uuid"
)

// memoryStore reads and writes in separate critical sections so that
// unserialized callers can lose updates.
type memoryStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]scoring.LeadScore
	history map[uuid.UUID][]scoring.HistoryEntry
	err     error

	// observed records the composite seen as previous by each Upsert, and -1
	// for creations.
	observed []int
	written  []int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		records: make(map[uuid.UUID]scoring.LeadScore),
		history: make(map[uuid.UUID][]scoring.HistoryEntry),
	}
}

func (m *memoryStore) FindByLead(_ context.Context, leadID uuid.UUID) (scoring.LeadScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return scoring.LeadScore{}, m.err
	}
	rec, ok := m.records[leadID]
	if !ok {
		return scoring.LeadScore{}, ports.ErrNotFound
	}
	rec.ScoreHistory = append([]scoring.HistoryEntry(nil), m.history[leadID]...)
	return rec, nil
}

func (m *memoryStore) Upsert(_ context.Context, leadID uuid.UUID, fn ports.UpsertFunc) (scoring.LeadScore, error) {
	m.mu.Lock()
	if m.err != nil {
		m.mu.Unlock()
		return scoring.LeadScore{}, m.err
	}
	var previous *scoring.LeadScore
	if rec, ok := m.records[leadID]; ok {
		previous = &rec
		m.observed = append(m.observed, rec.CompositeScore)
	} else {
		m.observed = append(m.observed, -1)
	}
	m.mu.Unlock()

	runtime.Gosched()

	next, entry, err := fn(previous)
	if err != nil {
		return scoring.LeadScore{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[leadID] = next
	m.written = append(m.written, next.CompositeScore)
	if entry != nil {
		m.history[leadID] = append(m.history[leadID], *entry)
	}
	next.ScoreHistory = append([]scoring.HistoryEntry(nil), m.history[leadID]...)
	return next, nil
}

func (m *memoryStore) ListTopByUser(_ context.Context, userID uuid.UUID, limit int) ([]scoring.LeadScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]scoring.LeadScore, 0)
	for _, rec := range m.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStore) History(_ context.Context, leadID uuid.UUID) ([]scoring.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]scoring.HistoryEntry(nil), m.history[leadID]...), nil
}

func (m *memoryStore) ListStale(_ context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uuid.UUID, 0)
	for id, rec := range m.records {
		if rec.LastUpdated.Before(cutoff) && len(ids) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]scoring.LeadScore
	setErr  error
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[uuid.UUID]scoring.LeadScore)}
}

func (c *fakeCache) Set(_ context.Context, score scoring.LeadScore) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[score.LeadID] = score
	return nil
}

func (c *fakeCache) Get(_ context.Context, leadID uuid.UUID) (scoring.LeadScore, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[leadID]
	if !ok {
		return scoring.LeadScore{}, ports.ErrNotFound
	}
	return s, nil
}

type fakeSources struct {
	mu         sync.Mutex
	behavior   map[uuid.UUID]scoring.BehaviorData
	engagement map[uuid.UUID]scoring.EngagementData
	behaviorFn func(uuid.UUID) scoring.BehaviorData
	err        error
}

func newFakeSources() *fakeSources {
	return &fakeSources{
		behavior:   make(map[uuid.UUID]scoring.BehaviorData),
		engagement: make(map[uuid.UUID]scoring.EngagementData),
	}
}

func (f *fakeSources) GetBehaviorData(_ context.Context, leadID uuid.UUID) (scoring.BehaviorData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return scoring.BehaviorData{}, f.err
	}
	if f.behaviorFn != nil {
		return f.behaviorFn(leadID), nil
	}
	return f.behavior[leadID], nil
}

func (f *fakeSources) GetEngagementData(_ context.Context, leadID uuid.UUID) (scoring.EngagementData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return scoring.EngagementData{}, f.err
	}
	if data, ok := f.engagement[leadID]; ok {
		return data, nil
	}
	return scoring.NoEngagement(), nil
}

type fakeLeads struct {
	leads map[uuid.UUID]ports.LeadSummary
	err   error
}

func (f *fakeLeads) GetLead(_ context.Context, leadID uuid.UUID) (ports.LeadSummary, error) {
	if f.err != nil {
		return ports.LeadSummary{}, f.err
	}
	lead, ok := f.leads[leadID]
	if !ok {
		return ports.LeadSummary{}, ports.ErrNotFound
	}
	return lead, nil
}

func (f *fakeLeads) ListLeadsByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]ports.LeadSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[uuid.UUID]ports.LeadSummary)
	for _, id := range ids {
		if lead, ok := f.leads[id]; ok {
			out[id] = lead
		}
	}
	return out, nil
}

type fakeQueue struct {
	mu       sync.Mutex
	enqueued []uuid.UUID
	err      error
}

func (q *fakeQueue) EnqueueRescore(_ context.Context, leadID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, leadID)
	return nil
}

var errUnavailable = errors.New("collaborator unavailable")
