package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"leadscore_backend/internal/leadscore/ports"
	"leadscore_backend/internal/leadscore/scoring"
	"leadscore_backend/platform/apperr"
	"leadscore_backend/platform/logger"
	"leadscore_backend/platform/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	svc     *Service
	store   *memoryStore
	cache   *fakeCache
	sources *fakeSources
	leads   *fakeLeads
	queue   *fakeQueue
	metrics *metrics.Metrics

	clockMu sync.Mutex
	clock   time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:   newMemoryStore(),
		cache:   newFakeCache(),
		sources: newFakeSources(),
		leads:   &fakeLeads{leads: make(map[uuid.UUID]ports.LeadSummary)},
		queue:   &fakeQueue{},
		metrics: metrics.New(prometheus.NewRegistry()),
		clock:   time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	h.svc = New(Deps{
		Store:      h.store,
		Cache:      h.cache,
		Behavior:   h.sources,
		Engagement: h.sources,
		Leads:      h.leads,
		Queue:      h.queue,
		Metrics:    h.metrics,
		Logger:     logger.NewWithWriter("test", io.Discard),
		Now:        h.now,
	})
	return h
}

// now advances the clock by a minute on every call.
func (h *harness) now() time.Time {
	h.clockMu.Lock()
	defer h.clockMu.Unlock()
	h.clock = h.clock.Add(time.Minute)
	return h.clock
}

func topLead(userID uuid.UUID) scoring.LeadData {
	return scoring.LeadData{UserID: userID, JobTitle: "CEO", CompanySize: "1000+", Industry: "Technology", Location: "North America"}
}

func (h *harness) addLead(leadID, userID uuid.UUID) {
	h.leads.leads[leadID] = ports.LeadSummary{ID: leadID, UserID: userID, Name: "lead"}
}

func (h *harness) seedActivity(leadID uuid.UUID, forms int) {
	h.sources.mu.Lock()
	defer h.sources.mu.Unlock()
	h.sources.behavior[leadID] = scoring.BehaviorData{FormSubmissions: forms}
	h.sources.engagement[leadID] = scoring.EngagementData{AvgResponseTime: 1, MeetingsAttended: 1, ProposalViews: 3}
}

func TestCalculateCreatesRecordWithInitialHistory(t *testing.T) {
	h := newHarness(t)
	leadID, userID := uuid.New(), uuid.New()
	h.addLead(leadID, userID)
	h.seedActivity(leadID, 5)

	got, err := h.svc.CalculateLeadScore(context.Background(), leadID, topLead(userID))
	require.NoError(t, err)

	assert.Equal(t, leadID, got.LeadID)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, 65, got.CompositeScore)
	assert.Equal(t, scoring.GradeC, got.ScoreGrade)
	assert.Equal(t, int64(97500), got.EstimatedValue)
	require.Len(t, got.ScoreHistory, 1)
	assert.Equal(t, scoring.ReasonInitial, got.ScoreHistory[0].Reason)
	assert.Equal(t, []string{scoring.ChangedAll}, got.ScoreHistory[0].ChangedFields)
	assert.True(t, got.CreatedAt.Equal(got.LastUpdated))

	cached, err := h.cache.Get(context.Background(), leadID)
	require.NoError(t, err)
	assert.Equal(t, 65, cached.CompositeScore)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.HistoryAppends))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Grades.WithLabelValues("C")))
}

func TestRecalculateAppendsOnlySignificantChanges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	leadID, userID := uuid.New(), uuid.New()
	h.addLead(leadID, userID)

	h.seedActivity(leadID, 5)
	first, err := h.svc.CalculateLeadScore(ctx, leadID, topLead(userID))
	require.NoError(t, err)

	// Identical input: no entry.
	again, err := h.svc.CalculateLeadScore(ctx, leadID, topLead(userID))
	require.NoError(t, err)
	assert.Len(t, again.ScoreHistory, 1)
	assert.True(t, again.LastUpdated.After(first.LastUpdated))
	assert.True(t, again.CreatedAt.Equal(first.CreatedAt))

	// 65 -> 69: below the threshold, but the record is still replaced.
	h.seedActivity(leadID, 6)
	small, err := h.svc.CalculateLeadScore(ctx, leadID, topLead(userID))
	require.NoError(t, err)
	assert.Equal(t, 69, small.CompositeScore)
	assert.Len(t, small.ScoreHistory, 1)

	// 69 -> 85 with only the behavioral block moving.
	h.seedActivity(leadID, 10)
	big, err := h.svc.CalculateLeadScore(ctx, leadID, topLead(userID))
	require.NoError(t, err)
	assert.Equal(t, 85, big.CompositeScore)
	assert.Equal(t, scoring.GradeA, big.ScoreGrade)
	require.Len(t, big.ScoreHistory, 2)
	assert.Equal(t, scoring.ReasonAutomated, big.ScoreHistory[1].Reason)
	assert.Equal(t, 85, big.ScoreHistory[1].Score)
	assert.Equal(t, []string{scoring.ChangedBehavioral}, big.ScoreHistory[1].ChangedFields)
}

func TestCalculateTakesOwnerFromLeadRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	leadID, owner := uuid.New(), uuid.New()
	h.addLead(leadID, owner)
	h.seedActivity(leadID, 1)

	created, err := h.svc.CalculateLeadScore(ctx, leadID, topLead(uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, owner, created.UserID)

	// Reassigning the lead later does not move an existing score.
	h.addLead(leadID, uuid.New())
	got, err := h.svc.CalculateLeadScore(ctx, leadID, topLead(uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, owner, got.UserID)

	top, err := h.svc.GetTopLeads(ctx, owner, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, leadID, top[0].LeadID)
}

func TestCalculateRejectsUnknownLead(t *testing.T) {
	h := newHarness(t)
	leadID := uuid.New()
	h.seedActivity(leadID, 3)

	_, err := h.svc.CalculateLeadScore(context.Background(), leadID, topLead(uuid.New()))
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, findErr := h.store.FindByLead(context.Background(), leadID)
	assert.ErrorIs(t, findErr, ports.ErrNotFound)
	stale, err := h.store.ListStale(context.Background(), time.Now().Add(24*time.Hour), 100)
	require.NoError(t, err)
	assert.Empty(t, stale)

	h.leads.err = errUnavailable
	_, err = h.svc.CalculateLeadScore(context.Background(), leadID, topLead(uuid.New()))
	assert.True(t, apperr.Is(err, apperr.KindOperationFailed))
	assert.ErrorIs(t, err, errUnavailable)
}

func TestCalculateWrapsCollaboratorFailure(t *testing.T) {
	h := newHarness(t)
	leadID := uuid.New()
	h.addLead(leadID, uuid.New())
	h.sources.err = errUnavailable

	_, err := h.svc.CalculateLeadScore(context.Background(), leadID, topLead(uuid.New()))
	require.Error(t, err)

	assert.True(t, apperr.Is(err, apperr.KindOperationFailed))
	assert.ErrorIs(t, err, errUnavailable)
	assert.Contains(t, err.Error(), leadID.String())

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, map[string]string{"leadId": leadID.String()}, appErr.Details)

	_, findErr := h.store.FindByLead(context.Background(), leadID)
	assert.ErrorIs(t, findErr, ports.ErrNotFound)
	assert.Equal(t, 0, h.cache.sets)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Calculations.WithLabelValues(metrics.OutcomeFailed)))
}

func TestCalculateRejectsInvalidActivity(t *testing.T) {
	h := newHarness(t)
	leadID := uuid.New()
	h.addLead(leadID, uuid.New())
	h.sources.behavior[leadID] = scoring.BehaviorData{EmailOpens: -3}

	_, err := h.svc.CalculateLeadScore(context.Background(), leadID, topLead(uuid.New()))
	assert.True(t, apperr.Is(err, apperr.KindOperationFailed))
}

func TestCalculateWrapsStoreFailure(t *testing.T) {
	h := newHarness(t)
	leadID := uuid.New()
	h.addLead(leadID, uuid.New())
	h.store.err = errors.New("deadlock detected")

	_, err := h.svc.CalculateLeadScore(context.Background(), leadID, topLead(uuid.New()))
	assert.True(t, apperr.Is(err, apperr.KindOperationFailed))
	assert.Equal(t, 0, h.cache.sets)
}

func TestCacheFailureDoesNotFailCalculation(t *testing.T) {
	h := newHarness(t)
	leadID := uuid.New()
	h.addLead(leadID, uuid.New())
	h.seedActivity(leadID, 2)
	h.cache.setErr = errors.New("redis down")

	got, err := h.svc.CalculateLeadScore(context.Background(), leadID, topLead(uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, leadID, got.LeadID)

	stored, err := h.store.FindByLead(context.Background(), leadID)
	require.NoError(t, err)
	assert.Equal(t, got.CompositeScore, stored.CompositeScore)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.CacheWriteFailures))
}

func TestConcurrentCalculationsDoNotLoseUpdates(t *testing.T) {
	h := newHarness(t)
	leadID, userID := uuid.New(), uuid.New()
	h.addLead(leadID, userID)

	var calls int
	h.sources.behaviorFn = func(uuid.UUID) scoring.BehaviorData {
		calls++
		return scoring.BehaviorData{FormSubmissions: calls % 11}
	}

	const workers = 40
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.svc.CalculateLeadScore(context.Background(), leadID, topLead(userID)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}

	require.Len(t, h.store.observed, workers)
	require.Len(t, h.store.written, workers)
	assert.Equal(t, -1, h.store.observed[0])
	for i := 1; i < workers; i++ {
		assert.Equal(t, h.store.written[i-1], h.store.observed[i], "write %d did not see the previous write", i)
	}
	assert.Equal(t, 0, h.svc.locks.size())

	history, err := h.svc.GetLeadScoreHistory(context.Background(), leadID)
	require.NoError(t, err)
	assert.Equal(t, scoring.ReasonInitial, history[0].Reason)
	for _, entry := range history[1:] {
		assert.Equal(t, scoring.ReasonAutomated, entry.Reason)
	}
}

func TestGetLeadScoreReadsThroughCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	leadID := uuid.New()
	h.addLead(leadID, uuid.New())
	h.seedActivity(leadID, 3)

	_, err := h.svc.CalculateLeadScore(ctx, leadID, topLead(uuid.New()))
	require.NoError(t, err)

	h.cache.entries = make(map[uuid.UUID]scoring.LeadScore)
	setsBefore := h.cache.sets

	got, err := h.svc.GetLeadScore(ctx, leadID)
	require.NoError(t, err)
	assert.Equal(t, leadID, got.LeadID)
	assert.Equal(t, setsBefore+1, h.cache.sets)

	cached, err := h.svc.GetLeadScore(ctx, leadID)
	require.NoError(t, err)
	assert.Equal(t, got.CompositeScore, cached.CompositeScore)
	assert.Equal(t, setsBefore+1, h.cache.sets)
}

func TestGetLeadScoreNotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.GetLeadScore(context.Background(), uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGetLeadScoreHistoryEmptyForUnknownLead(t *testing.T) {
	h := newHarness(t)
	got, err := h.svc.GetLeadScoreHistory(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGetTopLeadsOrdersAndEnriches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID, other := uuid.New(), uuid.New()

	forms := []int{1, 8, 4}
	ids := make([]uuid.UUID, len(forms))
	for i, f := range forms {
		ids[i] = uuid.New()
		h.seedActivity(ids[i], f)
		h.addLead(ids[i], userID)
		_, err := h.svc.CalculateLeadScore(ctx, ids[i], topLead(userID))
		require.NoError(t, err)
	}
	// A lead deleted after scoring is listed without its record.
	delete(h.leads.leads, ids[2])
	foreign := uuid.New()
	h.addLead(foreign, other)
	h.seedActivity(foreign, 10)
	_, err := h.svc.CalculateLeadScore(ctx, foreign, topLead(other))
	require.NoError(t, err)

	top, err := h.svc.GetTopLeads(ctx, userID, 0)
	require.NoError(t, err)
	require.Len(t, top, 3)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].CompositeScore, top[i].CompositeScore)
	}
	assert.Equal(t, ids[1], top[0].LeadID)
	require.NotNil(t, top[0].Lead)
	assert.Equal(t, ids[1], top[0].Lead.ID)
	assert.Nil(t, top[1].Lead)

	limited, err := h.svc.GetTopLeads(ctx, uuid.New(), 10)
	require.NoError(t, err)
	assert.NotNil(t, limited)
	assert.Empty(t, limited)
}

func TestRescoreLeadResolvesLead(t *testing.T) {
	h := newHarness(t)
	leadID, userID := uuid.New(), uuid.New()
	h.seedActivity(leadID, 5)
	h.leads.leads[leadID] = ports.LeadSummary{
		ID: leadID, UserID: userID, JobTitle: "CEO", CompanySize: "1000+", Industry: "Technology", Location: "North America",
	}

	got, err := h.svc.RescoreLead(context.Background(), leadID)
	require.NoError(t, err)
	assert.Equal(t, 65, got.CompositeScore)
	assert.Equal(t, userID, got.UserID)

	_, err = h.svc.RescoreLead(context.Background(), uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestEnqueueRescore(t *testing.T) {
	h := newHarness(t)
	leadID := uuid.New()

	require.NoError(t, h.svc.EnqueueRescore(context.Background(), leadID))
	assert.Equal(t, []uuid.UUID{leadID}, h.queue.enqueued)

	h.queue.err = errUnavailable
	err := h.svc.EnqueueRescore(context.Background(), leadID)
	assert.True(t, apperr.Is(err, apperr.KindOperationFailed))

	noQueue := New(Deps{Store: h.store, Logger: logger.NewWithWriter("test", io.Discard)})
	err = noQueue.EnqueueRescore(context.Background(), leadID)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
}

func TestEnqueueRescorePassesThroughPending(t *testing.T) {
	h := newHarness(t)
	h.queue.err = fmt.Errorf("enqueue: %w", ports.ErrRescorePending)

	err := h.svc.EnqueueRescore(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ports.ErrRescorePending)
	assert.Equal(t, apperr.KindUnknown, apperr.GetKind(err))
}

func TestRescoreStaleEnqueuesOldScores(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	leadID := uuid.New()
	h.addLead(leadID, uuid.New())
	h.seedActivity(leadID, 1)

	saved, err := h.svc.CalculateLeadScore(ctx, leadID, topLead(uuid.New()))
	require.NoError(t, err)

	n, err := h.svc.RescoreStale(ctx, saved.LastUpdated, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = h.svc.RescoreStale(ctx, saved.LastUpdated.Add(time.Second), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []uuid.UUID{leadID}, h.queue.enqueued)

	h.queue.err = ports.ErrRescorePending
	n, err = h.svc.RescoreStale(ctx, saved.LastUpdated.Add(time.Second), 100)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLeadLocksReleaseEntries(t *testing.T) {
	locks := newLeadLocks()
	id := uuid.New()

	release := locks.lock(id)
	assert.Equal(t, 1, locks.size())
	release()
	assert.Equal(t, 0, locks.size())
}
