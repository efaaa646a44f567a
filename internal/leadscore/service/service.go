// Package service orchestrates lead scoring: it gathers collaborator data,
// runs the scoring engine, persists the record and refreshes the cache.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"leadscore_backend/internal/leadscore/ports"
	"leadscore_backend/internal/leadscore/scoring"
	"leadscore_backend/platform/apperr"
	"leadscore_backend/platform/logger"
	"leadscore_backend/platform/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTopLeadsLimit applies when callers pass a non-positive limit.
	DefaultTopLeadsLimit = 50

	opCalculate = "calculate lead score"
	opRescore   = "rescore lead"
	opGet       = "get lead score"
	opHistory   = "get lead score history"
	opTopLeads  = "get top leads"
)

// TopLead is a score enriched with its lead record. Lead is nil when the
// lead record no longer exists.
type TopLead struct {
	scoring.LeadScore
	Lead *ports.LeadSummary `json:"lead,omitempty"`
}

// Deps are the collaborators of the scoring service. Cache, Queue and
// Metrics are optional.
type Deps struct {
	Engine     *scoring.Engine
	Store      ports.ScoreStore
	Cache      ports.ScoreCache
	Behavior   ports.BehaviorSource
	Engagement ports.EngagementSource
	Leads      ports.LeadReader
	Queue      ports.RescoreQueue
	Metrics    *metrics.Metrics
	Logger     *logger.Logger
	Now        func() time.Time
}

type Service struct {
	engine     *scoring.Engine
	store      ports.ScoreStore
	cache      ports.ScoreCache
	behavior   ports.BehaviorSource
	engagement ports.EngagementSource
	leads      ports.LeadReader
	queue      ports.RescoreQueue
	metrics    *metrics.Metrics
	log        *logger.Logger
	now        func() time.Time
	locks      *leadLocks
}

func New(deps Deps) *Service {
	engine := deps.Engine
	if engine == nil {
		engine = scoring.NewEngine(scoring.DefaultWeights())
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	log := deps.Logger
	if log == nil {
		log = logger.New("production")
	}
	return &Service{
		engine:     engine,
		store:      deps.Store,
		cache:      deps.Cache,
		behavior:   deps.Behavior,
		engagement: deps.Engagement,
		leads:      deps.Leads,
		queue:      deps.Queue,
		metrics:    deps.Metrics,
		log:        log,
		now:        now,
		locks:      newLeadLocks(),
	}
}

func operationFailed(op string, leadID uuid.UUID, err error) *apperr.Error {
	return apperr.OperationFailed(op, fmt.Sprintf("lead scoring failed for lead %s", leadID), err).
		WithDetails(map[string]string{"leadId": leadID.String()})
}

// CalculateLeadScore scores a lead from its attributes and current activity,
// persists the record and refreshes the cache. The lead must exist; its
// record decides the owner of a new score. Calls for the same lead are
// serialized so each one sees the previous call's record.
func (s *Service) CalculateLeadScore(ctx context.Context, leadID uuid.UUID, lead scoring.LeadData) (scoring.LeadScore, error) {
	summary, err := s.findLead(ctx, opCalculate, leadID)
	if err != nil {
		return scoring.LeadScore{}, err
	}
	lead.UserID = summary.UserID
	return s.calculate(ctx, leadID, lead)
}

func (s *Service) findLead(ctx context.Context, op string, leadID uuid.UUID) (ports.LeadSummary, error) {
	lead, err := s.leads.GetLead(ctx, leadID)
	if errors.Is(err, ports.ErrNotFound) {
		return ports.LeadSummary{}, apperr.NotFound("lead not found").WithOp(op)
	}
	if err != nil {
		return ports.LeadSummary{}, operationFailed(op, leadID, err)
	}
	return lead, nil
}

func (s *Service) calculate(ctx context.Context, leadID uuid.UUID, lead scoring.LeadData) (score scoring.LeadScore, err error) {
	release := s.locks.lock(leadID)
	defer release()

	started := time.Now()
	defer func() { s.metrics.ObserveCalculation(started, err) }()

	behavior, engagement, err := s.gather(ctx, leadID)
	if err != nil {
		return scoring.LeadScore{}, operationFailed(opCalculate, leadID, err)
	}

	computed, err := s.engine.Compute(lead, behavior, engagement)
	if err != nil {
		return scoring.LeadScore{}, operationFailed(opCalculate, leadID, err)
	}

	var appended bool
	saved, err := s.store.Upsert(ctx, leadID, func(previous *scoring.LeadScore) (scoring.LeadScore, *scoring.HistoryEntry, error) {
		now := s.now()
		next := scoring.LeadScore{
			LeadID:      leadID,
			UserID:      lead.UserID,
			Computation: computed,
			CreatedAt:   now,
			LastUpdated: now,
		}

		var entry *scoring.HistoryEntry
		if previous == nil {
			entry = scoring.TrackHistory(nil, computed, now)
		} else {
			next.UserID = previous.UserID
			next.CreatedAt = previous.CreatedAt
			entry = scoring.TrackHistory(&previous.Computation, computed, now)
		}
		appended = entry != nil
		return next, entry, nil
	})
	if err != nil {
		return scoring.LeadScore{}, operationFailed(opCalculate, leadID, err)
	}

	s.metrics.RecordPersisted(string(saved.ScoreGrade), appended)
	s.refreshCache(ctx, saved)

	s.log.ScoreCalculated(leadID.String(), saved.CompositeScore, string(saved.ScoreGrade), appended)
	return saved, nil
}

func (s *Service) gather(ctx context.Context, leadID uuid.UUID) (scoring.BehaviorData, scoring.EngagementData, error) {
	var (
		behavior   scoring.BehaviorData
		engagement scoring.EngagementData
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := s.behavior.GetBehaviorData(gctx, leadID)
		if err != nil {
			return fmt.Errorf("behavior data: %w", err)
		}
		behavior = data
		return nil
	})
	g.Go(func() error {
		data, err := s.engagement.GetEngagementData(gctx, leadID)
		if err != nil {
			return fmt.Errorf("engagement data: %w", err)
		}
		engagement = data
		return nil
	})
	if err := g.Wait(); err != nil {
		return scoring.BehaviorData{}, scoring.EngagementData{}, err
	}
	return behavior, engagement, nil
}

// refreshCache writes the record to the cache. Failures are logged and
// counted but never returned.
func (s *Service) refreshCache(ctx context.Context, score scoring.LeadScore) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, score); err != nil {
		s.metrics.IncCacheWriteFailure()
		s.log.CacheError("set", "leadscore:"+score.LeadID.String(), err)
	}
}

// RescoreLead resolves the lead's attributes and recalculates its score.
func (s *Service) RescoreLead(ctx context.Context, leadID uuid.UUID) (scoring.LeadScore, error) {
	lead, err := s.findLead(ctx, opRescore, leadID)
	if err != nil {
		return scoring.LeadScore{}, err
	}
	return s.calculate(ctx, leadID, lead.LeadData())
}

// EnqueueRescore schedules RescoreLead on the background worker. A request
// absorbed by an already pending task returns ports.ErrRescorePending.
func (s *Service) EnqueueRescore(ctx context.Context, leadID uuid.UUID) error {
	if s.queue == nil {
		return apperr.Internal("rescoring queue is not configured").WithOp(opRescore)
	}
	err := s.queue.EnqueueRescore(ctx, leadID)
	if errors.Is(err, ports.ErrRescorePending) {
		return ports.ErrRescorePending
	}
	if err != nil {
		return operationFailed(opRescore, leadID, err)
	}
	return nil
}

// GetLeadScore returns the cached record when present and otherwise loads
// it from the store and repopulates the cache.
func (s *Service) GetLeadScore(ctx context.Context, leadID uuid.UUID) (scoring.LeadScore, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, leadID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ports.ErrNotFound) {
			s.log.CacheError("get", "leadscore:"+leadID.String(), err)
		}
	}

	score, err := s.store.FindByLead(ctx, leadID)
	if errors.Is(err, ports.ErrNotFound) {
		return scoring.LeadScore{}, apperr.NotFound("lead score not found").WithOp(opGet)
	}
	if err != nil {
		return scoring.LeadScore{}, operationFailed(opGet, leadID, err)
	}

	s.refreshCache(ctx, score)
	return score, nil
}

// GetLeadScoreHistory returns the lead's history, or an empty slice when the
// lead has never been scored.
func (s *Service) GetLeadScoreHistory(ctx context.Context, leadID uuid.UUID) ([]scoring.HistoryEntry, error) {
	history, err := s.store.History(ctx, leadID)
	if err != nil {
		return nil, operationFailed(opHistory, leadID, err)
	}
	if history == nil {
		history = []scoring.HistoryEntry{}
	}
	return history, nil
}

// GetTopLeads returns the user's best-scored leads with their lead records.
func (s *Service) GetTopLeads(ctx context.Context, userID uuid.UUID, limit int) ([]TopLead, error) {
	if limit <= 0 {
		limit = DefaultTopLeadsLimit
	}

	scores, err := s.store.ListTopByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperr.OperationFailed(opTopLeads, "listing top leads failed", err)
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].CompositeScore > scores[j].CompositeScore
	})

	ids := make([]uuid.UUID, len(scores))
	for i, sc := range scores {
		ids[i] = sc.LeadID
	}
	leads, err := s.leads.ListLeadsByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.OperationFailed(opTopLeads, "loading lead records failed", err)
	}

	top := make([]TopLead, 0, len(scores))
	for _, sc := range scores {
		item := TopLead{LeadScore: sc}
		if lead, ok := leads[sc.LeadID]; ok {
			item.Lead = &lead
		}
		top = append(top, item)
	}
	return top, nil
}

// RescoreStale enqueues rescoring for up to limit leads whose score was last
// updated before cutoff and returns how many were enqueued. Leads that
// already have a pending task are not counted.
func (s *Service) RescoreStale(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	ids, err := s.store.ListStale(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}
	enqueued := 0
	for _, id := range ids {
		err := s.EnqueueRescore(ctx, id)
		if errors.Is(err, ports.ErrRescorePending) {
			continue
		}
		if err != nil {
			s.log.WithLead(id.String()).Warn("stale rescore enqueue failed", "error", err)
			continue
		}
		enqueued++
	}
	return enqueued, nil
}
