// Package ports defines the consumer-driven interfaces the lead scoring
// context needs from storage, caching and the surrounding CRM.
package ports

import (
	"context"
	"errors"
	"time"

	"leadscore_backend/internal/leadscore/scoring"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lead or score record does not exist.
var ErrNotFound = errors.New("not found")

// ErrRescorePending is returned by a RescoreQueue when a rescoring task for
// the lead is already waiting and the request was folded into it.
var ErrRescorePending = errors.New("rescore already pending")

// BehaviorSource returns analytics activity counts for a lead.
// A lead without recorded activity yields zero counts, not an error.
type BehaviorSource interface {
	GetBehaviorData(ctx context.Context, leadID uuid.UUID) (scoring.BehaviorData, error)
}

// EngagementSource returns CRM engagement metrics for a lead.
type EngagementSource interface {
	GetEngagementData(ctx context.Context, leadID uuid.UUID) (scoring.EngagementData, error)
}

// LeadSummary is the lead-record view used when enriching top-lead results.
type LeadSummary struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	Name        string    `json:"name"`
	Company     string    `json:"company"`
	JobTitle    string    `json:"jobTitle"`
	CompanySize string    `json:"companySize"`
	Industry    string    `json:"industry"`
	Location    string    `json:"location"`
}

// LeadData converts the summary into scoring input.
func (l LeadSummary) LeadData() scoring.LeadData {
	return scoring.LeadData{
		UserID:      l.UserID,
		JobTitle:    l.JobTitle,
		CompanySize: l.CompanySize,
		Industry:    l.Industry,
		Location:    l.Location,
	}
}

// LeadReader resolves lead records.
type LeadReader interface {
	// GetLead returns ErrNotFound when the lead does not exist.
	GetLead(ctx context.Context, leadID uuid.UUID) (LeadSummary, error)
	// ListLeadsByIDs returns the leads that exist, keyed by id.
	ListLeadsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]LeadSummary, error)
}

// UpsertFunc computes the next score from the stored one. previous is nil when
// the lead has never been scored. Returning an error aborts the write.
type UpsertFunc func(previous *scoring.LeadScore) (scoring.LeadScore, *scoring.HistoryEntry, error)

// ScoreStore persists lead score records.
type ScoreStore interface {
	// FindByLead returns the score record with its full history, or ErrNotFound.
	FindByLead(ctx context.Context, leadID uuid.UUID) (scoring.LeadScore, error)
	// Upsert reads, recomputes and writes a lead's record as one serialized
	// step. Concurrent Upsert calls for the same lead never interleave.
	Upsert(ctx context.Context, leadID uuid.UUID, fn UpsertFunc) (scoring.LeadScore, error)
	// ListTopByUser returns a user's records by descending composite score.
	// History is not loaded.
	ListTopByUser(ctx context.Context, userID uuid.UUID, limit int) ([]scoring.LeadScore, error)
	// History returns a lead's history entries in insertion order.
	History(ctx context.Context, leadID uuid.UUID) ([]scoring.HistoryEntry, error)
	// ListStale returns ids of leads whose score was last updated before cutoff.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

// ScoreCache is a best-effort read cache of full score records.
type ScoreCache interface {
	Set(ctx context.Context, score scoring.LeadScore) error
	// Get returns ErrNotFound on a miss.
	Get(ctx context.Context, leadID uuid.UUID) (scoring.LeadScore, error)
}

// RescoreQueue schedules asynchronous rescoring. It returns ErrRescorePending
// when an equivalent task is still queued.
type RescoreQueue interface {
	EnqueueRescore(ctx context.Context, leadID uuid.UUID) error
}

// CacheTTL is the default lifetime of a cached score.
const CacheTTL = time.Hour
