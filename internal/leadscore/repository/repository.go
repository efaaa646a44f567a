// Package repository is the Postgres adapter for lead scores and for the
// CRM tables the scorers read from.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadscore_backend/internal/leadscore/ports"
	"leadscore_backend/internal/leadscore/scoring"
	"leadscore_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Repository struct {
	pool db.Pool
}

func New(pool db.Pool) *Repository {
	return &Repository{pool: pool}
}

const scoreColumns = `lead_id, user_id, demographic_score, behavioral_score, engagement_score,
	composite_score, score_grade, conversion_probability, estimated_value, estimated_time_to_close,
	created_at, last_updated`

func scanScore(row pgx.Row) (scoring.LeadScore, error) {
	var (
		s                                   scoring.LeadScore
		demographic, behavioral, engagement []byte
		grade                               string
	)
	if err := row.Scan(
		&s.LeadID, &s.UserID, &demographic, &behavioral, &engagement,
		&s.CompositeScore, &grade, &s.ConversionProbability, &s.EstimatedValue, &s.EstimatedTimeToClose,
		&s.CreatedAt, &s.LastUpdated,
	); err != nil {
		return scoring.LeadScore{}, err
	}
	s.ScoreGrade = scoring.Grade(grade)

	if err := json.Unmarshal(demographic, &s.DemographicScore); err != nil {
		return scoring.LeadScore{}, fmt.Errorf("decode demographic_score: %w", err)
	}
	if err := json.Unmarshal(behavioral, &s.BehavioralScore); err != nil {
		return scoring.LeadScore{}, fmt.Errorf("decode behavioral_score: %w", err)
	}
	if err := json.Unmarshal(engagement, &s.EngagementScore); err != nil {
		return scoring.LeadScore{}, fmt.Errorf("decode engagement_score: %w", err)
	}
	return s, nil
}

// FindByLead returns the score record with its history.
func (r *Repository) FindByLead(ctx context.Context, leadID uuid.UUID) (scoring.LeadScore, error) {
	score, err := scanScore(r.pool.QueryRow(ctx, `
		SELECT `+scoreColumns+`
		FROM lead_scores
		WHERE lead_id = $1
	`, leadID))
	if errors.Is(err, pgx.ErrNoRows) {
		return scoring.LeadScore{}, ports.ErrNotFound
	}
	if err != nil {
		return scoring.LeadScore{}, err
	}

	history, err := r.History(ctx, leadID)
	if err != nil {
		return scoring.LeadScore{}, err
	}
	score.ScoreHistory = history
	return score, nil
}

// Upsert serializes writers of one lead with a transaction-scoped advisory
// lock, then reads, recomputes and writes inside that transaction.
func (r *Repository) Upsert(ctx context.Context, leadID uuid.UUID, fn ports.UpsertFunc) (scoring.LeadScore, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return scoring.LeadScore{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, leadID); err != nil {
		return scoring.LeadScore{}, fmt.Errorf("lock lead score: %w", err)
	}

	var previous *scoring.LeadScore
	current, err := scanScore(tx.QueryRow(ctx, `
		SELECT `+scoreColumns+`
		FROM lead_scores
		WHERE lead_id = $1
	`, leadID))
	switch {
	case err == nil:
		previous = &current
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return scoring.LeadScore{}, err
	}

	next, entry, err := fn(previous)
	if err != nil {
		return scoring.LeadScore{}, err
	}

	demographic, err := json.Marshal(next.DemographicScore)
	if err != nil {
		return scoring.LeadScore{}, err
	}
	behavioral, err := json.Marshal(next.BehavioralScore)
	if err != nil {
		return scoring.LeadScore{}, err
	}
	engagement, err := json.Marshal(next.EngagementScore)
	if err != nil {
		return scoring.LeadScore{}, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO lead_scores (`+scoreColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (lead_id) DO UPDATE SET
			demographic_score = EXCLUDED.demographic_score,
			behavioral_score = EXCLUDED.behavioral_score,
			engagement_score = EXCLUDED.engagement_score,
			composite_score = EXCLUDED.composite_score,
			score_grade = EXCLUDED.score_grade,
			conversion_probability = EXCLUDED.conversion_probability,
			estimated_value = EXCLUDED.estimated_value,
			estimated_time_to_close = EXCLUDED.estimated_time_to_close,
			last_updated = EXCLUDED.last_updated
	`,
		leadID, next.UserID, demographic, behavioral, engagement,
		next.CompositeScore, string(next.ScoreGrade), next.ConversionProbability, next.EstimatedValue, next.EstimatedTimeToClose,
		next.CreatedAt, next.LastUpdated,
	); err != nil {
		return scoring.LeadScore{}, fmt.Errorf("write lead score: %w", err)
	}

	if entry != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO lead_score_history (lead_id, occurred_at, score, reason, changed_fields)
			VALUES ($1, $2, $3, $4, $5)
		`, leadID, entry.Date, entry.Score, entry.Reason, entry.ChangedFields); err != nil {
			return scoring.LeadScore{}, fmt.Errorf("append score history: %w", err)
		}
	}

	history, err := queryHistory(ctx, tx, leadID)
	if err != nil {
		return scoring.LeadScore{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return scoring.LeadScore{}, err
	}

	next.LeadID = leadID
	next.ScoreHistory = history
	return next, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryHistory(ctx context.Context, q querier, leadID uuid.UUID) ([]scoring.HistoryEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT occurred_at, score, reason, changed_fields
		FROM lead_score_history
		WHERE lead_id = $1
		ORDER BY id ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]scoring.HistoryEntry, 0)
	for rows.Next() {
		var e scoring.HistoryEntry
		if err := rows.Scan(&e.Date, &e.Score, &e.Reason, &e.ChangedFields); err != nil {
			return nil, err
		}
		if e.ChangedFields == nil {
			e.ChangedFields = []string{}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// History returns a lead's entries in insertion order. A lead without a
// record has no entries.
func (r *Repository) History(ctx context.Context, leadID uuid.UUID) ([]scoring.HistoryEntry, error) {
	return queryHistory(ctx, r.pool, leadID)
}

// ListTopByUser returns a user's scores, best first. Equal composites are
// ordered by most recent update, then lead id.
func (r *Repository) ListTopByUser(ctx context.Context, userID uuid.UUID, limit int) ([]scoring.LeadScore, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+scoreColumns+`
		FROM lead_scores
		WHERE user_id = $1
		ORDER BY composite_score DESC, last_updated DESC, lead_id ASC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make([]scoring.LeadScore, 0)
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// ListStale returns leads whose score is older than cutoff, oldest first.
func (r *Repository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT lead_id
		FROM lead_scores
		WHERE last_updated < $1
		ORDER BY last_updated ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ ports.ScoreStore = (*Repository)(nil)
