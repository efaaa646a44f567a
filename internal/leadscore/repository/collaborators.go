package repository

import (
	"context"
	"errors"

	"leadscore_backend/internal/leadscore/ports"
	"leadscore_backend/internal/leadscore/scoring"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetBehaviorData reads analytics counts. A lead without a metrics row has
// no recorded activity.
func (r *Repository) GetBehaviorData(ctx context.Context, leadID uuid.UUID) (scoring.BehaviorData, error) {
	var d scoring.BehaviorData
	err := r.pool.QueryRow(ctx, `
		SELECT email_opens, email_clicks, website_visits, page_views, time_on_site_min,
			downloads, form_submissions, social_shares
		FROM lead_behavior_metrics
		WHERE lead_id = $1
	`, leadID).Scan(
		&d.EmailOpens, &d.EmailClicks, &d.WebsiteVisits, &d.PageViews, &d.TimeOnSite,
		&d.Downloads, &d.FormSubmissions, &d.SocialShares,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return scoring.BehaviorData{}, nil
	}
	if err != nil {
		return scoring.BehaviorData{}, err
	}
	return d, nil
}

// GetEngagementData reads CRM engagement metrics. A lead without a row, or
// without a recorded response time, has never responded and scores in the
// slow tier.
func (r *Repository) GetEngagementData(ctx context.Context, leadID uuid.UUID) (scoring.EngagementData, error) {
	var d scoring.EngagementData
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(avg_response_time_hours, 'Infinity'::float8), meetings_attended, proposal_views, referrals
		FROM lead_engagement_metrics
		WHERE lead_id = $1
	`, leadID).Scan(&d.AvgResponseTime, &d.MeetingsAttended, &d.ProposalViews, &d.Referrals)
	if errors.Is(err, pgx.ErrNoRows) {
		return scoring.NoEngagement(), nil
	}
	if err != nil {
		return scoring.EngagementData{}, err
	}
	return d, nil
}

const leadColumns = `id, user_id, name, company, job_title, company_size, industry, location`

func scanLead(row pgx.Row) (ports.LeadSummary, error) {
	var l ports.LeadSummary
	err := row.Scan(&l.ID, &l.UserID, &l.Name, &l.Company, &l.JobTitle, &l.CompanySize, &l.Industry, &l.Location)
	return l, err
}

func (r *Repository) GetLead(ctx context.Context, leadID uuid.UUID) (ports.LeadSummary, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, leadID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ports.LeadSummary{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.LeadSummary{}, err
	}
	return lead, nil
}

func (r *Repository) ListLeadsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ports.LeadSummary, error) {
	leads := make(map[uuid.UUID]ports.LeadSummary, len(ids))
	if len(ids) == 0 {
		return leads, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads[lead.ID] = lead
	}
	return leads, rows.Err()
}

var (
	_ ports.BehaviorSource   = (*Repository)(nil)
	_ ports.EngagementSource = (*Repository)(nil)
	_ ports.LeadReader       = (*Repository)(nil)
)
