// Package transport holds the request and response shapes of the lead
// scoring HTTP API.
package transport

import (
	"leadscore_backend/internal/leadscore/scoring"

	"github.com/google/uuid"
)

// CalculateScoreRequest carries lead attributes for an explicit calculation.
// An empty body makes the handler resolve attributes from the lead record.
// Ownership always comes from the lead record.
type CalculateScoreRequest struct {
	JobTitle    string `json:"jobTitle" validate:"max=100"`
	CompanySize string `json:"companySize" validate:"max=50"`
	Industry    string `json:"industry" validate:"max=100"`
	Location    string `json:"location" validate:"max=100"`
}

// LeadData converts the request into scoring input.
func (r CalculateScoreRequest) LeadData() scoring.LeadData {
	return scoring.LeadData{
		JobTitle:    r.JobTitle,
		CompanySize: r.CompanySize,
		Industry:    r.Industry,
		Location:    r.Location,
	}
}

// TopLeadsQuery is the query string of the top-leads listing.
type TopLeadsQuery struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=500"`
}

type HistoryResponse struct {
	LeadID  uuid.UUID              `json:"leadId"`
	History []scoring.HistoryEntry `json:"history"`
}

// Rescore acceptance states.
const (
	RescoreQueued        = "queued"
	RescoreAlreadyQueued = "already_queued"
)

type RescoreAcceptedResponse struct {
	LeadID uuid.UUID `json:"leadId"`
	Status string    `json:"status"`
}
