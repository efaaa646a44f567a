// Package scoring turns lead attributes and activity counts into an
// explainable score. Everything here is pure: no I/O, no clocks except the
// timestamp callers pass in.
package scoring

import (
	"time"

	"github.com/google/uuid"
)

// Grade is the letter grade derived from a composite score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// LeadData is the categorical input for demographic scoring.
type LeadData struct {
	UserID      uuid.UUID `json:"userId"`
	JobTitle    string    `json:"jobTitle"`
	CompanySize string    `json:"companySize"`
	Industry    string    `json:"industry"`
	Location    string    `json:"location"`
}

// BehaviorData holds activity counts from the analytics pipeline.
// TimeOnSite is in minutes.
type BehaviorData struct {
	EmailOpens      int `json:"emailOpens"`
	EmailClicks     int `json:"emailClicks"`
	WebsiteVisits   int `json:"websiteVisits"`
	PageViews       int `json:"pageViews"`
	TimeOnSite      int `json:"timeOnSite"`
	Downloads       int `json:"downloads"`
	FormSubmissions int `json:"formSubmissions"`
	SocialShares    int `json:"socialShares"`
}

// EngagementData holds CRM activity metrics. AvgResponseTime is in hours.
type EngagementData struct {
	AvgResponseTime  float64 `json:"avgResponseTime"`
	MeetingsAttended int     `json:"meetingsAttended"`
	ProposalViews    int     `json:"proposalViews"`
	Referrals        int     `json:"referrals"`
}

type DemographicFactors struct {
	JobTitle    int `json:"jobTitle"`
	CompanySize int `json:"companySize"`
	Industry    int `json:"industry"`
	Location    int `json:"location"`
}

type DemographicScore struct {
	Total   int                `json:"total"`
	Factors DemographicFactors `json:"factors"`
}

type BehavioralFactors struct {
	EmailEngagement  int `json:"emailEngagement"`
	WebsiteActivity  int `json:"websiteActivity"`
	ContentDownloads int `json:"contentDownloads"`
	FormSubmissions  int `json:"formSubmissions"`
	SocialEngagement int `json:"socialEngagement"`
}

type BehavioralScore struct {
	Total   int               `json:"total"`
	Factors BehavioralFactors `json:"factors"`
}

type EngagementFactors struct {
	ResponseTime       int `json:"responseTime"`
	MeetingAttendance  int `json:"meetingAttendance"`
	ProposalEngagement int `json:"proposalEngagement"`
	ReferralActivity   int `json:"referralActivity"`
}

type EngagementScore struct {
	Total   int               `json:"total"`
	Factors EngagementFactors `json:"factors"`
}

// Computation is everything a single scoring run derives. It is replaced as a
// whole on every rescoring.
type Computation struct {
	DemographicScore      DemographicScore `json:"demographicScore"`
	BehavioralScore       BehavioralScore  `json:"behavioralScore"`
	EngagementScore       EngagementScore  `json:"engagementScore"`
	CompositeScore        int              `json:"compositeScore"`
	ScoreGrade            Grade            `json:"scoreGrade"`
	ConversionProbability float64          `json:"conversionProbability"`
	EstimatedValue        int64            `json:"estimatedValue"`
	EstimatedTimeToClose  int              `json:"estimatedTimeToClose"`
}

// HistoryEntry is one immutable record in a lead's score history.
type HistoryEntry struct {
	Date          time.Time `json:"date"`
	Score         int       `json:"score"`
	Reason        string    `json:"reason"`
	ChangedFields []string  `json:"changedFields"`
}

// LeadScore is the persisted score record of a single lead.
type LeadScore struct {
	LeadID uuid.UUID `json:"leadId"`
	UserID uuid.UUID `json:"userId"`
	Computation
	ScoreHistory []HistoryEntry `json:"scoreHistory"`
	CreatedAt    time.Time      `json:"createdAt"`
	LastUpdated  time.Time      `json:"lastUpdated"`
}
