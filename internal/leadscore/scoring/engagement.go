package scoring

import (
	"fmt"
	"math"
)

// NoEngagement is the input for a lead with no CRM record: it has never
// responded, so it lands in the slow response tier with no activity.
func NoEngagement() EngagementData {
	return EngagementData{AvgResponseTime: math.Inf(1)}
}

// Validate rejects negative or NaN metrics. A positive infinite response time
// means the lead never responded.
func (d EngagementData) Validate() error {
	if math.IsNaN(d.AvgResponseTime) || d.AvgResponseTime < 0 {
		return fmt.Errorf("engagement data: avgResponseTime must be a non-negative number, got %v", d.AvgResponseTime)
	}
	if d.MeetingsAttended < 0 || d.ProposalViews < 0 || d.Referrals < 0 {
		return fmt.Errorf("engagement data: counts must be >= 0")
	}
	return nil
}

// ResponseTimeTier returns the tier points for an average response time in hours.
func (e *Engine) ResponseTimeTier(hours float64) int {
	w := e.weights.Engagement
	switch {
	case hours < w.FastResponseHours:
		return w.FastResponse
	case hours < w.MediumResponseHours:
		return w.MediumResponse
	default:
		return w.SlowResponse
	}
}

// Engagement scores CRM activity. The response-time factor is reported as the
// raw tier value; the other three factors are capped at 25.
func (e *Engine) Engagement(data EngagementData) (EngagementScore, error) {
	if err := data.Validate(); err != nil {
		return EngagementScore{}, err
	}
	w := e.weights.Engagement

	responseTime := e.ResponseTimeTier(data.AvgResponseTime)
	meetings := float64(data.MeetingsAttended) * w.Meeting
	proposals := float64(data.ProposalViews) * w.ProposalView
	referrals := float64(data.Referrals) * w.Referral

	return EngagementScore{
		Total: capInt(roundInt(float64(responseTime)+meetings+proposals+referrals), MaxSubScore),
		Factors: EngagementFactors{
			ResponseTime:       responseTime,
			MeetingAttendance:  capInt(roundInt(meetings), MaxEngagementFactor),
			ProposalEngagement: capInt(roundInt(proposals), MaxEngagementFactor),
			ReferralActivity:   capInt(roundInt(referrals), MaxEngagementFactor),
		},
	}, nil
}
