package scoring

import "fmt"

// Validate rejects negative counts.
func (d BehaviorData) Validate() error {
	counts := []struct {
		name  string
		value int
	}{
		{"emailOpens", d.EmailOpens},
		{"emailClicks", d.EmailClicks},
		{"websiteVisits", d.WebsiteVisits},
		{"pageViews", d.PageViews},
		{"timeOnSite", d.TimeOnSite},
		{"downloads", d.Downloads},
		{"formSubmissions", d.FormSubmissions},
		{"socialShares", d.SocialShares},
	}
	for _, c := range counts {
		if c.value < 0 {
			return fmt.Errorf("behavior data: %s must be >= 0, got %d", c.name, c.value)
		}
	}
	return nil
}

// Behavioral scores analytics activity.
//
// The total is capped at 100 from the unclamped sum of subtotals, while each
// reported factor is capped at 20 on its own. The reported factors can
// therefore sum to less than the total; grade thresholds depend on this.
func (e *Engine) Behavioral(data BehaviorData) (BehavioralScore, error) {
	if err := data.Validate(); err != nil {
		return BehavioralScore{}, err
	}
	w := e.weights.Behavioral

	emailEngagement := float64(data.EmailOpens)*w.EmailOpen + float64(data.EmailClicks)*w.EmailClick
	websiteActivity := float64(data.WebsiteVisits)*w.WebsiteVisit +
		float64(data.PageViews)*w.PageView +
		float64(data.TimeOnSite)*w.TimeOnSite
	contentDownloads := float64(data.Downloads) * w.Download
	formSubmissions := float64(data.FormSubmissions) * w.FormSubmission
	socialEngagement := float64(data.SocialShares) * w.SocialShare

	raw := emailEngagement + websiteActivity + contentDownloads + formSubmissions + socialEngagement

	return BehavioralScore{
		Total: capInt(roundInt(raw), MaxSubScore),
		Factors: BehavioralFactors{
			EmailEngagement:  capInt(roundInt(emailEngagement), MaxBehavioralFactor),
			WebsiteActivity:  capInt(roundInt(websiteActivity), MaxBehavioralFactor),
			ContentDownloads: capInt(roundInt(contentDownloads), MaxBehavioralFactor),
			FormSubmissions:  capInt(roundInt(formSubmissions), MaxBehavioralFactor),
			SocialEngagement: capInt(roundInt(socialEngagement), MaxBehavioralFactor),
		},
	}, nil
}
