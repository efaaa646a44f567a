package scoring

// Demographic scores the categorical lead attributes. Values are matched
// exactly; anything unknown falls back to the category default.
func (e *Engine) Demographic(lead LeadData) DemographicScore {
	factors := DemographicFactors{
		JobTitle:    e.weights.JobTitle.Lookup(lead.JobTitle),
		CompanySize: e.weights.CompanySize.Lookup(lead.CompanySize),
		Industry:    e.weights.Industry.Lookup(lead.Industry),
		Location:    e.weights.Location.Lookup(lead.Location),
	}
	return DemographicScore{
		Total:   factors.JobTitle + factors.CompanySize + factors.Industry + factors.Location,
		Factors: factors,
	}
}
