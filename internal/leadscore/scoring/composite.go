package scoring

// Composite weights. They sum to 1.
const (
	DemographicWeight = 0.3
	BehavioralWeight  = 0.4
	EngagementWeight  = 0.3
)

// WeightedTotal is the unrounded weighted sum of the three sub-score totals.
func WeightedTotal(demographic, behavioral, engagement int) float64 {
	return DemographicWeight*float64(demographic) +
		BehavioralWeight*float64(behavioral) +
		EngagementWeight*float64(engagement)
}

// CompositeScore rounds the weighted total to an integer in 0..100.
func CompositeScore(demographic, behavioral, engagement int) int {
	return roundInt(WeightedTotal(demographic, behavioral, engagement))
}

// GradeFor maps a composite score to its letter grade.
func GradeFor(score int) Grade {
	switch {
	case score >= 80:
		return GradeA
	case score >= 70:
		return GradeB
	case score >= 60:
		return GradeC
	case score >= 50:
		return GradeD
	default:
		return GradeF
	}
}
