package scoring

import (
	"math"
)

// Engine runs the scorers against one weight table.
type Engine struct {
	weights WeightTable
}

// NewEngine creates an engine over the given weights.
func NewEngine(weights WeightTable) *Engine {
	return &Engine{weights: weights}
}

// Weights returns the table the engine scores with.
func (e *Engine) Weights() WeightTable {
	return e.weights
}

// Compute runs every scorer and estimator for one lead.
func (e *Engine) Compute(lead LeadData, behavior BehaviorData, engagement EngagementData) (Computation, error) {
	behavioral, err := e.Behavioral(behavior)
	if err != nil {
		return Computation{}, err
	}
	engaged, err := e.Engagement(engagement)
	if err != nil {
		return Computation{}, err
	}
	demographic := e.Demographic(lead)

	composite := CompositeScore(demographic.Total, behavioral.Total, engaged.Total)

	return Computation{
		DemographicScore:      demographic,
		BehavioralScore:       behavioral,
		EngagementScore:       engaged,
		CompositeScore:        composite,
		ScoreGrade:            GradeFor(composite),
		ConversionProbability: ConversionProbability(demographic.Total, behavioral.Total, engaged.Total),
		EstimatedValue:        e.EstimatedValue(lead.CompanySize, composite),
		EstimatedTimeToClose:  EstimatedTimeToClose(composite),
	}, nil
}

func roundInt(value float64) int {
	return int(math.Round(value))
}

func capInt(value, max int) int {
	if value > max {
		return max
	}
	return value
}
