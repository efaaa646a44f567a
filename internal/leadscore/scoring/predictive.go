package scoring

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	probabilityMidpoint = 50.0
	probabilitySpread   = 15.0

	closeBaselineDays = 90.0
	closeDaysPerPoint = 0.5
	// MinTimeToCloseDays floors the estimate. Composite scores in 0..100 never
	// reach it; it only guards wider inputs.
	MinTimeToCloseDays = 7
)

// ConversionProbability applies a logistic curve to the unrounded weighted
// total and returns a percentage with two decimals.
func ConversionProbability(demographic, behavioral, engagement int) float64 {
	weighted := WeightedTotal(demographic, behavioral, engagement)
	p := 100 / (1 + math.Exp(-(weighted-probabilityMidpoint)/probabilitySpread))
	return math.Round(p*100) / 100
}

// EstimatedValue scales the company-size base deal value by the composite score.
func (e *Engine) EstimatedValue(companySize string, composite int) int64 {
	base := decimal.NewFromInt(int64(e.weights.DealValue.Lookup(companySize)))
	value := base.Mul(decimal.NewFromInt(int64(composite))).Div(decimal.NewFromInt(100)).Round(0)
	if value.IsNegative() {
		return 0
	}
	return value.IntPart()
}

// EstimatedTimeToClose returns the expected days to close for a composite score.
func EstimatedTimeToClose(composite int) int {
	days := roundInt(closeBaselineDays - float64(100-composite)*closeDaysPerPoint)
	if days < MinTimeToCloseDays {
		return MinTimeToCloseDays
	}
	return days
}
