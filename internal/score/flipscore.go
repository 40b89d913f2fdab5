package score

import (
	"fmt"

	"quickflip/internal/logging"
	"quickflip/internal/types"
)

const flipScoreBase = 50

// Recommendation thresholds.
const (
	excellentThreshold = 80
	goodThreshold      = 60
	fairThreshold      = 40
)

// Flip computes the 0-100 resale desirability score. Every contribution
// is recorded as a labeled factor so the score explains itself.
func Flip(profile *types.VehicleProfile, market types.MarketSnapshot) types.FlipScore {
	score := flipScoreBase
	factors := make([]types.ScoreFactor, 0, 5)

	add := func(label string, delta int) {
		score += delta
		factors = append(factors, types.ScoreFactor{Label: label, Delta: delta})
	}

	add(fmt.Sprintf("title: %s", profile.TitleStatus), titleDelta(profile.TitleStatus))
	add(fmt.Sprintf("condition: %s", profile.Condition), conditionDelta(profile.Condition))
	add(fmt.Sprintf("mileage: %d", profile.Mileage), mileageDelta(profile.Mileage))
	add(fmt.Sprintf("demand: %s", market.DemandLevel), demandDelta(market.DemandLevel))
	add(fmt.Sprintf("trend: %s", market.Trend), trendDelta(market.Trend))

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	result := types.FlipScore{
		Score:          score,
		Factors:        factors,
		Recommendation: recommendation(score),
	}
	logging.Score("flip score %d (%s) for %s", result.Score, result.Recommendation, profile.ShortName())
	return result
}

func titleDelta(title types.TitleStatus) int {
	switch title {
	case types.TitleClean:
		return 20
	case types.TitleRebuilt:
		return 10
	case types.TitleSalvage:
		return -20
	default:
		return -30
	}
}

func conditionDelta(condition types.Condition) int {
	switch condition {
	case types.ConditionExcellent:
		return 15
	case types.ConditionGood:
		return 10
	case types.ConditionFair:
		return 5
	default:
		return -15
	}
}

func mileageDelta(miles int) int {
	switch {
	case miles <= 0:
		return 0
	case miles < 50000:
		return 15
	case miles < 100000:
		return 10
	case miles < 150000:
		return 5
	default:
		return -10
	}
}

func demandDelta(demand types.DemandLevel) int {
	switch demand {
	case types.DemandHigh:
		return 10
	case types.DemandMedium:
		return 5
	default:
		return -5
	}
}

func trendDelta(trend types.TrendDirection) int {
	switch trend {
	case types.TrendRising:
		return 10
	case types.TrendStable:
		return 5
	default:
		return -5
	}
}

func recommendation(score int) string {
	switch {
	case score >= excellentThreshold:
		return "excellent flip opportunity"
	case score >= goodThreshold:
		return "good flip opportunity"
	case score >= fairThreshold:
		return "fair flip opportunity"
	default:
		return "poor flip opportunity"
	}
}
