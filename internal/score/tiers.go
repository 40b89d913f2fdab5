// Package score derives the three pricing tiers and the FlipScore from
// the finished pricing breakdown. Strictly downstream of pricing: nothing
// here may feed back into the adjustment pipeline.
package score

import (
	"math"

	"quickflip/internal/logging"
	"quickflip/internal/types"
)

// Tier multipliers off the final price.
const (
	quickSalePercent = -15
	topDollarPercent = 15
)

// Tiers converts the pipeline's final price into the three strategies a
// seller can pick from.
func Tiers(finalPrice float64) types.PricingTiers {
	tiers := types.PricingTiers{
		QuickSale: types.PriceTier{
			Price:               math.Round(finalPrice * (1 + quickSalePercent/100.0)),
			Rationale:           "Priced below market to attract immediate interest and sell fast.",
			EstimatedDaysToSell: 21,
			RiskLevel:           "low",
		},
		MarketPrice: types.PriceTier{
			Price:               math.Round(finalPrice),
			Rationale:           "Aligned with comparable listings for a balanced time-to-sale.",
			EstimatedDaysToSell: 42,
			RiskLevel:           "medium",
		},
		TopDollar: types.PriceTier{
			Price:               math.Round(finalPrice * (1 + topDollarPercent/100.0)),
			Rationale:           "Premium ask for patient sellers; expect longer negotiation.",
			EstimatedDaysToSell: 70,
			RiskLevel:           "high",
		},
	}
	logging.Score("tiers: quick=%.0f market=%.0f top=%.0f",
		tiers.QuickSale.Price, tiers.MarketPrice.Price, tiers.TopDollar.Price)
	return tiers
}
