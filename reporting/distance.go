package reporting

import "github.com/shopspring/decimal"

// =============================================================================
// DISTANCE TRACKER - Remaining voyage distance (distance-to-go)
// =============================================================================

// InitialDistanceToGo is the distance left once the vessel clears the
// harbour: max(0, total - harbour).
func InitialDistanceToGo(totalVoyageDistance, harbourDistance decimal.Decimal) decimal.Decimal {
	return clampZero(totalVoyageDistance.Sub(harbourDistance))
}

// UpdatedDistanceToGo carries distance-to-go forward from the baseline
// report: max(0, previous - sinceLast).
func UpdatedDistanceToGo(previousDistanceToGo, distanceSinceLastReport decimal.Decimal) decimal.Decimal {
	return clampZero(previousDistanceToGo.Sub(distanceSinceLastReport))
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
