// Package pricing maps a risk score to an asset price. Both the level
// planner and the execution engine call it for different risk values and
// must agree, so everything here is pure and deterministic.
package pricing

import (
	"math"

	"cycle-strategy-engine/internal/domain"
)

// fallbackSlope scales the linear approximation: price grows by up to 80%
// of the reference price across the full risk range.
const fallbackSlope = 0.8

// PriceAtRisk returns the modeled price at the given risk score.
//
// With valid anchors (floor > 0 and ceiling > 0) the price is interpolated
// log-linearly: floor * (ceiling/floor)^(risk/100). Risk acts as a
// fractional exponent across the price band, so price moves
// multiplicatively per risk point. Without anchors a linear approximation
// around fallbackBase is used. Non-positive anchors are treated as absent.
func PriceAtRisk(risk, floor, ceiling, fallbackBase float64) float64 {
	risk = clampRisk(risk)

	if validAnchor(floor) && validAnchor(ceiling) {
		return floor * math.Pow(ceiling/floor, risk/100)
	}

	if fallbackBase <= 0 || math.IsNaN(fallbackBase) || math.IsInf(fallbackBase, 0) {
		return 0
	}
	return math.RoundToEven(fallbackBase * (1 + (risk/100)*fallbackSlope))
}

// FromSnapshot prices a risk value using the anchors of a feed snapshot.
func FromSnapshot(snap domain.RiskSnapshot, risk float64) float64 {
	return PriceAtRisk(risk, snap.FloorPrice, snap.CeilingPrice, snap.ReferencePrice)
}

func validAnchor(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clampRisk(risk float64) float64 {
	if math.IsNaN(risk) {
		return 0
	}
	if risk < 0 {
		return 0
	}
	if risk > 100 {
		return 100
	}
	return risk
}
