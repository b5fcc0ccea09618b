package domain

import (
	"time"

	"github.com/google/uuid"
)

// Execution is an immutable record of one simulated fill. Only the
// execution engine creates executions; they are never mutated afterwards.
type Execution struct {
	ID              string
	Date            int64 // UTC midnight of the fill day, ms
	RiskAtExecution float64
	AmountFiat      float64
	AssetAmount     float64
	PricePerUnit    float64
}

// NewExecution builds an execution record for a fill at the given risk and
// price. AssetAmount = AmountFiat / PricePerUnit when the price is positive,
// zero otherwise (an unavailable price still records the fiat side).
func NewExecution(now time.Time, risk, amountFiat, pricePerUnit float64) Execution {
	var assetAmount float64
	if pricePerUnit > 0 {
		assetAmount = amountFiat / pricePerUnit
	}
	return Execution{
		ID:              uuid.NewString(),
		Date:            DayMs(now),
		RiskAtExecution: risk,
		AmountFiat:      amountFiat,
		AssetAmount:     assetAmount,
		PricePerUnit:    pricePerUnit,
	}
}

// DayMs truncates t to UTC midnight and returns it in milliseconds.
func DayMs(t time.Time) int64 {
	u := t.UTC()
	day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return day.UnixMilli()
}
