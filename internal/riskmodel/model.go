// Package riskmodel computes daily 0-100 risk scores from a daily price
// series: OLS power-law regression of log price against log days since
// genesis, MAD-normalized residual z-score, sigmoid mapping, EMA
// smoothing and a final clamp. The computation is pure; feeding it the
// same series always yields the same scores.
package riskmodel

import (
	"fmt"
	"math"
	"sort"
	"time"

	"cycle-strategy-engine/internal/domain"
)

// PricePoint is one day of the input series.
type PricePoint struct {
	Date  time.Time
	Price float64
}

// neutralScore seeds the EMA before the first raw score exists.
const neutralScore = 50.0

// bandZ is the z-distance from the trend at which the floor and ceiling
// price anchors sit.
const bandZ = 2.5

// ComputeScores computes the full daily score history for one asset.
// Days inside the warm-up window, days before genesis and non-positive
// prices are skipped. The input must be sorted by date ascending.
func ComputeScores(prices []PricePoint, p Params) ([]*domain.RiskScorePoint, error) {
	p = p.withDefaults()

	genesis, err := time.Parse("2006-01-02", p.GenesisDate)
	if err != nil {
		return nil, fmt.Errorf("parse genesis date %q: %w", p.GenesisDate, err)
	}

	// Pre-filter to usable days and precompute the log coordinates.
	type day struct {
		date     time.Time
		price    float64
		logDays  float64
		logPrice float64
	}
	var days []day
	for _, pt := range prices {
		sinceGenesis := pt.Date.Sub(genesis).Hours() / 24
		if sinceGenesis <= 0 || pt.Price <= 0 {
			continue
		}
		days = append(days, day{
			date:     pt.Date,
			price:    pt.Price,
			logDays:  math.Log(sinceGenesis),
			logPrice: math.Log(pt.Price),
		})
	}

	alpha := 2.0 / (float64(p.SmoothSpan) + 1)
	prevSmoothed := neutralScore
	var residuals []float64
	var points []*domain.RiskScorePoint

	for i := range days {
		winStart := 0
		if p.RegressionMode == RegressionRolling && p.RollingWindowDays > 0 {
			winStart = i - p.RollingWindowDays + 1
			if winStart < 0 {
				winStart = 0
			}
		}
		if i-winStart+1 < p.WarmUpDays {
			continue
		}

		slope, intercept, ok := fitOLS(days[winStart:i+1], func(d day) (float64, float64) {
			return d.logDays, d.logPrice
		})
		if !ok {
			continue
		}

		trend := intercept + slope*days[i].logDays
		residual := days[i].logPrice - trend
		residuals = append(residuals, residual)

		norm := residuals
		if p.NormWindowDays > 0 && len(residuals) > p.NormWindowDays {
			norm = residuals[len(residuals)-p.NormWindowDays:]
		}

		med := median(norm)
		mad := medianAbsDeviation(norm, med)
		if mad < p.MADFloor {
			mad = p.MADFloor
		}
		z := (residual - med) / mad

		raw := 100.0 / (1.0 + math.Exp(-p.SigmoidK*z))
		smoothed := alpha*raw + (1.0-alpha)*prevSmoothed
		prevSmoothed = smoothed

		final := math.Min(p.ClampMax, math.Max(p.ClampMin, smoothed))

		points = append(points, &domain.RiskScorePoint{
			AssetID:       p.AssetID,
			Date:          domain.DayMs(days[i].date),
			Price:         days[i].price,
			TrendValue:    math.Exp(trend),
			Residual:      residual,
			ZScore:        z,
			RawScore:      raw,
			SmoothedScore: smoothed,
			RiskScore:     final,
			FloorPrice:    math.Exp(trend + med - bandZ*mad),
			CeilingPrice:  math.Exp(trend + med + bandZ*mad),
		})
	}

	return points, nil
}

// fitOLS fits y = intercept + slope*x by least squares over the window.
// Returns ok=false when the x values are degenerate.
func fitOLS[T any](window []T, coords func(T) (x, y float64)) (slope, intercept float64, ok bool) {
	n := float64(len(window))
	if n == 0 {
		return 0, 0, false
	}

	var sumX, sumY float64
	for _, w := range window {
		x, y := coords(w)
		sumX += x
		sumY += y
	}
	meanX := sumX / n
	meanY := sumY / n

	var ssXX, ssXY float64
	for _, w := range window {
		x, y := coords(w)
		ssXX += (x - meanX) * (x - meanX)
		ssXY += (x - meanX) * (y - meanY)
	}

	if math.Abs(ssXX) < 1e-12 {
		return 0, 0, false
	}

	slope = ssXY / ssXX
	intercept = meanY - slope*meanX
	return slope, intercept, true
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func medianAbsDeviation(values []float64, med float64) float64 {
	if len(values) == 0 {
		return 0
	}
	devs := make([]float64, len(values))
	for i, v := range values {
		devs[i] = math.Abs(v - med)
	}
	return median(devs)
}
