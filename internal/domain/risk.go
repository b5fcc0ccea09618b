package domain

// RiskSnapshot is the engine's view of the external risk feed for one
// asset: the current score plus optional price anchors for the
// price-at-risk model. Zero anchors mean "absent".
type RiskSnapshot struct {
	AssetID        string
	Score          float64 // [0,100]
	FloorPrice     float64
	CeilingPrice   float64
	ReferencePrice float64
	UpdatedAt      int64 // ms
}

// RiskScorePoint is one day of computed risk-score history for an asset,
// including the model internals so scores can be audited after the fact.
type RiskScorePoint struct {
	AssetID       string
	Date          int64 // UTC midnight, ms
	Price         float64
	TrendValue    float64
	Residual      float64
	ZScore        float64
	RawScore      float64
	SmoothedScore float64
	RiskScore     float64

	// FloorPrice and CeilingPrice are the trend-band price anchors at
	// the extremes of the normalized residual distribution. They feed
	// the price-at-risk interpolation downstream.
	FloorPrice   float64
	CeilingPrice float64
}
