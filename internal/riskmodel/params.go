package riskmodel

// RegressionMode selects the OLS window policy.
type RegressionMode string

// Regression modes.
const (
	// RegressionExpanding fits the trend on all history up to the
	// current day. Best for assets with a long, stable power-law trend.
	RegressionExpanding RegressionMode = "expanding"

	// RegressionRolling fits the trend on the last RollingWindowDays
	// only, so ancient low prices cannot inflate the trend line.
	RegressionRolling RegressionMode = "rolling"
)

// Params holds per-asset scoring parameters.
type Params struct {
	AssetID     string
	Name        string
	GenesisDate string // YYYY-MM-DD, day zero for the power-law clock

	WarmUpDays int     // days of history required before the first score
	SigmoidK   float64 // sigmoid steepness on the z-score
	SmoothSpan int     // EMA span for score smoothing
	MADFloor   float64 // lower bound on the MAD used for normalization
	ClampMin   float64
	ClampMax   float64

	RegressionMode    RegressionMode
	RollingWindowDays int // regression window for rolling mode
	NormWindowDays    int // residual normalization window; 0 = all history
}

// withDefaults fills the zero values of p with the standard knobs.
func (p Params) withDefaults() Params {
	if p.WarmUpDays == 0 {
		p.WarmUpDays = 365
	}
	if p.SigmoidK == 0 {
		p.SigmoidK = 1.5
	}
	if p.SmoothSpan == 0 {
		p.SmoothSpan = 7
	}
	if p.MADFloor == 0 {
		p.MADFloor = 0.10
	}
	if p.ClampMin == 0 {
		p.ClampMin = 1.0
	}
	if p.ClampMax == 0 {
		p.ClampMax = 99.0
	}
	if p.RegressionMode == "" {
		p.RegressionMode = RegressionExpanding
	}
	if p.RollingWindowDays == 0 {
		p.RollingWindowDays = 1460
	}
	return p
}

// DefaultParams returns the standard parameter sets: BTC on an expanding
// window over its full history, alts on a rolling four-year window.
func DefaultParams() []Params {
	return []Params{
		{
			AssetID:        "BTC",
			Name:           "Bitcoin",
			GenesisDate:    "2009-01-03",
			MADFloor:       0.10,
			RegressionMode: RegressionExpanding,
		},
		{
			AssetID:           "ETH",
			Name:              "Ethereum",
			GenesisDate:       "2015-08-07",
			MADFloor:          0.12,
			RegressionMode:    RegressionRolling,
			RollingWindowDays: 1460,
			NormWindowDays:    1460,
		},
		{
			AssetID:           "SOL",
			Name:              "Solana",
			GenesisDate:       "2020-04-10",
			MADFloor:          0.15,
			RegressionMode:    RegressionRolling,
			RollingWindowDays: 1460,
			NormWindowDays:    1460,
		},
		{
			AssetID:           "XRP",
			Name:              "XRP",
			GenesisDate:       "2013-08-04",
			MADFloor:          0.12,
			RegressionMode:    RegressionRolling,
			RollingWindowDays: 1460,
			NormWindowDays:    1460,
		},
	}
}
