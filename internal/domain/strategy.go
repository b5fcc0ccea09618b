package domain

// Mode selects the trade side of a strategy.
type Mode string

// Strategy modes.
const (
	ModeAccumulate Mode = "ACCUMULATE" // buy-side: orders fire as risk falls
	ModeDistribute Mode = "DISTRIBUTE" // sell-side: orders fire as risk rises
)

// Kind selects the trigger style of a strategy.
type Kind string

// Strategy kinds.
const (
	KindFixed  Kind = "FIXED"  // schedule-triggered
	KindScaled Kind = "SCALED" // risk-level-triggered
)

// Frequency is the schedule of a FIXED strategy.
type Frequency string

// Supported frequencies.
const (
	FrequencyDaily       Frequency = "DAILY"
	FrequencyWeekly      Frequency = "WEEKLY"
	FrequencyFortnightly Frequency = "FORTNIGHTLY"
	FrequencyMonthly     Frequency = "MONTHLY"
)

const dayMs int64 = 24 * 60 * 60 * 1000

// IntervalMs returns the schedule interval in milliseconds.
// Unknown frequencies fall back to daily so a malformed strategy
// degrades instead of wedging the schedule.
func (f Frequency) IntervalMs() int64 {
	switch f {
	case FrequencyDaily:
		return dayMs
	case FrequencyWeekly:
		return 7 * dayMs
	case FrequencyFortnightly:
		return 14 * dayMs
	case FrequencyMonthly:
		return 30 * dayMs
	default:
		return dayMs
	}
}

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyFortnightly, FrequencyMonthly:
		return true
	}
	return false
}

// PlannedOrder is one entry of a scaled strategy's level plan:
// the risk level and the fiat order size placed when it is crossed.
type PlannedOrder struct {
	Risk       float64
	AmountFiat float64
}

// Strategy is a user-defined trading rule evaluated against the external
// risk score. ID, AssetID, Mode and Kind are immutable after creation.
// Only the execution engine appends Executions and touches the scheduling
// timestamps; user edits go through the strategies service and preserve
// the execution history.
type Strategy struct {
	ID      string
	AssetID string
	Mode    Mode
	Kind    Kind

	// Active range endpoints in [0,100]. The normalized range is
	// [min(start,end), max(start,end)]; accumulate strategies declare
	// start > end (buying toward low risk), distribute start < end.
	ActiveRiskStart float64
	ActiveRiskEnd   float64

	// AmountPerOrder is the base fiat order size. For scaled strategies
	// it is the size at the first level of the range.
	AmountPerOrder float64

	// Frequency applies to FIXED strategies only.
	Frequency Frequency

	// LevelStep and LevelGrowthPct apply to SCALED strategies only.
	LevelStep      float64
	LevelGrowthPct float64

	// Capital caps total fiat spent by an accumulate strategy;
	// AssetCap caps total asset sold by a distribute strategy.
	// Zero means uncapped.
	Capital  float64
	AssetCap float64

	// Active is the user on/off switch, independent of range containment.
	Active bool

	// NextExecutionAt is the due time of the next scheduled execution
	// (FIXED only); cleared whenever risk leaves the active range.
	NextExecutionAt *int64

	LastExecutionAt *int64
	ActivatedAt     *int64
	CreatedAt       int64

	// ComputedOrders is the frozen level plan persisted at creation/edit
	// time for scaled strategies. Once persisted it is used verbatim for
	// display and execution matching; it is never silently recomputed.
	ComputedOrders []PlannedOrder

	// Executions is the append-only history of simulated fills.
	Executions []Execution
}

// Bounds returns the normalized active range [minR, maxR].
func (s *Strategy) Bounds() (minR, maxR float64) {
	if s.ActiveRiskStart <= s.ActiveRiskEnd {
		return s.ActiveRiskStart, s.ActiveRiskEnd
	}
	return s.ActiveRiskEnd, s.ActiveRiskStart
}

// InRange reports whether risk lies inside the closed active range.
func (s *Strategy) InRange(risk float64) bool {
	minR, maxR := s.Bounds()
	return risk >= minR && risk <= maxR
}

// ExecutedAsset returns the total asset amount across all executions.
func (s *Strategy) ExecutedAsset() float64 {
	var total float64
	for i := range s.Executions {
		total += s.Executions[i].AssetAmount
	}
	return total
}

// ExecutedFiat returns the total fiat amount across all executions.
func (s *Strategy) ExecutedFiat() float64 {
	var total float64
	for i := range s.Executions {
		total += s.Executions[i].AmountFiat
	}
	return total
}

// Clone returns a deep copy of the strategy.
func (s *Strategy) Clone() *Strategy {
	c := *s
	c.NextExecutionAt = cloneInt64(s.NextExecutionAt)
	c.LastExecutionAt = cloneInt64(s.LastExecutionAt)
	c.ActivatedAt = cloneInt64(s.ActivatedAt)
	if s.ComputedOrders != nil {
		c.ComputedOrders = make([]PlannedOrder, len(s.ComputedOrders))
		copy(c.ComputedOrders, s.ComputedOrders)
	}
	if s.Executions != nil {
		c.Executions = make([]Execution, len(s.Executions))
		copy(c.Executions, s.Executions)
	}
	return &c
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
