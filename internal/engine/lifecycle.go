package engine

import (
	"time"

	"cycle-strategy-engine/internal/domain"
)

// Status is the display-only state of a strategy. It is derived, never
// persisted.
type Status string

// Strategy statuses.
const (
	StatusActive          Status = "ACTIVE"
	StatusWaitingForEntry Status = "WAITING_FOR_ENTRY"
)

// StatusOf derives the display status: ACTIVE only while the user switch
// is on and the current risk sits inside the active range.
func StatusOf(s *domain.Strategy, currentRisk float64) Status {
	if s.Active && s.InRange(currentRisk) {
		return StatusActive
	}
	return StatusWaitingForEntry
}

// ApplyAutoDeactivate forces a distribute strategy off once its asset cap
// is exhausted. It runs after every execution append and after user edits,
// since an edit can lower the cap below what was already sold. Reports
// whether the strategy was switched off.
func ApplyAutoDeactivate(s *domain.Strategy) bool {
	if s.Mode != domain.ModeDistribute || s.AssetCap <= 0 {
		return false
	}
	if !s.Active {
		return false
	}
	if s.ExecutedAsset() >= s.AssetCap {
		s.Active = false
		return true
	}
	return false
}

// SetActive flips the user switch. Turning on records ActivatedAt once.
// It never schedules NextExecutionAt: fixed strategies are picked up
// lazily by the next qualifying tick, and scaled strategies ignore the
// field entirely.
func SetActive(s *domain.Strategy, active bool, now time.Time) {
	s.Active = active
	if active && s.ActivatedAt == nil {
		ts := now.UnixMilli()
		s.ActivatedAt = &ts
	}
}
