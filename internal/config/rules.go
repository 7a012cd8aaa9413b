package config

import (
	"fmt"
	"time"

	"campusreserve/internal/domain"
)

// Rules holds the institution-specific submission thresholds. A zero
// MinDuration or MaxDuration leaves that bound open.
type Rules struct {
	MinimumLeadTime      time.Duration
	OpeningTime          domain.Clock
	ClosingTime          domain.Clock
	MinDuration          time.Duration
	MaxDuration          time.Duration
	BufferEnabled        bool
	Buffer               time.Duration
	OkStatesForReporting []domain.ReservationState
}

func DefaultRules() Rules {
	return Rules{
		MinimumLeadTime:      48 * time.Hour,
		OpeningTime:          "08:30",
		ClosingTime:          "21:00",
		MinDuration:          time.Hour,
		MaxDuration:          0,
		BufferEnabled:        true,
		Buffer:               time.Hour,
		OkStatesForReporting: []domain.ReservationState{domain.StateApproved},
	}
}

func (r Rules) Validate() error {
	open, close := r.OpeningTime.Minutes(), r.ClosingTime.Minutes()
	if open < 0 {
		return fmt.Errorf("rules.openingTime %q must be HH:MM", r.OpeningTime)
	}
	if close < 0 {
		return fmt.Errorf("rules.closingTime %q must be HH:MM", r.ClosingTime)
	}
	if open >= close {
		return fmt.Errorf("rules.openingTime must be before rules.closingTime")
	}
	if r.MinimumLeadTime < 0 {
		return fmt.Errorf("rules.minimumLeadTime must be >= 0")
	}
	if r.MinDuration < 0 || r.MaxDuration < 0 {
		return fmt.Errorf("rules.minDuration and rules.maxDuration must be >= 0")
	}
	if r.MaxDuration > 0 && r.MaxDuration < r.MinDuration {
		return fmt.Errorf("rules.maxDuration must not be shorter than rules.minDuration")
	}
	if r.Buffer < 0 {
		return fmt.Errorf("rules.buffer must be >= 0")
	}
	if len(r.OkStatesForReporting) == 0 {
		return fmt.Errorf("rules.okStatesForReporting must list at least one state")
	}
	for _, s := range r.OkStatesForReporting {
		if !s.Valid() {
			return fmt.Errorf("rules.okStatesForReporting: unknown state %q", s)
		}
	}
	return nil
}
