package reservation

import (
	"fmt"
	"strings"
	"time"

	"campusreserve/internal/config"
	"campusreserve/internal/domain"
)

// Violation codes returned by Validator.
const (
	CodeInvalidDate    = "invalid_date"
	CodeInvalidTime    = "invalid_time"
	CodeSpaceInactive  = domain.CodeSpaceInactive
	CodeOrdering       = "ordering"
	CodeLeadTime       = "lead_time"
	CodeOperatingHours = "operating_hours"
	CodeMinDuration    = "min_duration"
	CodeMaxDuration    = "max_duration"
	CodeBuffer         = "buffer"
	CodeSpaceOccupied  = "space_occupied"
)

// Candidate is a reservation about to be inserted or rewritten.
type Candidate struct {
	Slot        domain.Slot
	SpaceActive bool
}

// Validator applies the submission rules. It holds no state besides its
// configuration and never touches storage.
type Validator struct {
	rules config.Rules
	loc   *time.Location
}

func NewValidator(rules config.Rules, loc *time.Location) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	return &Validator{rules: rules, loc: loc}
}

// Validate returns every rule c breaks. existing should hold the other
// reservations of the same space and date; only PENDING and APPROVED ones
// are considered.
func (v *Validator) Validate(c Candidate, existing []domain.Reservation, now time.Time) []domain.Violation {
	var out []domain.Violation
	add := func(field, code, format string, args ...any) {
		out = append(out, domain.Violation{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	if !c.SpaceActive {
		add("space_id", CodeSpaceInactive, "The selected space is not active")
	}

	_, dateErr := domain.ParseDate(c.Slot.Date)
	if dateErr != nil {
		add("date", CodeInvalidDate, "Date must be in YYYY-MM-DD format")
	}
	start, end := c.Slot.Start.Minutes(), c.Slot.End.Minutes()
	if start < 0 {
		add("start_time", CodeInvalidTime, "Start time must be in HH:MM format")
	}
	if end < 0 {
		add("end_time", CodeInvalidTime, "End time must be in HH:MM format")
	}
	if dateErr != nil || start < 0 || end < 0 {
		return out
	}

	ordered := end > start
	if !ordered {
		add("end_time", CodeOrdering, "End time must be after start time")
	}

	if at, err := c.Slot.StartIn(v.loc); err == nil && at.Sub(now) < v.rules.MinimumLeadTime {
		add("date", CodeLeadTime, "Reservations must be requested at least %s in advance", humanDuration(v.rules.MinimumLeadTime))
	}

	open, close := v.rules.OpeningTime.Minutes(), v.rules.ClosingTime.Minutes()
	if start < open || end > close {
		add("start_time", CodeOperatingHours, "Reservations must fall between %s and %s", v.rules.OpeningTime, v.rules.ClosingTime)
	}

	if ordered {
		d := c.Slot.Duration()
		if v.rules.MinDuration > 0 && d < v.rules.MinDuration {
			add("end_time", CodeMinDuration, "Reservations must last at least %s", humanDuration(v.rules.MinDuration))
		}
		if v.rules.MaxDuration > 0 && d > v.rules.MaxDuration {
			add("end_time", CodeMaxDuration, "Reservations may last at most %s", humanDuration(v.rules.MaxDuration))
		}
	}

	if !ordered {
		return out
	}

	var occupied, buffered []int64
	buf := int(v.rules.Buffer / time.Minute)
	for i := range existing {
		e := &existing[i]
		if e.Date != c.Slot.Date || (e.State != domain.StatePending && e.State != domain.StateApproved) {
			continue
		}
		es, ee := e.StartTime.Minutes(), e.EndTime.Minutes()
		if e.State == domain.StateApproved && es < end && ee > start {
			occupied = append(occupied, e.ID)
			continue
		}
		if v.rules.BufferEnabled && es-buf < end && ee+buf > start {
			buffered = append(buffered, e.ID)
		}
	}
	if len(occupied) > 0 {
		add("start_time", CodeSpaceOccupied, "The space already has an approved reservation in this time range (%s)", joinIDs(occupied))
	}
	if len(buffered) > 0 {
		if buf > 0 {
			add("start_time", CodeBuffer, "A gap of %s is required around other reservations of this space (%s)", humanDuration(v.rules.Buffer), joinIDs(buffered))
		} else {
			add("start_time", CodeBuffer, "The time range collides with other reservations of this space (%s)", joinIDs(buffered))
		}
	}

	return out
}

func humanDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return fmt.Sprintf("%dm", int(d/time.Minute))
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(parts, ", ")
}
