package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrReservationFinalized = errors.New("reservation date has already passed")
	ErrNotEditable          = errors.New("only pending reservations can be edited")
)

// CodeSpaceInactive is the violation code for a space that no longer
// accepts reservations.
const CodeSpaceInactive = "space_inactive"

// SpaceInactive is the violation returned when the space was deactivated.
func SpaceInactive() *ValidationError {
	return &ValidationError{Violations: []Violation{{
		Field:   "space_id",
		Code:    CodeSpaceInactive,
		Message: "The selected space is not active",
	}}}
}

// Violation is a single broken submission rule.
type Violation struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError carries every violation found for a candidate reservation.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Has reports whether a violation with the given code is present.
func (e *ValidationError) Has(code string) bool {
	for _, v := range e.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

type SpaceOccupiedError struct {
	ReservationID int64
	ConflictIDs   []int64
}

func (e *SpaceOccupiedError) Error() string {
	return fmt.Sprintf("space already has an approved reservation overlapping #%d (conflicts: %v)", e.ReservationID, e.ConflictIDs)
}

type InsufficientStockError struct {
	ResourceID   int64
	ResourceName string
	Available    int
	Requested    int
}

func (e *InsufficientStockError) Error() string {
	avail := e.Available
	if avail < 0 {
		avail = 0
	}
	return fmt.Sprintf("insufficient stock for %q: %d available, %d requested", e.ResourceName, avail, e.Requested)
}

// StateChangedError means a concurrent operation moved the reservation
// while this one was in flight. Retrying is safe.
type StateChangedError struct {
	ReservationID int64
	Expected      ReservationState
	Actual        ReservationState
}

func (e *StateChangedError) Error() string {
	if e.Actual == "" {
		return fmt.Sprintf("reservation #%d changed concurrently, retry the operation", e.ReservationID)
	}
	return fmt.Sprintf("reservation #%d is %s, expected %s; retry the operation", e.ReservationID, e.Actual, e.Expected)
}

type ReferentialConflictError struct {
	Entity     string
	ID         int64
	References int64
}

func (e *ReferentialConflictError) Error() string {
	if e.References <= 0 {
		return fmt.Sprintf("%s #%d is referenced by existing reservations and cannot be deleted", e.Entity, e.ID)
	}
	return fmt.Sprintf("%s #%d is referenced by %d reservation(s) and cannot be deleted", e.Entity, e.ID, e.References)
}
