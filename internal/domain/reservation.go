package domain

import (
	"fmt"
	"time"
)

type ReservationState string

const (
	StatePending   ReservationState = "PENDING"
	StateApproved  ReservationState = "APPROVED"
	StateRejected  ReservationState = "REJECTED"
	StateCancelled ReservationState = "CANCELLED"
	StateFinalized ReservationState = "FINALIZED"
)

// ActiveStates are the states that hold a slot and consume resource stock.
var ActiveStates = []ReservationState{StatePending, StateApproved}

func (s ReservationState) Valid() bool {
	switch s {
	case StatePending, StateApproved, StateRejected, StateCancelled, StateFinalized:
		return true
	}
	return false
}

func (s ReservationState) Terminal() bool {
	return s == StateRejected || s == StateCancelled || s == StateFinalized
}

type Reservation struct {
	ID          int64            `json:"id"`
	RequesterID int64            `json:"requester_id" gorm:"not null;index"`
	SpaceID     int64            `json:"space_id" gorm:"not null;index:idx_reservation_space_date"`
	Date        string           `json:"date" gorm:"type:varchar(10);not null;index:idx_reservation_space_date"`
	StartTime   Clock            `json:"start_time" gorm:"type:varchar(5);not null"`
	EndTime     Clock            `json:"end_time" gorm:"type:varchar(5);not null"`
	Reason      string           `json:"reason" gorm:"type:text"`
	State       ReservationState `json:"state" gorm:"type:varchar(20);not null;default:PENDING;index"`
	CreatedAt   time.Time        `json:"created_at" gorm:"<-:create"`
	UpdatedAt   time.Time        `json:"updated_at"`

	// StateReason holds the rejection or cancellation text set by the transition.
	StateReason   string     `json:"state_reason,omitempty" gorm:"type:text"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`
	DecidedBy     *int64     `json:"decided_by,omitempty"`
	AttachmentKey string     `json:"attachment_key,omitempty" gorm:"size:255"`

	Space *Space                `json:"space,omitempty" gorm:"foreignKey:SpaceID;constraint:OnDelete:RESTRICT"`
	Items []ReservationResource `json:"items,omitempty" gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE"`
}

func (r *Reservation) Slot() Slot {
	return Slot{Date: r.Date, Start: r.StartTime, End: r.EndTime}
}

// Elapsed reports whether the reservation date lies before today.
func (r *Reservation) Elapsed(today string) bool {
	return r.Date < today
}

type ReservationResource struct {
	ID            int64     `json:"id"`
	ReservationID int64     `json:"reservation_id" gorm:"not null;uniqueIndex:idx_reservation_resource"`
	ResourceID    int64     `json:"resource_id" gorm:"not null;uniqueIndex:idx_reservation_resource;index"`
	Quantity      int       `json:"quantity" gorm:"not null"`
	Resource      *Resource `json:"resource,omitempty" gorm:"foreignKey:ResourceID;constraint:OnDelete:RESTRICT"`
}

// MaxItemQuantity bounds a single resource line, after duplicates are merged.
const MaxItemQuantity = 100000

// CheckQuantity rejects a line quantity outside 1..MaxItemQuantity.
func CheckQuantity(resourceID int64, qty int) error {
	if qty <= 0 || qty > MaxItemQuantity {
		return &ValidationError{Violations: []Violation{{
			Field:   "items",
			Code:    "quantity",
			Message: fmt.Sprintf("Quantity for resource #%d must be between 1 and %d", resourceID, MaxItemQuantity),
		}}}
	}
	return nil
}

// CheckItems applies CheckQuantity to every line.
func CheckItems(items []ReservationResource) error {
	for _, it := range items {
		if err := CheckQuantity(it.ResourceID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}
