package reservation

import "campusreserve/internal/domain"

type ItemRequest struct {
	ResourceID int64 `json:"resource_id" validate:"required,gt=0"`
	Quantity   int   `json:"quantity" validate:"required,gt=0,lte=100000"`
}

// SubmitRequest is used both for new reservations and for edits.
type SubmitRequest struct {
	SpaceID   int64         `json:"space_id" validate:"required,gt=0"`
	Date      string        `json:"date" validate:"required,date"`
	StartTime string        `json:"start_time" validate:"required,clock"`
	EndTime   string        `json:"end_time" validate:"required,clock"`
	Reason    string        `json:"reason" validate:"max=2000"`
	Items     []ItemRequest `json:"items" validate:"max=50,dive"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type ListRequest struct {
	State domain.ReservationState
	Page  int
	Limit int
}

type ListResult struct {
	Items []domain.Reservation `json:"items"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

// CancelResult tells whether the reservation was removed outright (it was
// still pending) or kept as CANCELLED.
type CancelResult struct {
	Deleted     bool                `json:"deleted"`
	Reservation *domain.Reservation `json:"reservation,omitempty"`
}
