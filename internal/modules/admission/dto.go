package admission

import "campusreserve/internal/domain"

type Outcome string

const (
	OutcomeApproved             Outcome = "approved"
	OutcomeNoop                 Outcome = "noop"
	OutcomeConfirmationRequired Outcome = "confirmation_required"
)

// ApprovalResult describes what Approve did. When Outcome is
// OutcomeConfirmationRequired nothing was written and Competitors lists the
// pending reservations that a confirmed approval would reject.
type ApprovalResult struct {
	Outcome     Outcome             `json:"outcome"`
	Reservation *domain.Reservation `json:"reservation"`
	Competitors []int64             `json:"competitors,omitempty"`
	Rejected    []int64             `json:"rejected,omitempty"`
}

type ApproveRequest struct {
	Confirmed bool `json:"confirmed"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type ForceCancelRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type QueueRequest struct {
	State   domain.ReservationState
	SpaceID int64
	Page    int
	Limit   int
}

type QueueResult struct {
	Items []domain.Reservation `json:"items"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}
