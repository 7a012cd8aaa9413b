package notification

import (
	"context"

	"campusreserve/internal/domain"
)

// Notice is one message addressed to one or more users.
type Notice struct {
	UserIDs       []int64                  `json:"user_ids"`
	Type          domain.NotificationType  `json:"type"`
	Level         domain.NotificationLevel `json:"level"`
	Title         string                   `json:"title"`
	Message       string                   `json:"message"`
	Link          string                   `json:"link,omitempty"`
	ReservationID int64                    `json:"reservation_id,omitempty"`
	SpaceID       int64                    `json:"space_id,omitempty"`
}

// Sink delivers a notice somewhere: the database inbox, a broker, ...
type Sink interface {
	Deliver(ctx context.Context, n Notice) error
}

// AdminDirectory resolves who receives alerts about new requests.
type AdminDirectory interface {
	AdminIDs(ctx context.Context) ([]int64, error)
}
