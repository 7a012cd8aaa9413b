package reservation

import (
	"context"
	"io"

	"campusreserve/internal/domain"
)

// Notifier receives post-commit lifecycle events.
type Notifier interface {
	Submitted(ctx context.Context, r *domain.Reservation)
	Transitioned(ctx context.Context, r *domain.Reservation)
}

// AttachmentStore keeps uploaded supporting documents.
type AttachmentStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	PresignGet(ctx context.Context, key string) (string, error)
}
