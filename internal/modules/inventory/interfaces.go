package inventory

import (
	"context"

	"campusreserve/internal/domain"
)

type Notifier interface {
	SpaceDeactivated(ctx context.Context, s *domain.Space, affected []domain.Reservation)
}
