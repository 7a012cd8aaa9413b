// Package ledger derives resource availability from reservation rows.
// Nothing here is cached or written: every answer is recomputed from the
// current committed quantities, so callers inside a transaction see their
// own locks and writes.
package ledger

import (
	"context"
	"fmt"

	"campusreserve/internal/domain"
)

type UsageReader interface {
	CommittedQuantity(ctx context.Context, resourceID int64, slot domain.Slot, states []domain.ReservationState, excludeID int64) (int, error)
}

type StockReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Resource, error)
}

type Ledger struct {
	usage UsageReader
	stock StockReader
}

func New(usage UsageReader, stock StockReader) *Ledger {
	return &Ledger{usage: usage, stock: stock}
}

// Available is stock minus everything PENDING or APPROVED in the window,
// clamped at zero for display.
func (l *Ledger) Available(ctx context.Context, resourceID int64, slot domain.Slot) (int, error) {
	res, err := l.stock.GetByID(ctx, resourceID)
	if err != nil {
		return 0, err
	}
	bal, err := l.Balance(ctx, res, slot, domain.ActiveStates, 0)
	if err != nil {
		return 0, err
	}
	return max(bal, 0), nil
}

// Balance is the unclamped stock left for res once reservations in states
// overlapping slot are subtracted. excludeID keeps a reservation from
// counting against itself.
func (l *Ledger) Balance(ctx context.Context, res *domain.Resource, slot domain.Slot, states []domain.ReservationState, excludeID int64) (int, error) {
	used, err := l.usage.CommittedQuantity(ctx, res.ID, slot, states, excludeID)
	if err != nil {
		return 0, fmt.Errorf("committed quantity for resource %d: %w", res.ID, err)
	}
	return res.Stock - used, nil
}

// Demand is one requested line: a resource and how many units.
type Demand struct {
	Resource *domain.Resource
	Quantity int
}

// Check verifies every demand fits in what is left after reservations in
// states, returning an InsufficientStockError for the first line that does not.
func (l *Ledger) Check(ctx context.Context, demands []Demand, slot domain.Slot, states []domain.ReservationState, excludeID int64) error {
	for _, d := range demands {
		if err := domain.CheckQuantity(d.Resource.ID, d.Quantity); err != nil {
			return err
		}
		bal, err := l.Balance(ctx, d.Resource, slot, states, excludeID)
		if err != nil {
			return err
		}
		if bal < d.Quantity {
			return &domain.InsufficientStockError{
				ResourceID:   d.Resource.ID,
				ResourceName: d.Resource.Name,
				Available:    bal,
				Requested:    d.Quantity,
			}
		}
	}
	return nil
}
