package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campusreserve/internal/domain"
)

type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) WithTx(tx *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: tx}
}

func (r *ReservationRepository) DB() *gorm.DB {
	return r.db
}

// Create inserts the reservation together with its resource items.
func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	if err := domain.CheckItems(res.Items); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	var res domain.Reservation
	err := r.db.WithContext(ctx).
		Preload("Space").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("resource_id ASC") }).
		Preload("Items.Resource").
		First(&res, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &res, nil
}

// LockByID takes a FOR UPDATE lock on the reservation row only; items and
// space are not loaded.
func (r *ReservationRepository) LockByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	var res domain.Reservation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&res).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &res, nil
}

// Overlapping returns reservations of the space whose [start,end) window
// intersects slot, restricted to states and excluding excludeID.
func (r *ReservationRepository) Overlapping(ctx context.Context, spaceID int64, slot domain.Slot, states []domain.ReservationState, excludeID int64) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := r.db.WithContext(ctx).
		Where("space_id = ? AND date = ?", spaceID, slot.Date).
		Where("state IN ?", states).
		Where("start_time < ? AND end_time > ?", slot.End, slot.Start).
		Where("id <> ?", excludeID).
		Order("start_time ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ForSpaceDate lists every reservation of a space on a date in the given states.
func (r *ReservationRepository) ForSpaceDate(ctx context.Context, spaceID int64, date string, states []domain.ReservationState, excludeID int64) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := r.db.WithContext(ctx).
		Where("space_id = ? AND date = ? AND state IN ? AND id <> ?", spaceID, date, states, excludeID).
		Order("start_time ASC").
		Find(&out).Error
	return out, err
}

// CommittedQuantity sums the quantity of resourceID held by reservations in
// states whose window overlaps slot, ignoring excludeID.
func (r *ReservationRepository) CommittedQuantity(ctx context.Context, resourceID int64, slot domain.Slot, states []domain.ReservationState, excludeID int64) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Table("reservation_resources AS rr").
		Select("COALESCE(SUM(rr.quantity), 0)").
		Joins("JOIN reservations AS res ON res.id = rr.reservation_id").
		Where("rr.resource_id = ? AND res.date = ?", resourceID, slot.Date).
		Where("res.state IN ?", states).
		Where("res.start_time < ? AND res.end_time > ?", slot.End, slot.Start).
		Where("res.id <> ?", excludeID).
		Scan(&total).Error
	return int(total), err
}

// Transition moves a reservation to `to` only while it is still in one of
// `from`. When no row matches it reports ErrNotFound or a StateChangedError
// carrying the state actually found.
func (r *ReservationRepository) Transition(ctx context.Context, id int64, from []domain.ReservationState, to domain.ReservationState, reason string, actorID *int64) error {
	now := time.Now()
	updates := map[string]any{
		"state":      to,
		"decided_at": now,
		"updated_at": now,
	}
	if reason != "" {
		updates["state_reason"] = reason
	}
	if actorID != nil {
		updates["decided_by"] = *actorID
	}

	res := r.db.WithContext(ctx).
		Model(&domain.Reservation{}).
		Where("id = ? AND state IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var cur domain.Reservation
	if err := r.db.WithContext(ctx).Select("id", "state").First(&cur, id).Error; err != nil {
		return notFound(err)
	}
	return &domain.StateChangedError{ReservationID: id, Expected: from[0], Actual: cur.State}
}

// UpdatePending rewrites the schedule fields of a reservation that is still PENDING.
func (r *ReservationRepository) UpdatePending(ctx context.Context, res *domain.Reservation) error {
	tx := r.db.WithContext(ctx).
		Model(&domain.Reservation{}).
		Where("id = ? AND state = ?", res.ID, domain.StatePending).
		Updates(map[string]any{
			"space_id":   res.SpaceID,
			"date":       res.Date,
			"start_time": res.StartTime,
			"end_time":   res.EndTime,
			"reason":     res.Reason,
			"updated_at": time.Now(),
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return &domain.StateChangedError{ReservationID: res.ID, Expected: domain.StatePending}
	}
	return nil
}

// ReplaceItems deletes every item of the reservation and inserts items.
func (r *ReservationRepository) ReplaceItems(ctx context.Context, reservationID int64, items []domain.ReservationResource) error {
	if err := domain.CheckItems(items); err != nil {
		return err
	}
	db := r.db.WithContext(ctx)
	if err := db.Where("reservation_id = ?", reservationID).Delete(&domain.ReservationResource{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ID = 0
		items[i].ReservationID = reservationID
	}
	return db.Create(&items).Error
}

// DeletePending hard-deletes a PENDING reservation and its items.
func (r *ReservationRepository) DeletePending(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND state = ?", id, domain.StatePending).Delete(&domain.Reservation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &domain.StateChangedError{ReservationID: id, Expected: domain.StatePending}
		}
		return tx.Where("reservation_id = ?", id).Delete(&domain.ReservationResource{}).Error
	})
}

type ListFilter struct {
	RequesterID int64
	State       domain.ReservationState
	SpaceID     int64
	Limit       int
	Offset      int
}

func (r *ReservationRepository) List(ctx context.Context, f ListFilter) ([]domain.Reservation, int64, error) {
	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&domain.Reservation{})
		if f.RequesterID > 0 {
			q = q.Where("requester_id = ?", f.RequesterID)
		}
		if f.State != "" {
			q = q.Where("state = ?", f.State)
		}
		if f.SpaceID > 0 {
			q = q.Where("space_id = ?", f.SpaceID)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := scoped().
		Preload("Space").
		Preload("Items.Resource").
		Order("date DESC, start_time ASC, id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	var out []domain.Reservation
	err := q.Find(&out).Error
	return out, total, err
}

// FutureActiveForSpace returns PENDING and APPROVED reservations of the space
// dated today or later.
func (r *ReservationRepository) FutureActiveForSpace(ctx context.Context, spaceID int64, today string) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := r.db.WithContext(ctx).
		Where("space_id = ? AND date >= ? AND state IN ?", spaceID, today, domain.ActiveStates).
		Order("date ASC, start_time ASC").
		Find(&out).Error
	return out, err
}

// InStates lists reservations in states dated within [from, to], with their
// space and resources loaded. Empty bounds are open.
func (r *ReservationRepository) InStates(ctx context.Context, states []domain.ReservationState, from, to string) ([]domain.Reservation, error) {
	q := r.db.WithContext(ctx).Where("state IN ?", states)
	if from != "" {
		q = q.Where("date >= ?", from)
	}
	if to != "" {
		q = q.Where("date <= ?", to)
	}
	var out []domain.Reservation
	err := q.Preload("Space").
		Preload("Items.Resource").
		Order("date ASC, start_time ASC, id ASC").
		Find(&out).Error
	return out, err
}

// FinalizeElapsed marks APPROVED reservations dated before today as FINALIZED.
func (r *ReservationRepository) FinalizeElapsed(ctx context.Context, today string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Reservation{}).
		Where("state = ? AND date < ?", domain.StateApproved, today).
		Updates(map[string]any{"state": domain.StateFinalized, "updated_at": time.Now()})
	return res.RowsAffected, res.Error
}

func (r *ReservationRepository) SetAttachment(ctx context.Context, id int64, key string) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Reservation{}).
		Where("id = ?", id).
		Update("attachment_key", key)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IsStateChanged reports whether err is a StateChangedError.
func IsStateChanged(err error) bool {
	var sc *domain.StateChangedError
	return errors.As(err, &sc)
}
