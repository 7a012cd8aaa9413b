package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campusreserve/internal/domain"
)

type SpaceRepository struct {
	db *gorm.DB
}

func NewSpaceRepository(db *gorm.DB) *SpaceRepository {
	return &SpaceRepository{db: db}
}

// WithTx returns a copy bound to tx.
func (r *SpaceRepository) WithTx(tx *gorm.DB) *SpaceRepository {
	return &SpaceRepository{db: tx}
}

func (r *SpaceRepository) Create(ctx context.Context, s *domain.Space) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SpaceRepository) Update(ctx context.Context, s *domain.Space) error {
	return r.db.WithContext(ctx).
		Model(&domain.Space{}).
		Where("id = ?", s.ID).
		Updates(map[string]any{
			"name":     s.Name,
			"location": s.Location,
			"capacity": s.Capacity,
		}).Error
}

func (r *SpaceRepository) GetByID(ctx context.Context, id int64) (*domain.Space, error) {
	var s domain.Space
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// LockByID reads the space with FOR UPDATE so admissions on the same space
// serialize on its row.
func (r *SpaceRepository) LockByID(ctx context.Context, id int64) (*domain.Space, error) {
	var s domain.Space
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *SpaceRepository) List(ctx context.Context, activeOnly bool) ([]domain.Space, error) {
	q := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []domain.Space
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SetActive flips the flag and reports whether the row actually changed.
func (r *SpaceRepository) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Space{}).
		Where("id = ? AND is_active = ?", id, !active).
		Update("is_active", active)
	return res.RowsAffected > 0, res.Error
}

func (r *SpaceRepository) CountReservations(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Reservation{}).Where("space_id = ?", id).Count(&n).Error
	return n, err
}

func (r *SpaceRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&domain.Space{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
