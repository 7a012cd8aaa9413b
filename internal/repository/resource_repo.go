package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campusreserve/internal/domain"
)

type ResourceRepository struct {
	db *gorm.DB
}

func NewResourceRepository(db *gorm.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

func (r *ResourceRepository) WithTx(tx *gorm.DB) *ResourceRepository {
	return &ResourceRepository{db: tx}
}

func (r *ResourceRepository) Create(ctx context.Context, res *domain.Resource) error {
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *ResourceRepository) Update(ctx context.Context, res *domain.Resource) error {
	return r.db.WithContext(ctx).
		Model(&domain.Resource{}).
		Where("id = ?", res.ID).
		Updates(map[string]any{
			"name":  res.Name,
			"code":  res.Code,
			"stock": res.Stock,
		}).Error
}

func (r *ResourceRepository) GetByID(ctx context.Context, id int64) (*domain.Resource, error) {
	var res domain.Resource
	if err := r.db.WithContext(ctx).First(&res, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &res, nil
}

func (r *ResourceRepository) List(ctx context.Context) ([]domain.Resource, error) {
	var out []domain.Resource
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// LockByIDs takes FOR UPDATE row locks on the given resources in id order,
// so concurrent transactions always acquire them in the same sequence.
func (r *ResourceRepository) LockByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Resource, error) {
	out := make(map[int64]*domain.Resource, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.Resource
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

func (r *ResourceRepository) CountAssociations(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.ReservationResource{}).Where("resource_id = ?", id).Count(&n).Error
	return n, err
}

func (r *ResourceRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&domain.Resource{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
