package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campusreserve/internal/domain"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// Upsert inserts the user or refreshes name, role and active flag by email.
func (r *UserRepository) Upsert(ctx context.Context, u *domain.User) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "role", "is_active", "updated_at"}),
		}).
		Create(u).Error
}

// AdminIDs lists active administrators, the audience for new-request alerts.
func (r *UserRepository) AdminIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("role = ? AND is_active = ?", domain.RoleAdmin, true).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}
