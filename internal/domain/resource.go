package domain

import "time"

// Resource is a finite-stock item lent out together with a space. Stock is a
// static capacity: consumption is always derived from reservation rows.
type Resource struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" gorm:"size:100;not null;uniqueIndex"`
	Code      *string   `json:"code,omitempty" gorm:"size:50;uniqueIndex"`
	Stock     int       `json:"stock" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
