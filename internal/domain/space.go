package domain

import "time"

type Space struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" gorm:"size:100;not null;uniqueIndex"`
	Location  string    `json:"location" gorm:"size:200"`
	Capacity  int       `json:"capacity"`
	IsActive  bool      `json:"is_active" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
