package domain

import "time"

type UserRole string

const (
	RoleRequester UserRole = "requester"
	RoleAdmin     UserRole = "admin"
)

// User is the read model of an account managed by the identity provider.
// Only what reservations and notifications need is stored here.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email" gorm:"size:255;uniqueIndex" validate:"required,email"`
	Name      string    `json:"name" gorm:"size:150"`
	Role      UserRole  `json:"role" gorm:"type:varchar(20);not null;default:requester"`
	IsActive  bool      `json:"is_active" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID int64
	Role   UserRole
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
