package domain

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "INFO"
	LevelSuccess NotificationLevel = "SUCCESS"
	LevelWarning NotificationLevel = "WARNING"
	LevelDanger  NotificationLevel = "DANGER"
)

type NotificationType string

const (
	NotifReservationSubmitted NotificationType = "reservation_submitted"
	NotifReservationApproved  NotificationType = "reservation_approved"
	NotifReservationRejected  NotificationType = "reservation_rejected"
	NotifReservationCancelled NotificationType = "reservation_cancelled"
	NotifSpaceDeactivated     NotificationType = "space_deactivated"
)

type Notification struct {
	ID        int64             `json:"id"`
	UserID    int64             `json:"user_id" gorm:"not null;index"`
	Type      NotificationType  `json:"type" gorm:"type:varchar(40)"`
	Level     NotificationLevel `json:"level" gorm:"type:varchar(10);not null;default:INFO"`
	Title     string            `json:"title" gorm:"size:200;not null"`
	Message   string            `json:"message,omitempty" gorm:"type:text"`
	Link      string            `json:"link,omitempty" gorm:"size:255"`
	IsRead    bool              `json:"is_read" gorm:"not null;default:false;index"`
	Data      datatypes.JSON    `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
