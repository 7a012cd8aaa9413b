package inventory

import "campusreserve/internal/domain"

type SpaceRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Location string `json:"location" validate:"max=200"`
	Capacity int    `json:"capacity" validate:"gte=0"`
	IsActive *bool  `json:"is_active"`
}

type ResourceRequest struct {
	Name  string  `json:"name" validate:"required,min=2,max=100"`
	Code  *string `json:"code" validate:"omitempty,max=50"`
	Stock int     `json:"stock" validate:"gte=0"`
}

type AvailabilityRequest struct {
	Date  string `form:"date" json:"date" validate:"required,date"`
	Start string `form:"start" json:"start" validate:"required,clock"`
	End   string `form:"end" json:"end" validate:"required,clock"`
}

type Availability struct {
	ResourceID int64  `json:"resource_id"`
	Stock      int    `json:"stock"`
	Available  int    `json:"available"`
	Date       string `json:"date"`
	Start      string `json:"start"`
	End        string `json:"end"`
}

// DeactivationResult lists the reservations cancelled because their space
// went out of service.
type DeactivationResult struct {
	Space     *domain.Space        `json:"space"`
	Cancelled []domain.Reservation `json:"cancelled"`
}
