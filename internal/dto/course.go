package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/school-admin-api/internal/models"
)

// CourseRequest is the payload for creating or replacing a course. An absent
// active flag means the course is open for enrollment.
type CourseRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	DurationHours *int            `json:"duration_hours"`
	Active        *bool           `json:"active"`
}

// ToModel builds the course to save; id is empty for creation.
func (r CourseRequest) ToModel(id string) models.Course {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return models.Course{
		ID:            id,
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		DurationHours: r.DurationHours,
		Active:        active,
	}
}
