package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits kept for monetary values.
const MoneyScale = 2

// Course is an offering students can enroll in.
type Course struct {
	ID            string          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Description   string          `db:"description" json:"description"`
	Price         decimal.Decimal `db:"price" json:"price"`
	DurationHours *int            `db:"duration_hours" json:"duration_hours"`
	Active        bool            `db:"active" json:"active"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// CourseSummary is the course view embedded in enrollment projections.
type CourseSummary struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	DurationHours *int            `json:"duration_hours"`
	Active        bool            `json:"active"`
}

// Summary projects the course for enrollment views.
func (c Course) Summary() CourseSummary {
	return CourseSummary{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		Price:         c.Price,
		DurationHours: c.DurationHours,
		Active:        c.Active,
	}
}

// RoundMoney normalises a monetary amount to MoneyScale digits.
func RoundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(MoneyScale)
}
