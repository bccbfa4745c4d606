package models

import "time"

// Person is a student registered with the school.
type Person struct {
	ID         string    `db:"id" json:"id"`
	FullName   string    `db:"full_name" json:"full_name" validate:"required,max=100"`
	NationalID *string   `db:"national_id" json:"national_id" validate:"omitempty,max=14"`
	BirthDate  Date      `db:"birth_date" json:"birth_date"`
	Email      string    `db:"email" json:"email" validate:"omitempty,email,max=100"`
	Phone      string    `db:"phone" json:"phone" validate:"omitempty,max=20"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// NationalIDValue returns the national ID or "" when absent.
func (p Person) NationalIDValue() string {
	if p.NationalID == nil {
		return ""
	}
	return *p.NationalID
}

// SameIdentity compares people by (id, national ID).
func (p Person) SameIdentity(other Person) bool {
	return p.ID == other.ID && p.NationalIDValue() == other.NationalIDValue()
}

// PersonSummary is the person view embedded in enrollment projections.
type PersonSummary struct {
	ID         string  `json:"id"`
	FullName   string  `json:"full_name"`
	NationalID *string `json:"national_id"`
	BirthDate  Date    `json:"birth_date"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone"`
}

// Summary projects the person for enrollment views.
func (p Person) Summary() PersonSummary {
	return PersonSummary{
		ID:         p.ID,
		FullName:   p.FullName,
		NationalID: p.NationalID,
		BirthDate:  p.BirthDate,
		Email:      p.Email,
		Phone:      p.Phone,
	}
}
