package dto

import "github.com/noah-isme/school-admin-api/internal/models"

// PersonRequest is the payload for creating or replacing a person.
type PersonRequest struct {
	FullName   string      `json:"full_name"`
	NationalID *string     `json:"national_id"`
	BirthDate  models.Date `json:"birth_date"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone"`
}

// ToModel builds the person to save; id is empty for creation.
func (r PersonRequest) ToModel(id string) models.Person {
	return models.Person{
		ID:         id,
		FullName:   r.FullName,
		NationalID: r.NationalID,
		BirthDate:  r.BirthDate,
		Email:      r.Email,
		Phone:      r.Phone,
	}
}
