package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the billing state of an enrollment.
type PaymentStatus string

// Possible payment statuses.
const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusOverdue PaymentStatus = "OVERDUE"
)

var legacyPaymentStatuses = map[string]PaymentStatus{
	"PENDENTE": PaymentStatusPending,
	"PAGO":     PaymentStatusPaid,
	"ATRASADO": PaymentStatusOverdue,
}

// ParsePaymentStatus resolves a case-insensitive status name. Legacy
// Portuguese names are accepted as aliases.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	switch PaymentStatus(name) {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusOverdue:
		return PaymentStatus(name), nil
	}
	if status, ok := legacyPaymentStatuses[name]; ok {
		return status, nil
	}
	return "", fmt.Errorf("unknown payment status %q", raw)
}

// Enrollment links one person to one course.
type Enrollment struct {
	ID             string          `db:"id" json:"id"`
	PersonID       string          `db:"person_id" json:"person_id"`
	CourseID       string          `db:"course_id" json:"course_id"`
	EnrollmentDate Date            `db:"enrollment_date" json:"enrollment_date"`
	AmountCharged  decimal.Decimal `db:"amount_charged" json:"amount_charged"`
	PaymentStatus  PaymentStatus   `db:"payment_status" json:"payment_status"`
	DueDate        Date            `db:"due_date" json:"due_date"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail is the read projection joining an enrollment with its person and course.
type EnrollmentDetail struct {
	ID             string          `json:"id"`
	Person         PersonSummary   `json:"person"`
	Course         CourseSummary   `json:"course"`
	EnrollmentDate Date            `json:"enrollment_date"`
	AmountCharged  decimal.Decimal `json:"amount_charged"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	DueDate        Date            `json:"due_date"`
}

// NewEnrollmentDetail assembles the projection from its parts.
func NewEnrollmentDetail(e Enrollment, p Person, c Course) EnrollmentDetail {
	return EnrollmentDetail{
		ID:             e.ID,
		Person:         p.Summary(),
		Course:         c.Summary(),
		EnrollmentDate: e.EnrollmentDate,
		AmountCharged:  e.AmountCharged,
		PaymentStatus:  e.PaymentStatus,
		DueDate:        e.DueDate,
	}
}

// EnrollmentFilter narrows enrollment listings. Empty fields are ignored.
type EnrollmentFilter struct {
	PersonID  string
	CourseID  string
	Status    PaymentStatus
	DueBefore Date
}
