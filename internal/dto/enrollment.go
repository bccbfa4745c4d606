package dto

// UpdatePaymentStatusRequest carries the new payment status name.
type UpdatePaymentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// EnrollmentListQuery holds the optional filters of GET /enrollments.
type EnrollmentListQuery struct {
	CourseID  string `form:"cursoId"`
	Status    string `form:"status"`
	DueBefore string `form:"dueBefore"`
}

// StatementQuery selects the statement document format.
type StatementQuery struct {
	Format string `form:"format"`
}
