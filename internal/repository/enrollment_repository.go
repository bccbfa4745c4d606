package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/pkg/database"
)

const enrollmentColumns = `id, person_id, course_id, enrollment_date, amount_charged, payment_status, due_date, created_at, updated_at`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments matching the filter, newest first.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	var conditions []string
	var args []interface{}

	if filter.PersonID != "" {
		args = append(args, filter.PersonID)
		conditions = append(conditions, fmt.Sprintf("person_id = $%d", len(args)))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("payment_status = $%d", len(args)))
	}
	if !filter.DueBefore.IsZero() {
		args = append(args, filter.DueBefore)
		conditions = append(conditions, fmt.Sprintf("due_date < $%d", len(args)))
	}

	query := `SELECT ` + enrollmentColumns + ` FROM enrollments`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY enrollment_date DESC, created_at DESC"

	enrollments := []models.Enrollment{}
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		if database.IsInvalidTextRepresentation(err) {
			return []models.Enrollment{}, nil
		}
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// FindByID returns an enrollment by its ID. It returns sql.ErrNoRows when absent.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, byIDErr(err)
	}
	return &enrollment, nil
}

// ExistsForPersonCourse checks whether the person is already enrolled in the course.
func (r *EnrollmentRepository) ExistsForPersonCourse(ctx context.Context, exec sqlx.ExtContext, personID, courseID string) (bool, error) {
	found, err := exists(ctx, pick(r.db, exec), `SELECT 1 FROM enrollments WHERE person_id = $1 AND course_id = $2 LIMIT 1`, personID, courseID)
	if err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return found, nil
}

// ExistsForCourse checks whether any enrollment references the course.
func (r *EnrollmentRepository) ExistsForCourse(ctx context.Context, courseID string) (bool, error) {
	found, err := exists(ctx, r.db, `SELECT 1 FROM enrollments WHERE course_id = $1 LIMIT 1`, courseID)
	if err != nil {
		return false, fmt.Errorf("check course enrollments: %w", err)
	}
	return found, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.PaymentStatus == "" {
		enrollment.PaymentStatus = models.PaymentStatusPending
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	const query = `INSERT INTO enrollments (id, person_id, course_id, enrollment_date, amount_charged, payment_status, due_date, created_at, updated_at)
        VALUES (:id, :person_id, :course_id, :enrollment_date, :amount_charged, :payment_status, :due_date, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, pick(r.db, exec), query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdatePaymentStatus overwrites the payment status. It returns sql.ErrNoRows when absent.
func (r *EnrollmentRepository) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	const query = `UPDATE enrollments SET payment_status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		if database.IsInvalidTextRepresentation(err) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("update payment status: %w", err)
	}
	return expectAffected(res, "update payment status")
}

// Delete removes an enrollment. It returns sql.ErrNoRows when absent.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		if database.IsInvalidTextRepresentation(err) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return expectAffected(res, "delete enrollment")
}

// MarkOverdue flips every PENDING enrollment due before today to OVERDUE and returns the number changed.
func (r *EnrollmentRepository) MarkOverdue(ctx context.Context, today models.Date) (int64, error) {
	const query = `UPDATE enrollments SET payment_status = $1, updated_at = $2 WHERE payment_status = $3 AND due_date < $4`
	res, err := r.db.ExecContext(ctx, query, models.PaymentStatusOverdue, time.Now().UTC(), models.PaymentStatusPending, today)
	if err != nil {
		return 0, fmt.Errorf("mark overdue enrollments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark overdue rows affected: %w", err)
	}
	return n, nil
}
