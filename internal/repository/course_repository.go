package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/pkg/database"
)

const courseColumns = `id, name, description, price, duration_hours, active, created_at, updated_at`

// CourseRepository manages persistence for courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses ordered by name, optionally restricted to an active state.
func (r *CourseRepository) List(ctx context.Context, active *bool) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses`
	var args []interface{}
	if active != nil {
		query += ` WHERE active = $1`
		args = append(args, *active)
	}
	query += ` ORDER BY name, id`
	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID fetches a course by ID. It returns sql.ErrNoRows when absent.
func (r *CourseRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	var course models.Course
	if err := sqlx.GetContext(ctx, pick(r.db, exec), &course, query, id); err != nil {
		return nil, byIDErr(err)
	}
	return &course, nil
}

// FindByIDs fetches the courses with the given IDs keyed by ID.
func (r *CourseRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.Course, error) {
	result := make(map[string]models.Course, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = ANY($1)`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, pq.Array(ids)); err != nil {
		if database.IsInvalidTextRepresentation(err) {
			return result, nil
		}
		return nil, fmt.Errorf("find courses by ids: %w", err)
	}
	for _, c := range courses {
		result[c.ID] = c
	}
	return result, nil
}

// Create inserts a course assigning its ID.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, name, description, price, duration_hours, active, created_at, updated_at)
        VALUES (:id, :name, :description, :price, :duration_hours, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update replaces every mutable field. It returns sql.ErrNoRows when the course does not exist.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = :name, description = :description, price = :price, duration_hours = :duration_hours, active = :active, updated_at = :updated_at
        WHERE id = :id RETURNING created_at`
	rows, err := r.db.NamedQueryContext(ctx, query, course)
	if err != nil {
		if database.IsInvalidTextRepresentation(err) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("update course: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			if database.IsInvalidTextRepresentation(err) {
				return sql.ErrNoRows
			}
			return fmt.Errorf("update course: %w", err)
		}
		return sql.ErrNoRows
	}
	if err := rows.Scan(&course.CreatedAt); err != nil {
		return fmt.Errorf("scan course: %w", err)
	}
	return nil
}

// Delete removes a course. It returns sql.ErrNoRows when the course does not exist.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		if database.IsInvalidTextRepresentation(err) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("delete course: %w", err)
	}
	return expectAffected(res, "delete course")
}
