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

const personColumns = `id, full_name, national_id, birth_date, email, phone, created_at, updated_at`

// PersonRepository manages persistence for people.
type PersonRepository struct {
	db *sqlx.DB
}

// NewPersonRepository constructs a PersonRepository.
func NewPersonRepository(db *sqlx.DB) *PersonRepository {
	return &PersonRepository{db: db}
}

// List returns every person ordered by name.
func (r *PersonRepository) List(ctx context.Context) ([]models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people ORDER BY full_name, id`
	people := []models.Person{}
	if err := r.db.SelectContext(ctx, &people, query); err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	return people, nil
}

// FindByID fetches a person by ID. It returns sql.ErrNoRows when absent.
func (r *PersonRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE id = $1`
	var person models.Person
	if err := sqlx.GetContext(ctx, pick(r.db, exec), &person, query, id); err != nil {
		return nil, byIDErr(err)
	}
	return &person, nil
}

// FindByIDs fetches the people with the given IDs keyed by ID.
func (r *PersonRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.Person, error) {
	result := make(map[string]models.Person, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	query := `SELECT ` + personColumns + ` FROM people WHERE id = ANY($1)`
	var people []models.Person
	if err := r.db.SelectContext(ctx, &people, query, pq.Array(ids)); err != nil {
		if database.IsInvalidTextRepresentation(err) {
			return result, nil
		}
		return nil, fmt.Errorf("find people by ids: %w", err)
	}
	for _, p := range people {
		result[p.ID] = p
	}
	return result, nil
}

// FindByNationalID fetches a person by national ID. It returns sql.ErrNoRows when absent.
func (r *PersonRepository) FindByNationalID(ctx context.Context, nationalID string) (*models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE national_id = $1`
	var person models.Person
	if err := r.db.GetContext(ctx, &person, query, nationalID); err != nil {
		return nil, err
	}
	return &person, nil
}

// Create inserts a new person assigning its ID.
func (r *PersonRepository) Create(ctx context.Context, person *models.Person) error {
	if person.ID == "" {
		person.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if person.CreatedAt.IsZero() {
		person.CreatedAt = now
	}
	person.UpdatedAt = now
	const query = `INSERT INTO people (id, full_name, national_id, birth_date, email, phone, created_at, updated_at)
        VALUES (:id, :full_name, :national_id, :birth_date, :email, :phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, person); err != nil {
		return fmt.Errorf("create person: %w", err)
	}
	return nil
}

// Update replaces every mutable field. It returns sql.ErrNoRows when the person does not exist.
func (r *PersonRepository) Update(ctx context.Context, person *models.Person) error {
	person.UpdatedAt = time.Now().UTC()
	const query = `UPDATE people SET full_name = :full_name, national_id = :national_id, birth_date = :birth_date, email = :email, phone = :phone, updated_at = :updated_at
        WHERE id = :id RETURNING created_at`
	rows, err := r.db.NamedQueryContext(ctx, query, person)
	if err != nil {
		if database.IsInvalidTextRepresentation(err) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("update person: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			if database.IsInvalidTextRepresentation(err) {
				return sql.ErrNoRows
			}
			return fmt.Errorf("update person: %w", err)
		}
		return sql.ErrNoRows
	}
	if err := rows.Scan(&person.CreatedAt); err != nil {
		return fmt.Errorf("scan person: %w", err)
	}
	return nil
}

// Delete removes a person. It returns sql.ErrNoRows when the person does not exist.
func (r *PersonRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM people WHERE id = $1`, id)
	if err != nil {
		if database.IsInvalidTextRepresentation(err) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("delete person: %w", err)
	}
	return expectAffected(res, "delete person")
}
