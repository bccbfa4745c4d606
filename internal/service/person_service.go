package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/pkg/database"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

const nationalIDConstraint = "people_national_id_key"

type personRepository interface {
	List(ctx context.Context) ([]models.Person, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Person, error)
	FindByNationalID(ctx context.Context, nationalID string) (*models.Person, error)
	Create(ctx context.Context, person *models.Person) error
	Update(ctx context.Context, person *models.Person) error
	Delete(ctx context.Context, id string) error
}

// PersonService handles person registration use-cases.
type PersonService struct {
	repo      personRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPersonService constructs the person service.
func NewPersonService(repo personRepository, validate *validator.Validate, logger *zap.Logger) *PersonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersonService{repo: repo, validator: validate, logger: logger}
}

// Save inserts a person without an ID or updates the one with the given ID.
// A national ID already held by another person is rejected.
func (s *PersonService) Save(ctx context.Context, person models.Person) (*models.Person, error) {
	person.FullName = strings.TrimSpace(person.FullName)
	if person.NationalID != nil {
		trimmed := strings.TrimSpace(*person.NationalID)
		if trimmed == "" {
			person.NationalID = nil
		} else {
			person.NationalID = &trimmed
		}
	}
	if err := s.validator.Struct(person); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid person payload")
	}

	if person.NationalID != nil {
		holder, err := s.repo.FindByNationalID(ctx, *person.NationalID)
		switch {
		case err == nil:
			if person.ID == "" || holder.ID != person.ID {
				return nil, appErrors.Clone(appErrors.ErrDuplicateKey, "national ID already registered")
			}
		case !errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Internal(err, "failed to check national ID")
		}
	}

	if person.ID == "" {
		if err := s.repo.Create(ctx, &person); err != nil {
			return nil, s.mapWriteError(err, "failed to create person")
		}
		s.logger.Info("person created", zap.String("person_id", person.ID))
		return &person, nil
	}

	if err := s.repo.Update(ctx, &person); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "person not found")
		}
		return nil, s.mapWriteError(err, "failed to update person")
	}
	return &person, nil
}

func (s *PersonService) mapWriteError(err error, message string) error {
	if database.IsUniqueViolation(err, nationalIDConstraint) {
		return appErrors.Clone(appErrors.ErrDuplicateKey, "national ID already registered")
	}
	return appErrors.Internal(err, message)
}

// FindByID returns the person or nil when absent.
func (s *PersonService) FindByID(ctx context.Context, id string) (*models.Person, error) {
	person, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to load person")
	}
	return person, nil
}

// FindByNationalID returns the person holding nationalID or nil when absent.
func (s *PersonService) FindByNationalID(ctx context.Context, nationalID string) (*models.Person, error) {
	nationalID = strings.TrimSpace(nationalID)
	if nationalID == "" {
		return nil, nil
	}
	person, err := s.repo.FindByNationalID(ctx, nationalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to load person")
	}
	return person, nil
}

// ListAll returns every person ordered by name.
func (s *PersonService) ListAll(ctx context.Context) ([]models.Person, error) {
	people, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list people")
	}
	return people, nil
}

// Delete removes a person. Enrollments are not consulted here; if the store
// refuses because enrollments still reference the person, Conflict is returned.
func (s *PersonService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "person not found")
		case database.IsForeignKeyViolation(err, ""):
			return appErrors.Clone(appErrors.ErrConflict, "person has dependent enrollments")
		default:
			return appErrors.Internal(err, "failed to delete person")
		}
	}
	s.logger.Info("person deleted", zap.String("person_id", id))
	return nil
}
