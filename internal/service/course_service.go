package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/pkg/database"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, active *bool) ([]models.Course, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

type courseEnrollmentChecker interface {
	ExistsForCourse(ctx context.Context, courseID string) (bool, error)
}

// CourseService manages the course catalog.
type CourseService struct {
	repo        courseRepository
	enrollments courseEnrollmentChecker
	cache       *CacheService
	logger      *zap.Logger
}

// NewCourseService constructs the course service. cache may be nil.
func NewCourseService(repo courseRepository, enrollments courseEnrollmentChecker, cache *CacheService, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, enrollments: enrollments, cache: cache, logger: logger}
}

// Save inserts a course without an ID or replaces the one with the given ID.
func (s *CourseService) Save(ctx context.Context, course models.Course) (*models.Course, error) {
	course.Price = models.RoundMoney(course.Price)
	if course.ID == "" {
		if err := s.repo.Create(ctx, &course); err != nil {
			return nil, appErrors.Internal(err, "failed to create course")
		}
		s.logger.Info("course created", zap.String("course_id", course.ID))
	} else if err := s.repo.Update(ctx, &course); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to update course")
	}
	s.invalidate(ctx)
	return &course, nil
}

// FindByID returns the course or nil when absent.
func (s *CourseService) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}
	return course, nil
}

// ListAll returns every course.
func (s *CourseService) ListAll(ctx context.Context) ([]models.Course, error) {
	return s.list(ctx, nil)
}

// ListActive returns active courses, served from cache when possible. The
// second result reports a cache hit.
func (s *CourseService) ListActive(ctx context.Context) ([]models.Course, bool, error) {
	var cached []models.Course
	if hit, _ := s.cache.Get(ctx, courseCacheActiveKey, &cached); hit {
		return cached, true, nil
	}
	active := true
	courses, err := s.list(ctx, &active)
	if err != nil {
		return nil, false, err
	}
	_ = s.cache.Set(ctx, courseCacheActiveKey, courses, 0)
	return courses, false, nil
}

// ListInactive returns courses that are closed to enrollment.
func (s *CourseService) ListInactive(ctx context.Context) ([]models.Course, error) {
	inactive := false
	return s.list(ctx, &inactive)
}

func (s *CourseService) list(ctx context.Context, active *bool) ([]models.Course, error) {
	courses, err := s.repo.List(ctx, active)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list courses")
	}
	return courses, nil
}

// SetActive opens or closes a course for enrollment.
func (s *CourseService) SetActive(ctx context.Context, id string, active bool) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}
	course.Active = active
	if err := s.repo.Update(ctx, course); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to update course")
	}
	s.invalidate(ctx)
	s.logger.Info("course status changed", zap.String("course_id", id), zap.Bool("active", active))
	return course, nil
}

// Delete removes a course that no enrollment references.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, nil, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Internal(err, "failed to load course")
	}
	referenced, err := s.enrollments.ExistsForCourse(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to check course enrollments")
	}
	if referenced {
		return appErrors.Clone(appErrors.ErrConflict, "course has dependent enrollments")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		case database.IsForeignKeyViolation(err, ""):
			return appErrors.Clone(appErrors.ErrConflict, "course has dependent enrollments")
		default:
			return appErrors.Internal(err, "failed to delete course")
		}
	}
	s.invalidate(ctx)
	s.logger.Info("course deleted", zap.String("course_id", id))
	return nil
}

func (s *CourseService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, courseCachePattern)
}
