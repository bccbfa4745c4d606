package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/pkg/database"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/export"
)

const personCourseConstraint = "enrollments_person_course_key"

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ExistsForPersonCourse(ctx context.Context, exec sqlx.ExtContext, personID, courseID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error
	Delete(ctx context.Context, id string) error
}

type enrollmentPersonReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Person, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Person, error)
}

type enrollmentCourseReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Course, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Course, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type statementRenderer interface {
	Render(format export.Format, data export.Dataset) ([]byte, error)
}

// EnrollRequest is the payload for enrolling a person in a course.
type EnrollRequest struct {
	PersonID      string           `json:"alunoId" validate:"required"`
	CourseID      string           `json:"cursoId" validate:"required"`
	AmountCharged *decimal.Decimal `json:"valorCobrado" validate:"required"`
	DueDate       *models.Date     `json:"dataVencimento" validate:"required"`
}

// Statement is a rendered enrollment statement.
type Statement struct {
	Filename    string
	ContentType string
	Body        []byte
}

// EnrollmentService runs the enrollment workflow and its read projections.
type EnrollmentService struct {
	repo      enrollmentRepository
	people    enrollmentPersonReader
	courses   enrollmentCourseReader
	tx        txProvider
	renderer  statementRenderer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	location  *time.Location
}

// EnrollmentServiceParams groups constructor dependencies.
type EnrollmentServiceParams struct {
	Repo      enrollmentRepository
	People    enrollmentPersonReader
	Courses   enrollmentCourseReader
	Tx        txProvider
	Renderer  statementRenderer
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	// Now is the clock used for enrollment dates; defaults to time.Now.
	Now func() time.Time
	// Location is the school time zone that decides the calendar day.
	Location *time.Location
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(params EnrollmentServiceParams) *EnrollmentService {
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.Location == nil {
		params.Location = time.UTC
	}
	if params.Renderer == nil {
		params.Renderer = export.NewRegistry()
	}
	return &EnrollmentService{
		repo:      params.Repo,
		people:    params.People,
		courses:   params.Courses,
		tx:        params.Tx,
		renderer:  params.Renderer,
		metrics:   params.Metrics,
		validator: params.Validator,
		logger:    params.Logger,
		now:       params.Now,
		location:  params.Location,
	}
}

// Enroll registers a person in a course. All checks and the insert run in one
// transaction; any failure leaves no enrollment behind.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (_ *models.Enrollment, err error) {
	start := time.Now()
	outcome := EnrollOutcomeError
	defer func() {
		s.metrics.ObserveDBQuery("enroll", time.Since(start))
		s.metrics.RecordEnrollment(outcome)
	}()

	if verr := s.validator.Struct(req); verr != nil {
		outcome = EnrollOutcomeInvalid
		return nil, appErrors.Wrap(verr, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = s.people.FindByID(ctx, tx, req.PersonID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			outcome = EnrollOutcomePersonMissing
			return nil, appErrors.Clone(appErrors.ErrNotFound, "person not found")
		}
		return nil, appErrors.Internal(err, "failed to load person")
	}

	course, err := s.courses.FindByID(ctx, tx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			outcome = EnrollOutcomeCourseMissing
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}
	if !course.Active {
		outcome = EnrollOutcomeInactiveCourse
		return nil, appErrors.Clone(appErrors.ErrBusinessRule, "cannot enroll in an inactive course")
	}

	exists, err := s.repo.ExistsForPersonCourse(ctx, tx, req.PersonID, req.CourseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check existing enrollment")
	}
	if exists {
		outcome = EnrollOutcomeDuplicate
		return nil, appErrors.Clone(appErrors.ErrBusinessRule, "already enrolled in this course")
	}

	enrollment := &models.Enrollment{
		PersonID:       req.PersonID,
		CourseID:       req.CourseID,
		EnrollmentDate: models.NewDate(s.now().In(s.location)),
		AmountCharged:  models.RoundMoney(*req.AmountCharged),
		PaymentStatus:  models.PaymentStatusPending,
		DueDate:        *req.DueDate,
	}
	if err = s.repo.Create(ctx, tx, enrollment); err != nil {
		if database.IsUniqueViolation(err, personCourseConstraint) {
			outcome = EnrollOutcomeDuplicate
			return nil, appErrors.Clone(appErrors.ErrBusinessRule, "already enrolled in this course")
		}
		return nil, appErrors.Internal(err, "failed to create enrollment")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Internal(err, "failed to commit enrollment")
	}
	outcome = EnrollOutcomeCreated

	s.logger.Info("enrollment created",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("person_id", enrollment.PersonID),
		zap.String("course_id", enrollment.CourseID),
		zap.String("due_date", enrollment.DueDate.String()),
	)
	return enrollment, nil
}

// FindByID returns the enrollment projection or nil when absent.
func (s *EnrollmentService) FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to load enrollment")
	}
	details, err := s.project(ctx, []models.Enrollment{*enrollment})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// ListByPerson returns the person's enrollments, newest first.
func (s *EnrollmentService) ListByPerson(ctx context.Context, personID string) ([]models.EnrollmentDetail, error) {
	return s.List(ctx, models.EnrollmentFilter{PersonID: personID})
}

// List returns enrollment projections matching filter.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list enrollments")
	}
	return s.project(ctx, enrollments)
}

// project joins enrollments with their people and courses.
func (s *EnrollmentService) project(ctx context.Context, enrollments []models.Enrollment) ([]models.EnrollmentDetail, error) {
	details := make([]models.EnrollmentDetail, 0, len(enrollments))
	if len(enrollments) == 0 {
		return details, nil
	}

	personIDs := make([]string, 0, len(enrollments))
	courseIDs := make([]string, 0, len(enrollments))
	seenPeople := make(map[string]struct{}, len(enrollments))
	seenCourses := make(map[string]struct{}, len(enrollments))
	for _, e := range enrollments {
		if _, ok := seenPeople[e.PersonID]; !ok {
			seenPeople[e.PersonID] = struct{}{}
			personIDs = append(personIDs, e.PersonID)
		}
		if _, ok := seenCourses[e.CourseID]; !ok {
			seenCourses[e.CourseID] = struct{}{}
			courseIDs = append(courseIDs, e.CourseID)
		}
	}

	people, err := s.people.FindByIDs(ctx, personIDs)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load enrolled people")
	}
	courses, err := s.courses.FindByIDs(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load enrolled courses")
	}

	for _, e := range enrollments {
		person, ok := people[e.PersonID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("enrollment %s references missing person", e.ID))
		}
		course, ok := courses[e.CourseID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("enrollment %s references missing course", e.ID))
		}
		details = append(details, models.NewEnrollmentDetail(e, person, course))
	}
	return details, nil
}

// UpdatePaymentStatus sets the payment status. Every transition is allowed.
func (s *EnrollmentService) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (*models.EnrollmentDetail, error) {
	status, err := models.ParsePaymentStatus(string(status))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment status")
	}
	if err := s.repo.UpdatePaymentStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Internal(err, "failed to update payment status")
	}
	s.logger.Info("payment status updated", zap.String("enrollment_id", id), zap.String("status", string(status)))
	detail, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	return detail, nil
}

// Cancel deletes an enrollment regardless of its payment status.
func (s *EnrollmentService) Cancel(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Internal(err, "failed to cancel enrollment")
	}
	s.logger.Info("enrollment cancelled", zap.String("enrollment_id", id))
	return nil
}

// Statement renders the person's enrollments as a downloadable document.
func (s *EnrollmentService) Statement(ctx context.Context, personID, format string) (*Statement, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid statement format")
	}
	person, err := s.people.FindByID(ctx, nil, personID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "person not found")
		}
		return nil, appErrors.Internal(err, "failed to load person")
	}
	details, err := s.ListByPerson(ctx, personID)
	if err != nil {
		return nil, err
	}

	body, err := s.renderer.Render(f, statementDataset(*person, details, s.now().In(s.location)))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render statement")
	}
	return &Statement{
		Filename:    fmt.Sprintf("statement-%s.%s", person.ID, f.Extension()),
		ContentType: f.ContentType(),
		Body:        body,
	}, nil
}

func statementDataset(person models.Person, details []models.EnrollmentDetail, at time.Time) export.Dataset {
	total := decimal.Zero
	outstanding := decimal.Zero
	rows := make([][]string, 0, len(details))
	for _, d := range details {
		total = total.Add(d.AmountCharged)
		if d.PaymentStatus != models.PaymentStatusPaid {
			outstanding = outstanding.Add(d.AmountCharged)
		}
		rows = append(rows, []string{
			d.Course.Name,
			d.EnrollmentDate.String(),
			d.DueDate.String(),
			d.AmountCharged.StringFixed(models.MoneyScale),
			string(d.PaymentStatus),
		})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Enrollment statement - %s (%s)", person.FullName, at.Format(models.DateLayout)),
		Headers: []string{"Course", "Enrolled", "Due", "Amount", "Status"},
		Rows:    rows,
		Footer: []string{
			"Total",
			"",
			"",
			total.StringFixed(models.MoneyScale),
			"Outstanding " + outstanding.StringFixed(models.MoneyScale),
		},
	}
}
