package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type mockPersonRepo struct {
	people    map[string]models.Person
	seq       int
	createErr error
	deleteErr error
	deleted   []string
}

func newMockPersonRepo() *mockPersonRepo {
	return &mockPersonRepo{people: map[string]models.Person{}}
}

func (m *mockPersonRepo) List(ctx context.Context) ([]models.Person, error) {
	out := make([]models.Person, 0, len(m.people))
	for _, p := range m.people {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (m *mockPersonRepo) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Person, error) {
	if p, ok := m.people[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPersonRepo) FindByIDs(ctx context.Context, ids []string) (map[string]models.Person, error) {
	out := make(map[string]models.Person, len(ids))
	for _, id := range ids {
		if p, ok := m.people[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *mockPersonRepo) FindByNationalID(ctx context.Context, nationalID string) (*models.Person, error) {
	for _, p := range m.people {
		if p.NationalIDValue() == nationalID {
			found := p
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockPersonRepo) Create(ctx context.Context, person *models.Person) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	person.ID = fmt.Sprintf("person-%d", m.seq)
	m.people[person.ID] = *person
	return nil
}

func (m *mockPersonRepo) Update(ctx context.Context, person *models.Person) error {
	if _, ok := m.people[person.ID]; !ok {
		return sql.ErrNoRows
	}
	m.people[person.ID] = *person
	return nil
}

func (m *mockPersonRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.people[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.people, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockCourseRepo struct {
	courses   map[string]models.Course
	seq       int
	listCalls int
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: map[string]models.Course{}}
}

func (m *mockCourseRepo) List(ctx context.Context, active *bool) ([]models.Course, error) {
	m.listCalls++
	out := []models.Course{}
	for _, c := range m.courses {
		if active == nil || c.Active == *active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) FindByIDs(ctx context.Context, ids []string) (map[string]models.Course, error) {
	out := make(map[string]models.Course, len(ids))
	for _, id := range ids {
		if c, ok := m.courses[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	m.seq++
	course.ID = fmt.Sprintf("course-%d", m.seq)
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	if _, ok := m.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.courses, id)
	return nil
}

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	seq         int
	createErr   error
	lastFilter  models.EnrollmentFilter
	marked      []models.Date
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{}}
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	m.lastFilter = filter
	out := []models.Enrollment{}
	for _, e := range m.enrollments {
		if filter.PersonID != "" && e.PersonID != filter.PersonID {
			continue
		}
		if filter.CourseID != "" && e.CourseID != filter.CourseID {
			continue
		}
		if filter.Status != "" && e.PaymentStatus != filter.Status {
			continue
		}
		if !filter.DueBefore.IsZero() && !e.DueDate.Before(filter.DueBefore) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) ExistsForPersonCourse(ctx context.Context, exec sqlx.ExtContext, personID, courseID string) (bool, error) {
	for _, e := range m.enrollments {
		if e.PersonID == personID && e.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEnrollmentRepo) ExistsForCourse(ctx context.Context, courseID string) (bool, error) {
	for _, e := range m.enrollments {
		if e.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	enrollment.ID = fmt.Sprintf("enrollment-%d", m.seq)
	m.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (m *mockEnrollmentRepo) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	e, ok := m.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.PaymentStatus = status
	m.enrollments[id] = e
	return nil
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.enrollments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.enrollments, id)
	return nil
}

func (m *mockEnrollmentRepo) MarkOverdue(ctx context.Context, today models.Date) (int64, error) {
	m.marked = append(m.marked, today)
	var n int64
	for id, e := range m.enrollments {
		if e.PaymentStatus == models.PaymentStatusPending && e.DueDate.Before(today) {
			e.PaymentStatus = models.PaymentStatusOverdue
			m.enrollments[id] = e
			n++
		}
	}
	return n, nil
}

type mockCacheRepo struct {
	store      map[string]interface{}
	gets       int
	invalidate []string
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{store: map[string]interface{}{}}
}

func (m *mockCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.gets++
	value, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	courses, ok := value.([]models.Course)
	if !ok {
		return fmt.Errorf("unexpected cached type %T", value)
	}
	*(dest.(*[]models.Course)) = courses
	return nil
}

func (m *mockCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.store[key] = value
	return nil
}

func (m *mockCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.invalidate = append(m.invalidate, pattern)
	m.store = map[string]interface{}{}
	return nil
}

// newTxDB returns a sqlx handle whose transactions are scripted through mock.
func newTxDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func fixedClock(raw string) func() time.Time {
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return ts }
}
