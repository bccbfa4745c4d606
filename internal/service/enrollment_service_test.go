package service

import (
	"context"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/repository"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type enrollmentFixture struct {
	svc         *EnrollmentService
	people      *mockPersonRepo
	courses     *mockCourseRepo
	enrollments *mockEnrollmentRepo
	metrics     *MetricsService
	tx          sqlmock.Sqlmock
}

func newEnrollmentFixture(t *testing.T) *enrollmentFixture {
	t.Helper()
	db, mock := newTxDB(t)
	saoPaulo, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	f := &enrollmentFixture{
		people:      newMockPersonRepo(),
		courses:     newMockCourseRepo(),
		enrollments: newMockEnrollmentRepo(),
		metrics:     NewMetricsService(),
		tx:          mock,
	}
	f.svc = NewEnrollmentService(EnrollmentServiceParams{
		Repo:     f.enrollments,
		People:   f.people,
		Courses:  f.courses,
		Tx:       db,
		Metrics:  f.metrics,
		Now:      fixedClock("2025-01-05T02:00:00Z"),
		Location: saoPaulo,
	})
	return f
}

func (f *enrollmentFixture) addPerson(name string) models.Person {
	p := models.Person{FullName: name}
	_ = f.people.Create(context.Background(), &p)
	return p
}

func (f *enrollmentFixture) addCourse(name string, active bool) models.Course {
	c := models.Course{Name: name, Price: decimal.RequireFromString("100"), Active: active}
	_ = f.courses.Create(context.Background(), &c)
	return c
}

func enrollReq(personID, courseID, amount, due string) EnrollRequest {
	a := decimal.RequireFromString(amount)
	d := models.MustDate(due)
	return EnrollRequest{PersonID: personID, CourseID: courseID, AmountCharged: &a, DueDate: &d}
}

func TestEnrollCreatesPendingEnrollmentOnSchoolDay(t *testing.T) {
	f := newEnrollmentFixture(t)
	person := f.addPerson("Ana")
	course := f.addCourse("Math", true)
	f.tx.ExpectBegin()
	f.tx.ExpectCommit()

	enrollment, err := f.svc.Enroll(context.Background(), enrollReq(person.ID, course.ID, "100.005", "2025-01-10"))
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPending, enrollment.PaymentStatus)
	assert.Equal(t, "2025-01-04", enrollment.EnrollmentDate.String())
	assert.Equal(t, "2025-01-10", enrollment.DueDate.String())
	assert.Equal(t, "100.01", enrollment.AmountCharged.StringFixed(2))
	assert.Len(t, f.enrollments.enrollments, 1)
	assert.NoError(t, f.tx.ExpectationsWereMet())
}

func TestEnrollFailures(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(f *enrollmentFixture) EnrollRequest
		target  *appErrors.Error
		message string
	}{
		{
			name: "person missing",
			setup: func(f *enrollmentFixture) EnrollRequest {
				course := f.addCourse("Math", true)
				return enrollReq("ghost", course.ID, "100", "2025-01-10")
			},
			target:  appErrors.ErrNotFound,
			message: "person not found",
		},
		{
			name: "course missing",
			setup: func(f *enrollmentFixture) EnrollRequest {
				person := f.addPerson("Ana")
				return enrollReq(person.ID, "ghost", "100", "2025-01-10")
			},
			target:  appErrors.ErrNotFound,
			message: "course not found",
		},
		{
			name: "inactive course",
			setup: func(f *enrollmentFixture) EnrollRequest {
				person := f.addPerson("Ana")
				course := f.addCourse("Math", false)
				return enrollReq(person.ID, course.ID, "100", "2025-01-10")
			},
			target:  appErrors.ErrBusinessRule,
			message: "cannot enroll in an inactive course",
		},
		{
			name: "already enrolled",
			setup: func(f *enrollmentFixture) EnrollRequest {
				person := f.addPerson("Ana")
				course := f.addCourse("Math", true)
				f.enrollments.enrollments["existing"] = models.Enrollment{ID: "existing", PersonID: person.ID, CourseID: course.ID}
				return enrollReq(person.ID, course.ID, "100", "2025-01-10")
			},
			target:  appErrors.ErrBusinessRule,
			message: "already enrolled in this course",
		},
		{
			name: "unique violation on insert",
			setup: func(f *enrollmentFixture) EnrollRequest {
				person := f.addPerson("Ana")
				course := f.addCourse("Math", true)
				f.enrollments.createErr = &pq.Error{Code: "23505", Constraint: personCourseConstraint}
				return enrollReq(person.ID, course.ID, "100", "2025-01-10")
			},
			target:  appErrors.ErrBusinessRule,
			message: "already enrolled in this course",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newEnrollmentFixture(t)
			req := tc.setup(f)
			before := len(f.enrollments.enrollments)
			f.tx.ExpectBegin()
			f.tx.ExpectRollback()

			_, err := f.svc.Enroll(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.target)
			assert.Equal(t, tc.message, appErrors.FromError(err).Message)
			assert.Len(t, f.enrollments.enrollments, before)
			assert.NoError(t, f.tx.ExpectationsWereMet())
		})
	}
}

func TestEnrollInactiveCourseAlwaysRejected(t *testing.T) {
	f := newEnrollmentFixture(t)
	course := f.addCourse("Closed", false)
	for _, name := range []string{"Ana", "Bea", "Carla"} {
		person := f.addPerson(name)
		f.tx.ExpectBegin()
		f.tx.ExpectRollback()
		_, err := f.svc.Enroll(context.Background(), enrollReq(person.ID, course.ID, "0", "2025-01-10"))
		assert.ErrorIs(t, err, appErrors.ErrBusinessRule)
	}
	assert.Empty(t, f.enrollments.enrollments)
}

func TestEnrollValidatesPayload(t *testing.T) {
	f := newEnrollmentFixture(t)
	_, err := f.svc.Enroll(context.Background(), EnrollRequest{PersonID: "p", CourseID: "c"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.NoError(t, f.tx.ExpectationsWereMet())
}

func TestEnrollmentFindByIDProjection(t *testing.T) {
	f := newEnrollmentFixture(t)
	person := f.addPerson("Ana")
	course := f.addCourse("Math", true)
	f.tx.ExpectBegin()
	f.tx.ExpectCommit()
	created, err := f.svc.Enroll(context.Background(), enrollReq(person.ID, course.ID, "100", "2025-01-10"))
	require.NoError(t, err)

	detail, err := f.svc.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "Ana", detail.Person.FullName)
	assert.Equal(t, "Math", detail.Course.Name)
	assert.Equal(t, models.PaymentStatusPending, detail.PaymentStatus)

	missing, err := f.svc.FindByID(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEnrollmentListByPersonAndFilter(t *testing.T) {
	f := newEnrollmentFixture(t)
	ana := f.addPerson("Ana")
	bea := f.addPerson("Bea")
	math := f.addCourse("Math", true)
	art := f.addCourse("Art", true)
	f.enrollments.enrollments["e1"] = models.Enrollment{ID: "e1", PersonID: ana.ID, CourseID: math.ID, PaymentStatus: models.PaymentStatusPending, DueDate: models.MustDate("2025-01-10")}
	f.enrollments.enrollments["e2"] = models.Enrollment{ID: "e2", PersonID: ana.ID, CourseID: art.ID, PaymentStatus: models.PaymentStatusPaid, DueDate: models.MustDate("2025-03-10")}
	f.enrollments.enrollments["e3"] = models.Enrollment{ID: "e3", PersonID: bea.ID, CourseID: math.ID, PaymentStatus: models.PaymentStatusPending, DueDate: models.MustDate("2025-02-10")}

	mine, err := f.svc.ListByPerson(context.Background(), ana.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	none, err := f.svc.ListByPerson(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	filter := models.EnrollmentFilter{CourseID: math.ID, Status: models.PaymentStatusPending, DueBefore: models.MustDate("2025-02-01")}
	due, err := f.svc.List(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "e1", due[0].ID)
	assert.Equal(t, filter, f.enrollments.lastFilter)
}

func TestUpdatePaymentStatusAllowsEveryTransition(t *testing.T) {
	f := newEnrollmentFixture(t)
	person := f.addPerson("Ana")
	course := f.addCourse("Math", true)
	statuses := []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusPaid, models.PaymentStatusOverdue}

	for _, from := range statuses {
		for _, to := range statuses {
			f.enrollments.enrollments["e1"] = models.Enrollment{ID: "e1", PersonID: person.ID, CourseID: course.ID, PaymentStatus: from}
			detail, err := f.svc.UpdatePaymentStatus(context.Background(), "e1", to)
			require.NoError(t, err, "%s -> %s", from, to)
			assert.Equal(t, to, detail.PaymentStatus)
		}
	}
}

func TestUpdatePaymentStatusErrors(t *testing.T) {
	f := newEnrollmentFixture(t)

	_, err := f.svc.UpdatePaymentStatus(context.Background(), "e1", models.PaymentStatus("REFUNDED"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.UpdatePaymentStatus(context.Background(), "ghost", models.PaymentStatusPaid)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestUpdatePaymentStatusNormalisesLegacyName(t *testing.T) {
	f := newEnrollmentFixture(t)
	person := f.addPerson("Ana")
	course := f.addCourse("Math", true)
	f.enrollments.enrollments["e1"] = models.Enrollment{ID: "e1", PersonID: person.ID, CourseID: course.ID, PaymentStatus: models.PaymentStatusPending}

	detail, err := f.svc.UpdatePaymentStatus(context.Background(), "e1", models.PaymentStatus("pago"))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, detail.PaymentStatus)
}

func TestCancelEnrollment(t *testing.T) {
	f := newEnrollmentFixture(t)
	f.enrollments.enrollments["e1"] = models.Enrollment{ID: "e1", PaymentStatus: models.PaymentStatusPaid}

	assert.ErrorIs(t, f.svc.Cancel(context.Background(), "ghost"), appErrors.ErrNotFound)
	require.NoError(t, f.svc.Cancel(context.Background(), "e1"))
	assert.Empty(t, f.enrollments.enrollments)
}

func TestStatementCSV(t *testing.T) {
	f := newEnrollmentFixture(t)
	ana := f.addPerson("Ana")
	math := f.addCourse("Math", true)
	art := f.addCourse("Art", true)
	f.enrollments.enrollments["e1"] = models.Enrollment{ID: "e1", PersonID: ana.ID, CourseID: math.ID, EnrollmentDate: models.MustDate("2025-01-02"), DueDate: models.MustDate("2025-01-10"), AmountCharged: decimal.RequireFromString("100"), PaymentStatus: models.PaymentStatusPaid}
	f.enrollments.enrollments["e2"] = models.Enrollment{ID: "e2", PersonID: ana.ID, CourseID: art.ID, EnrollmentDate: models.MustDate("2025-01-03"), DueDate: models.MustDate("2025-02-10"), AmountCharged: decimal.RequireFromString("50.5"), PaymentStatus: models.PaymentStatusPending}

	statement, err := f.svc.Statement(context.Background(), ana.ID, "csv")
	require.NoError(t, err)
	assert.Equal(t, "statement-"+ana.ID+".csv", statement.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", statement.ContentType)

	lines := strings.Split(strings.TrimSpace(string(statement.Body)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Course,Enrolled,Due,Amount,Status", lines[0])
	assert.Equal(t, "Math,2025-01-02,2025-01-10,100.00,PAID", lines[1])
	assert.Equal(t, "Total,,,150.50,Outstanding 50.50", lines[3])
}

func TestStatementErrors(t *testing.T) {
	f := newEnrollmentFixture(t)
	ana := f.addPerson("Ana")

	_, err := f.svc.Statement(context.Background(), ana.ID, "docx")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.Statement(context.Background(), "ghost", "pdf")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	pdf, err := f.svc.Statement(context.Background(), ana.ID, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
}

func TestEnrollmentEndToEnd(t *testing.T) {
	f := newEnrollmentFixture(t)
	ctx := context.Background()
	people := NewPersonService(f.people, nil, nil)
	courses := NewCourseService(f.courses, f.enrollments, nil, nil)

	ana, err := people.Save(ctx, models.Person{FullName: "Ana", NationalID: strPtr("111")})
	require.NoError(t, err)
	math, err := courses.Save(ctx, models.Course{Name: "Math", Price: decimal.RequireFromString("100"), Active: true})
	require.NoError(t, err)

	f.tx.ExpectBegin()
	f.tx.ExpectCommit()
	enrollment, err := f.svc.Enroll(ctx, enrollReq(ana.ID, math.ID, "100.00", "2025-01-10"))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, enrollment.PaymentStatus)
	assert.Equal(t, "2025-01-04", enrollment.EnrollmentDate.String())

	f.tx.ExpectBegin()
	f.tx.ExpectRollback()
	_, err = f.svc.Enroll(ctx, enrollReq(ana.ID, math.ID, "100.00", "2025-01-10"))
	assert.ErrorIs(t, err, appErrors.ErrBusinessRule)

	_, err = courses.SetActive(ctx, math.ID, false)
	require.NoError(t, err)

	bea, err := people.Save(ctx, models.Person{FullName: "Bea"})
	require.NoError(t, err)
	f.tx.ExpectBegin()
	f.tx.ExpectRollback()
	_, err = f.svc.Enroll(ctx, enrollReq(bea.ID, math.ID, "100.00", "2025-01-10"))
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrBusinessRule)
	assert.Contains(t, err.Error(), "inactive course")

	assert.ErrorIs(t, courses.Delete(ctx, math.ID), appErrors.ErrConflict)
	assert.NoError(t, f.tx.ExpectationsWereMet())
}

func TestEnrollRecordsOutcomes(t *testing.T) {
	f := newEnrollmentFixture(t)
	person := f.addPerson("Ana")
	course := f.addCourse("Math", true)
	closed := f.addCourse("Art", false)
	ctx := context.Background()

	f.tx.ExpectBegin()
	f.tx.ExpectCommit()
	_, err := f.svc.Enroll(ctx, enrollReq(person.ID, course.ID, "10", "2025-01-10"))
	require.NoError(t, err)

	f.tx.ExpectBegin()
	f.tx.ExpectRollback()
	_, err = f.svc.Enroll(ctx, enrollReq(person.ID, closed.ID, "10", "2025-01-10"))
	require.Error(t, err)

	_, err = f.svc.Enroll(ctx, EnrollRequest{PersonID: person.ID})
	require.Error(t, err)

	body := scrape(f.metrics)
	assert.Contains(t, body, `school_admin_enrollment_attempts_total{outcome="created"} 1`)
	assert.Contains(t, body, `school_admin_enrollment_attempts_total{outcome="inactive_course"} 1`)
	assert.Contains(t, body, `school_admin_enrollment_attempts_total{outcome="invalid"} 1`)
	assert.NoError(t, f.tx.ExpectationsWereMet())
}

func TestMalformedIDsReadAsAbsent(t *testing.T) {
	db, mock := newTxDB(t)
	malformed := func(raw string) error {
		return &pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "` + raw + `"`}
	}
	people := repository.NewPersonRepository(db)
	svc := NewEnrollmentService(EnrollmentServiceParams{
		Repo:    repository.NewEnrollmentRepository(db),
		People:  people,
		Courses: repository.NewCourseRepository(db),
		Tx:      db,
	})
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM people WHERE id").WithArgs("1").WillReturnError(malformed("1"))
	mock.ExpectRollback()
	_, err := svc.Enroll(ctx, enrollReq("1", "2", "100", "2025-01-10"))
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, "person not found", appErrors.FromError(err).Message)

	mock.ExpectQuery("FROM enrollments WHERE id").WithArgs("abc").WillReturnError(malformed("abc"))
	detail, err := svc.FindByID(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, detail)

	mock.ExpectExec("DELETE FROM enrollments").WithArgs("abc").WillReturnError(malformed("abc"))
	assert.ErrorIs(t, svc.Cancel(ctx, "abc"), appErrors.ErrNotFound)

	mock.ExpectExec("UPDATE enrollments SET payment_status").WillReturnError(malformed("abc"))
	_, err = svc.UpdatePaymentStatus(ctx, "abc", models.PaymentStatusPaid)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	personSvc := NewPersonService(people, nil, nil)
	mock.ExpectQuery("FROM people WHERE id").WithArgs("1").WillReturnError(malformed("1"))
	person, err := personSvc.FindByID(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, person)

	mock.ExpectExec("DELETE FROM people").WithArgs("1").WillReturnError(malformed("1"))
	assert.ErrorIs(t, personSvc.Delete(ctx, "1"), appErrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
