package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var personRowColumns = []string{"id", "full_name", "national_id", "birth_date", "email", "phone", "created_at", "updated_at"}

func TestPersonRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	rows := sqlmock.NewRows(personRowColumns).
		AddRow("p1", "Ana", "111", time.Date(2000, 5, 1, 0, 0, 0, 0, time.UTC), "ana@example.com", "123", time.Now(), time.Now()).
		AddRow("p2", "Bea", nil, nil, "", "", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, national_id, birth_date, email, phone, created_at, updated_at FROM people ORDER BY full_name, id")).
		WillReturnRows(rows)

	people, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "111", people[0].NationalIDValue())
	assert.Equal(t, "2000-05-01", people[0].BirthDate.String())
	assert.Nil(t, people[1].NationalID)
	assert.True(t, people[1].BirthDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepositoryFindByNationalIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM people WHERE national_id = $1")).
		WithArgs("999").
		WillReturnRows(sqlmock.NewRows(personRowColumns))

	_, err := repo.FindByNationalID(context.Background(), "999")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	mock.ExpectExec("INSERT INTO people").
		WithArgs(sqlmock.AnyArg(), "Ana", sqlmock.AnyArg(), sqlmock.AnyArg(), "", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	person := &models.Person{FullName: "Ana"}
	require.NoError(t, repo.Create(context.Background(), person))
	assert.NotEmpty(t, person.ID)
	assert.False(t, person.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	mock.ExpectQuery("UPDATE people SET").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))

	err := repo.Update(context.Background(), &models.Person{ID: "missing", FullName: "Ghost"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepositoryUpdateReturnsCreatedAt(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery("UPDATE people SET").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	person := &models.Person{ID: "p1", FullName: "Ana"}
	require.NoError(t, repo.Update(context.Background(), person))
	assert.Equal(t, created, person.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM people WHERE id = $1")).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM people WHERE id = $1")).
		WithArgs("p2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "p1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "p2"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepositoryFindByIDsEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	people, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, people)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func malformedUUID(raw string) error {
	return &pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "` + raw + `"`}
}

func TestPersonRepositoryMalformedIDIsAbsent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM people WHERE id = $1")).
		WithArgs("1").
		WillReturnError(malformedUUID("1"))
	mock.ExpectQuery("UPDATE people SET").
		WillReturnError(malformedUUID("1"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM people WHERE id = $1")).
		WithArgs("1").
		WillReturnError(malformedUUID("1"))

	_, err := repo.FindByID(context.Background(), nil, "1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.ErrorIs(t, repo.Update(context.Background(), &models.Person{ID: "1", FullName: "Ana"}), sql.ErrNoRows)
	assert.ErrorIs(t, repo.Delete(context.Background(), "1"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
