package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/pkg/database"
)

func pick(db *sqlx.DB, exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return db
}

// expectAffected converts a zero-row write into sql.ErrNoRows.
func expectAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// byIDErr reports a key Postgres cannot read as a UUID as an absent row.
func byIDErr(err error) error {
	if database.IsInvalidTextRepresentation(err) {
		return sql.ErrNoRows
	}
	return err
}

func exists(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) (bool, error) {
	var found int
	if err := sqlx.GetContext(ctx, q, &found, query, args...); err != nil {
		if err == sql.ErrNoRows || database.IsInvalidTextRepresentation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
