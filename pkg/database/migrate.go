package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// NewMigrator returns a goose provider running the annotated *.sql files in files against db.
func NewMigrator(db *sqlx.DB, files fs.FS) (*goose.Provider, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db.DB, files)
	if err != nil {
		return nil, fmt.Errorf("init migrator: %w", err)
	}
	return provider, nil
}

// Migrate applies every pending migration in version order and returns the applied file names.
func Migrate(ctx context.Context, db *sqlx.DB, files fs.FS, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	provider, err := NewMigrator(db, files)
	if err != nil {
		return nil, err
	}

	results, err := provider.Up(ctx)
	var partial *goose.PartialError
	if errors.As(err, &partial) {
		results = partial.Applied
	}
	ran := make([]string, 0, len(results))
	for _, res := range results {
		logger.Info("migration applied",
			zap.Int64("version", res.Source.Version),
			zap.String("file", res.Source.Path),
			zap.Duration("took", res.Duration),
		)
		ran = append(ran, res.Source.Path)
	}
	if err != nil {
		return ran, fmt.Errorf("apply migrations: %w", err)
	}
	return ran, nil
}
