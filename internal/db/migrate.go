package db

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Migrate applies the schema migrations followed by the job queue's own tables
func (db *DB) Migrate(ctx context.Context, logger *zap.Logger) error {
	goose.SetLogger(&gooseLogger{log: logger.Named("migrate").Sugar()})
	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(db.pool)
	defer func() { _ = sqlDB.Close() }()

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("failed to apply schema migrations: %w", err)
	}

	if err := migrateRiver(ctx, db); err != nil {
		return fmt.Errorf("river migrations: %w", err)
	}
	return nil
}

// MigrationVersion reports the current schema version
func (db *DB) MigrationVersion(ctx context.Context) (int64, error) {
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, err
	}
	sqlDB := stdlib.OpenDBFromPool(db.pool)
	defer func() { _ = sqlDB.Close() }()

	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return 0, fmt.Errorf("failed to read migration version: %w", err)
	}
	return version, nil
}

func migrateRiver(ctx context.Context, db *DB) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(db.pool), nil)
	if err != nil {
		return err
	}
	_, err = migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	return err
}

// gooseLogger routes goose output through zap
type gooseLogger struct {
	log *zap.SugaredLogger
}

func (l *gooseLogger) Printf(format string, v ...interface{}) { l.log.Infof(format, v...) }
func (l *gooseLogger) Fatalf(format string, v ...interface{}) { l.log.Fatalf(format, v...) }
