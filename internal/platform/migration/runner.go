// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package migration applies the users and messages schema from
// data/migrations before the API starts serving.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// pgx5 driver registers "pgx5" scheme for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	// file source reads .sql files from disk.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

/*
RunUp applies every pending migration in migrationsPath to the database at dsn.

A database left dirty by an interrupted run is reported and not touched.
golang-migrate's own chatter is forwarded at debug level, and only when the
logger has debug enabled.

Returns:
  - error: nil when the schema is current, including when nothing was applied
*/
func RunUp(ctx context.Context, dsn, migrationsPath string, logger *slog.Logger) error {
	migrator, err := newMigrator(dsn, migrationsPath)
	if err != nil {
		return err
	}
	defer closeMigrator(migrator, logger)

	migrator.Log = &migrateLogger{logger: logger, verbose: logger.Enabled(ctx, slog.LevelDebug)}

	// ── 1. Current State ──────────────────────────────────────────────────
	from, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migration_version_failed: %w", err)
	}
	if dirty {
		return fmt.Errorf("migration_dirty_state: version %d needs manual repair", from)
	}

	logger.Info("migration_started", slog.Uint64("current_version", uint64(from)))

	// ── 2. Apply ──────────────────────────────────────────────────────────
	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("migration_already_up_to_date", slog.Uint64("version", uint64(from)))
			return nil
		}
		return fmt.Errorf("migration_up_failed: %w", err)
	}

	to, _, _ := migrator.Version()
	logger.Info("migration_successful",
		slog.Uint64("from_version", uint64(from)),
		slog.Uint64("to_version", uint64(to)),
	)

	return nil
}

func newMigrator(dsn, migrationsPath string) (*migrate.Migrate, error) {
	migrator, err := migrate.New(sourceURL(migrationsPath), convertToPgx5DSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("migration_init_failed: %w", err)
	}
	return migrator, nil
}

func closeMigrator(migrator *migrate.Migrate, logger *slog.Logger) {
	sourceErr, databaseErr := migrator.Close()
	if sourceErr != nil {
		logger.Error("migration_source_close_failed", slog.Any("error", sourceErr))
	}
	if databaseErr != nil {
		logger.Error("migration_db_close_failed", slog.Any("error", databaseErr))
	}
}

// sourceURL accepts either a directory or an existing source URL.
func sourceURL(migrationsPath string) string {
	if strings.Contains(migrationsPath, "://") {
		return migrationsPath
	}
	return "file://" + migrationsPath
}

// convertToPgx5DSN rewrites postgres URLs to the pgx5:// scheme the driver registers.
func convertToPgx5DSN(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, found := strings.CutPrefix(dsn, prefix); found {
			return "pgx5://" + rest
		}
	}
	return dsn
}

// migrateLogger forwards golang-migrate output to slog at debug level.
type migrateLogger struct {
	logger  *slog.Logger
	verbose bool
}

func (l *migrateLogger) Printf(format string, args ...any) {
	l.logger.Debug("migration_driver", slog.String("detail", strings.TrimSpace(fmt.Sprintf(format, args...))))
}

func (l *migrateLogger) Verbose() bool {
	return l.verbose
}
