// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migration

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

/*
TestConvertToPgx5DSN rewrites postgres schemes for the pgx5 driver.
*/
func TestConvertToPgx5DSN(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"postgres://u:p@db:5432/messagely", "pgx5://u:p@db:5432/messagely"},
		{"postgresql://u:p@db/messagely?sslmode=disable", "pgx5://u:p@db/messagely?sslmode=disable"},
		{"pgx5://db/messagely", "pgx5://db/messagely"},
		{"host=db dbname=messagely", "host=db dbname=messagely"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, convertToPgx5DSN(tt.input))
		})
	}
}

/*
TestSourceURL prefixes bare directories and keeps explicit source URLs.
*/
func TestSourceURL(t *testing.T) {
	assert.Equal(t, "file://data/migrations", sourceURL("data/migrations"))
	assert.Equal(t, "file:///srv/migrations", sourceURL("/srv/migrations"))
	assert.Equal(t, "file:///srv/migrations", sourceURL("file:///srv/migrations"))
}

/*
TestRunUp_MissingDirectory fails while opening the source, before any database I/O.
*/
func TestRunUp_MissingDirectory(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	err := RunUp(context.Background(), "postgres://u:p@127.0.0.1:1/messagely", filepath.Join(t.TempDir(), "absent"), logger)
	assert.ErrorContains(t, err, "migration_init_failed")
}

/*
TestMigrateLogger forwards driver output at debug level.
*/
func TestMigrateLogger(t *testing.T) {
	var buffer bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buffer, &slog.HandlerOptions{Level: slog.LevelDebug}))

	forwarder := &migrateLogger{logger: logger, verbose: logger.Enabled(context.Background(), slog.LevelDebug)}
	forwarder.Printf("1/u create_users (%dms)\n", 12)

	assert.True(t, forwarder.Verbose())
	assert.Contains(t, buffer.String(), `"level":"DEBUG"`)
	assert.Contains(t, buffer.String(), `"detail":"1/u create_users (12ms)"`)

	quiet := slog.New(slog.NewJSONHandler(io.Discard, nil))
	assert.False(t, (&migrateLogger{logger: quiet, verbose: quiet.Enabled(context.Background(), slog.LevelDebug)}).Verbose())
}
