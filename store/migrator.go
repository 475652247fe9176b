package store

import (
	"context"
	"database/sql"
	"embed"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
)

// Schema initialization:
//
// Each driver ships a full LATEST.sql under store/migration/{driver}/. On
// startup, Migrate checks whether the backing schema exists and applies the
// schema file in a single transaction if it does not. The check-and-apply is
// idempotent, so concurrent process startups against the same database are
// safe: the loser of the race fails its transaction and finds the schema
// already initialized.

//go:embed migration
var migrationFS embed.FS

// LatestSchemaFileName is the name of the full schema file per driver.
const LatestSchemaFileName = "LATEST.sql"

// Migrate initializes the backing schema if it does not exist yet. It must
// run once during service startup, before the store serves any request; a
// failure here is fatal and the process should not start degraded.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	if initialized {
		slog.Debug("schema already initialized", slog.String("driver", s.profile.Driver))
		return nil
	}

	filePath := s.getMigrationBasePath() + LatestSchemaFileName
	bytes, err := migrationFS.ReadFile(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema file: %s", filePath)
	}

	tx, err := s.driver.GetDB().Begin()
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	slog.Info("initializing new database with latest schema", slog.String("file", filePath))
	if err := s.execute(ctx, tx, string(bytes)); err != nil {
		return errors.Wrapf(err, "failed to execute schema file %s", filePath)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	slog.Info("database initialized successfully", slog.String("driver", s.profile.Driver))
	return nil
}

func (s *Store) getMigrationBasePath() string {
	return "migration/" + s.profile.Driver + "/"
}

// execute executes a SQL script within a transaction context. PostgreSQL
// does not accept multiple statements in a single parameterized ExecContext
// call, so the script is split and executed statement by statement there.
func (s *Store) execute(ctx context.Context, tx *sql.Tx, stmt string) error {
	if s.profile.Driver != "postgres" {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to execute statement")
		}
		return nil
	}
	for i, single := range splitSQL(stmt) {
		if single == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, single); err != nil {
			return errors.Wrapf(err, "failed to execute statement %d: %s", i+1, single)
		}
	}
	return nil
}

// splitSQL splits a schema script into individual statements on semicolons.
// Comment-only lines are dropped. The schema files contain no string
// literals or function bodies with embedded semicolons.
func splitSQL(script string) []string {
	var statements []string
	var current strings.Builder
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			statements = append(statements, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		statements = append(statements, rest)
	}
	return statements
}
