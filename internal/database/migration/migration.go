package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

// users is a read projection of the account service, used only for display
// names. programs.user_id therefore carries no foreign key.
var steps = []migrationStep{
	{
		Name: "create_table_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
  id         TEXT        PRIMARY KEY,
  name       TEXT        NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_categories",
		SQL: `CREATE TABLE IF NOT EXISTS categories (
  id          BIGSERIAL   PRIMARY KEY,
  name        VARCHAR(50) NOT NULL UNIQUE,
  slug        VARCHAR(60) NOT NULL UNIQUE,
  description TEXT
);`,
	},
	{
		Name: "create_table_programs",
		SQL: `CREATE TABLE IF NOT EXISTS programs (
  id                   UUID         PRIMARY KEY,
  user_id              TEXT         NOT NULL,
  title                VARCHAR(255) NOT NULL,
  description          TEXT         NOT NULL,
  file_path            TEXT         NOT NULL UNIQUE,
  thumbnail_path       TEXT,
  programming_language VARCHAR(50)  NOT NULL,
  version              VARCHAR(20)  NOT NULL,
  status               TEXT         NOT NULL DEFAULT 'published'
                       CHECK (status IN ('published', 'draft', 'archived')),
  view_count           BIGINT       NOT NULL DEFAULT 0 CHECK (view_count >= 0),
  download_count       BIGINT       NOT NULL DEFAULT 0 CHECK (download_count >= 0),
  created_at           TIMESTAMPTZ  NOT NULL DEFAULT now(),
  updated_at           TIMESTAMPTZ  NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_category_program",
		SQL: `CREATE TABLE IF NOT EXISTS category_program (
  category_id BIGINT NOT NULL REFERENCES categories (id) ON DELETE CASCADE,
  program_id  UUID   NOT NULL REFERENCES programs (id) ON DELETE CASCADE,
  PRIMARY KEY (category_id, program_id)
);`,
	},
	{
		Name: "create_table_comments",
		SQL: `CREATE TABLE IF NOT EXISTS comments (
  id         UUID        PRIMARY KEY,
  program_id UUID        NOT NULL REFERENCES programs (id) ON DELETE CASCADE,
  user_id    TEXT        NOT NULL,
  content    TEXT        NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_programs_status_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_programs_status_created_at ON programs (status, created_at DESC);`,
	},
	{
		Name: "create_index_programs_user_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_programs_user_id ON programs (user_id);`,
	},
	{
		Name: "create_index_category_program_program_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_category_program_program_id ON category_program (program_id);`,
	},
	{
		Name: "create_index_comments_program_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_comments_program_id ON comments (program_id, created_at);`,
	},
}

// EnsureMigrated checks if the 'programs' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, dbHost string) error {
	start := time.Now()
	log := slog.Default().With("component", "database", "db_host", dbHost)

	log.Info("db migration check", "event", "db_migration_check")

	var exists bool
	if err := db.QueryRowContext(ctx, "SELECT to_regclass('public.programs') IS NOT NULL").Scan(&exists); err != nil {
		log.Error("db migration failed",
			"event", "db_migration_failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("schema already exists, skipping migration",
			"event", "db_migration_skip",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	log.Info("db migration start", "event", "db_migration_start", "steps", len(steps))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db migration failed",
				"event", "db_migration_failed",
				"migration_step", step.Name,
				"error", err,
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Debug("db migration step",
			"event", "db_migration_step",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	log.Info("db migration success",
		"event", "db_migration_success",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
