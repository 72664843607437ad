package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Migrate creates the archive tables when they do not exist
func Migrate(ctx context.Context, db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			outputs INTEGER NOT NULL,
			failed INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS result_rows (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES runs(id),
			output TEXT NOT NULL,
			group_keys TEXT NOT NULL,
			group_values TEXT NOT NULL,
			statistic TEXT NOT NULL,
			value DOUBLE PRECISION,
			text_value TEXT,
			missing BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS effect_estimates (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES runs(id),
			output TEXT NOT NULL,
			contrast TEXT NOT NULL,
			estimate DOUBLE PRECISION NOT NULL,
			std_err DOUBLE PRECISION NOT NULL,
			ci_lower DOUBLE PRECISION NOT NULL,
			ci_upper DOUBLE PRECISION NOT NULL,
			t_stat DOUBLE PRECISION NOT NULL,
			p_value DOUBLE PRECISION NOT NULL,
			df DOUBLE PRECISION NOT NULL,
			conf_level DOUBLE PRECISION NOT NULL,
			model TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_result_rows_run ON result_rows(run_id, output)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate archive schema: %w", err)
		}
	}
	return nil
}
