// Package postgres archives report runs and their long-format results for
// traceability. The archive is an optional collaborator of the runner; the
// analysis functions never depend on it.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"gotlf/domain/core"
	"gotlf/domain/result"
	"gotlf/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// resultStore implements the ResultStore interface
type resultStore struct {
	db *sqlx.DB
}

// NewResultStore creates a new result archive on an open connection
func NewResultStore(db *sqlx.DB) ports.ResultStore {
	return &resultStore{db: db}
}

// Open connects to the archive database
func Open(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to result archive: %w", err)
	}
	return db, nil
}

// SaveRun inserts the run record
func (s *resultStore) SaveRun(ctx context.Context, run ports.RunRecord) error {
	query := `INSERT INTO runs (id, started_at, finished_at, outputs, failed)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query,
		run.ID.String(), run.StartedAt.Time(), run.FinishedAt.Time(), run.Outputs, run.Failed)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// SaveTable inserts one long-format result table, one row per statistic
func (s *resultStore) SaveTable(ctx context.Context, runID core.RunID, output string, t *result.Table) error {
	query := `INSERT INTO result_rows (run_id, output, group_keys, group_values, statistic, value, text_value, missing)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	keys := strings.Join(t.GroupKeys, "|")
	for _, row := range t.Rows {
		_, err := tx.ExecContext(ctx, query,
			runID.String(), output, keys, strings.Join(row.Groups, "|"),
			row.Statistic, row.Value.Num, row.Value.Str, row.Value.Missing)
		if err != nil {
			return fmt.Errorf("failed to save row of %s: %w", output, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive of %s: %w", output, err)
	}
	return nil
}

// SaveEstimates inserts efficacy effect estimates with their model context
func (s *resultStore) SaveEstimates(ctx context.Context, runID core.RunID, output string, estimates []result.EffectEstimate) error {
	query := `INSERT INTO effect_estimates (run_id, output, contrast, estimate, std_err,
		ci_lower, ci_upper, t_stat, p_value, df, conf_level, model)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range estimates {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("refusing to archive invalid estimate: %w", err)
		}
		_, err := tx.ExecContext(ctx, query,
			runID.String(), output, e.Contrast, e.Estimate, e.StdErr,
			e.CILower, e.CIUpper, e.TStat, e.PValue, e.DF, e.ConfLevel, e.Model)
		if err != nil {
			return fmt.Errorf("failed to save estimate %s: %w", e.Contrast, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit estimates of %s: %w", output, err)
	}
	return nil
}
