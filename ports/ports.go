// Package ports defines the interfaces between the analysis core and its
// adapters: dataset loading on the way in, result archiving on the way out.
package ports

import (
	"context"

	"gotlf/domain/core"
	"gotlf/domain/result"
	"gotlf/domain/table"
)

// DatasetReader loads a named dataset into a typed table, validating it
// against the given schema. Implementations are read-only and cache-free:
// each report run loads its inputs once.
type DatasetReader interface {
	// Load returns ErrDatasetNotFound when no file for the dataset exists
	// and ErrSchemaMismatch when a required column is absent or mistyped.
	Load(name string, schema table.Schema) (*table.Table, error)
}

// ResultStore archives produced summary tables for run traceability.
// The store is an optional collaborator; analysis never depends on it.
type ResultStore interface {
	SaveRun(ctx context.Context, run RunRecord) error
	SaveTable(ctx context.Context, runID core.RunID, output string, t *result.Table) error
	SaveEstimates(ctx context.Context, runID core.RunID, output string, estimates []result.EffectEstimate) error
}

// RunRecord captures one batch execution for the archive
type RunRecord struct {
	ID         core.RunID
	StartedAt  core.Timestamp
	FinishedAt core.Timestamp
	Outputs    int
	Failed     int
}
