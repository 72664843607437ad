// Package tabular reads columnar on-disk datasets (CSV or XLSX) into typed
// tables. Any columnar format honoring the dataset schema is acceptable;
// these two cover the formats study data is exchanged in here.
package tabular

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gotlf/domain/core"
	"gotlf/domain/table"

	"github.com/xuri/excelize/v2"
)

// numericThreshold is the share of non-missing cells that must parse as
// numbers before an undeclared column is inferred to be numeric.
const numericThreshold = 0.8

// Loader reads datasets from a directory, one file per dataset, named
// <dataset>.csv or <dataset>.xlsx.
type Loader struct {
	dir string
}

// NewLoader creates a loader rooted at the given data directory
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load reads the named dataset and validates it against the schema.
// Returns ErrDatasetNotFound if no file exists and ErrSchemaMismatch if a
// required column is absent or a declared numeric column fails to parse.
func (l *Loader) Load(name string, schema table.Schema) (*table.Table, error) {
	path, kind, err := l.resolve(name)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch kind {
	case "csv":
		rows, err = readCSVRows(path)
	case "xlsx":
		rows, err = readExcelRows(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", name, err)
	}
	if len(rows) < 1 {
		return nil, core.NewSchemaMismatchError(name, "", "dataset has no header row")
	}

	tbl, err := buildTable(name, rows, schema)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(tbl); err != nil {
		return nil, err
	}

	log.Printf("[Loader] dataset %s loaded (%d rows, %d columns)", name, tbl.NumRows(), tbl.NumCols())
	return tbl, nil
}

// resolve finds the on-disk file for a dataset, preferring CSV
func (l *Loader) resolve(name string) (string, string, error) {
	base := strings.ToLower(name)
	for _, kind := range []string{"csv", "xlsx"} {
		path := filepath.Join(l.dir, base+"."+kind)
		if _, err := os.Stat(path); err == nil {
			return path, kind, nil
		}
	}
	return "", "", core.NewDatasetNotFoundError(name, filepath.Join(l.dir, base+".{csv,xlsx}"))
}

func readCSVRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

func readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	// Datasets live on the first sheet
	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

// buildTable converts raw string rows into typed columns. Declared columns
// use the schema type; undeclared columns fall back to type inference.
func buildTable(name string, rows [][]string, schema table.Schema) (*table.Table, error) {
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	data := rows[1:]

	cols := make([]*table.Column, 0, len(headers))
	for j, header := range headers {
		if header == "" {
			continue
		}
		cells := make([]string, len(data))
		for i, row := range data {
			if j < len(row) {
				cells[i] = strings.TrimSpace(row[j])
			}
		}

		typ := table.Categorical
		declared := false
		if spec, ok := schema.Spec(header); ok {
			typ = spec.Type
			declared = true
		} else if inferNumeric(cells) {
			typ = table.Numeric
		}

		col, err := buildColumn(name, header, typ, declared, cells)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}

	return table.New(name, cols...)
}

// buildColumn parses one column's cells. Only schema-declared numeric
// columns are held to strict parsing; an inferred numeric column tolerates
// stray text by recording those cells as missing, so an undeclared extra
// column can never fail the load.
func buildColumn(dataset, header string, typ table.Type, declared bool, cells []string) (*table.Column, error) {
	if typ != table.Numeric {
		return table.NewStringColumn(header, typ, cells), nil
	}

	values := make([]float64, len(cells))
	missing := make([]bool, len(cells))
	for i, cell := range cells {
		if cell == "" || strings.EqualFold(cell, "NA") {
			missing[i] = true
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			if !declared {
				missing[i] = true
				continue
			}
			return nil, core.NewSchemaMismatchError(dataset, header,
				fmt.Sprintf("row %d value %q is not numeric", i+1, cell))
		}
		values[i] = v
	}
	return table.NewNumericColumn(header, values, missing), nil
}

// inferNumeric applies the coercion threshold to undeclared columns
func inferNumeric(cells []string) bool {
	nonMissing, numeric := 0, 0
	for _, cell := range cells {
		if cell == "" || strings.EqualFold(cell, "NA") {
			continue
		}
		nonMissing++
		if _, err := strconv.ParseFloat(cell, 64); err == nil {
			numeric++
		}
	}
	if nonMissing == 0 {
		return false
	}
	return float64(numeric)/float64(nonMissing) >= numericThreshold
}
