package table

import (
	"math"
	"testing"

	"gotlf/domain/core"
)

func TestNumericColumn_MissingMask(t *testing.T) {
	col := NewNumericColumn("AGE", []float64{70, math.NaN(), 65}, []bool{false, false, true})

	if col.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", col.Len())
	}
	// NaN entries are missing even without an explicit mask
	if !col.IsMissing(1) {
		t.Error("NaN value should be marked missing")
	}
	if !col.IsMissing(2) {
		t.Error("masked value should be missing")
	}
	if got := col.Floats(); len(got) != 1 || got[0] != 70 {
		t.Errorf("expected non-missing values [70], got %v", got)
	}
}

func TestStringColumn_EmptyIsMissing(t *testing.T) {
	col := NewStringColumn("SEX", Categorical, []string{"F", "", "M", "F"})

	if col.MissingCount() != 1 {
		t.Errorf("expected 1 missing, got %d", col.MissingCount())
	}
	levels := col.Levels()
	if len(levels) != 2 || levels[0] != "F" || levels[1] != "M" {
		t.Errorf("expected levels [F M] in first-seen order, got %v", levels)
	}
}

func TestNew_LengthMismatch(t *testing.T) {
	_, err := New("adsl",
		NewStringColumn("USUBJID", Identifier, []string{"01-001", "01-002"}),
		NewNumericColumn("AGE", []float64{70}, nil),
	)
	if !core.IsSchemaMismatch(err) {
		t.Fatalf("expected schema mismatch for unequal column lengths, got %v", err)
	}
}

func TestTable_ColumnNotFound(t *testing.T) {
	tbl, err := New("adsl", NewNumericColumn("AGE", []float64{70}, nil))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.Column("WEIGHT"); err == nil {
		t.Fatal("expected error for unknown column")
	}
}

func TestTable_Filter(t *testing.T) {
	tbl, err := New("adsl",
		NewStringColumn("USUBJID", Identifier, []string{"01-001", "01-002", "01-003"}),
		NewNumericColumn("AGE", []float64{70, 65, 80}, nil),
	)
	if err != nil {
		t.Fatal(err)
	}

	sub, err := tbl.Filter([]bool{true, false, true})
	if err != nil {
		t.Fatal(err)
	}
	if sub.NumRows() != 2 {
		t.Fatalf("expected 2 rows after filter, got %d", sub.NumRows())
	}
	ids, _ := sub.Column("USUBJID")
	if ids.String(1) != "01-003" {
		t.Errorf("expected second kept row to be 01-003, got %s", ids.String(1))
	}

	// The source table must be untouched
	if tbl.NumRows() != 3 {
		t.Error("filter must not mutate the source table")
	}

	if _, err := tbl.Filter([]bool{true}); err == nil {
		t.Error("expected error for mask length mismatch")
	}
}

func TestSchema_Validate(t *testing.T) {
	schema := Schema{
		Dataset: "adsl",
		Version: "1.0",
		Columns: []ColumnSpec{
			{Name: "USUBJID", Type: Identifier, Required: true},
			{Name: "AGE", Type: Numeric, Required: true},
			{Name: "RACE", Type: Categorical, Required: false},
		},
	}

	ok, _ := New("adsl",
		NewStringColumn("USUBJID", Identifier, []string{"01-001"}),
		NewNumericColumn("AGE", []float64{70}, nil),
	)
	if err := schema.Validate(ok); err != nil {
		t.Fatalf("expected valid table (optional column absent), got %v", err)
	}

	missing, _ := New("adsl", NewNumericColumn("AGE", []float64{70}, nil))
	if err := schema.Validate(missing); !core.IsSchemaMismatch(err) {
		t.Errorf("expected schema mismatch for missing required column, got %v", err)
	}

	mistyped, _ := New("adsl",
		NewStringColumn("USUBJID", Identifier, []string{"01-001"}),
		NewStringColumn("AGE", Categorical, []string{"seventy"}),
	)
	if err := schema.Validate(mistyped); !core.IsSchemaMismatch(err) {
		t.Errorf("expected schema mismatch for mistyped column, got %v", err)
	}
}
