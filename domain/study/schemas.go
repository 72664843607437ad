// Package study defines the ADaM dataset contracts used across the
// analysis package: the subject-level dataset (ADSL), the adverse-event
// dataset (ADAE) and the laboratory dataset (ADLBC), each as an explicit
// versioned schema validated at load time.
package study

import "gotlf/domain/table"

// Dataset kinds, matching the lower-case dataset file names on disk.
const (
	DatasetADSL = "adsl"
	DatasetADAE = "adae"
	DatasetADLB = "adlbc"
)

// Standard ADaM column names used by the analysis functions.
const (
	ColSubjectID  = "USUBJID"
	ColTreatment  = "TRT01P"
	ColPlanned    = "TRTP"
	ColAge        = "AGE"
	ColSex        = "SEX"
	ColRace       = "RACE"
	ColSafetyFL   = "SAFFL"
	ColEfficacyFL = "EFFFL"
	ColITTFL      = "ITTFL"

	ColAETerm     = "AEDECOD"
	ColAESeverity = "AESEV"
	ColAETrtEmerg = "TRTEMFL"

	ColParamCode     = "PARAMCD"
	ColVisitNum      = "AVISITN"
	ColAnalysisValue = "AVAL"
	ColBaseline      = "BASE"
)

// Severity grades in increasing order, per the ADaM AESEV convention.
var SeverityOrder = []string{"MILD", "MODERATE", "SEVERE"}

// ADSLSchema is the subject-level analysis dataset contract: one row per
// subject with treatment assignment, demographics and population flags.
func ADSLSchema() table.Schema {
	return table.Schema{
		Dataset: DatasetADSL,
		Version: "1.0",
		Columns: []table.ColumnSpec{
			{Name: ColSubjectID, Type: table.Identifier, Required: true},
			{Name: ColTreatment, Type: table.Categorical, Required: true},
			{Name: ColAge, Type: table.Numeric, Required: true},
			{Name: ColSex, Type: table.Categorical, Required: true},
			{Name: ColRace, Type: table.Categorical, Required: false},
			{Name: ColSafetyFL, Type: table.Flag, Required: true},
			{Name: ColEfficacyFL, Type: table.Flag, Required: true},
			{Name: ColITTFL, Type: table.Flag, Required: false},
		},
	}
}

// ADAESchema is the adverse-event analysis dataset contract: one row per
// reported event, keyed to a subject.
func ADAESchema() table.Schema {
	return table.Schema{
		Dataset: DatasetADAE,
		Version: "1.0",
		Columns: []table.ColumnSpec{
			{Name: ColSubjectID, Type: table.Identifier, Required: true},
			{Name: ColAETerm, Type: table.Categorical, Required: true},
			{Name: ColAESeverity, Type: table.Categorical, Required: false},
			{Name: ColAETrtEmerg, Type: table.Flag, Required: false},
		},
	}
}

// ADLBSchema is the laboratory analysis dataset contract: one row per
// subject, parameter and visit.
func ADLBSchema() table.Schema {
	return table.Schema{
		Dataset: DatasetADLB,
		Version: "1.0",
		Columns: []table.ColumnSpec{
			{Name: ColSubjectID, Type: table.Identifier, Required: true},
			{Name: ColParamCode, Type: table.Categorical, Required: true},
			{Name: ColVisitNum, Type: table.Numeric, Required: true},
			{Name: ColAnalysisValue, Type: table.Numeric, Required: true},
			{Name: ColBaseline, Type: table.Numeric, Required: false},
			{Name: ColPlanned, Type: table.Categorical, Required: false},
		},
	}
}

// SchemaFor returns the registered schema for a dataset kind
func SchemaFor(name string) (table.Schema, bool) {
	switch name {
	case DatasetADSL:
		return ADSLSchema(), true
	case DatasetADAE:
		return ADAESchema(), true
	case DatasetADLB:
		return ADLBSchema(), true
	}
	return table.Schema{}, false
}
