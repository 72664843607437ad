// Package population derives named analysis populations from the
// subject-level dataset. Every definition is a pure predicate over subject
// attributes: the same table always yields the same membership set, and
// independent definitions never interfere.
package population

import (
	"gotlf/domain/core"
	"gotlf/domain/study"
	"gotlf/domain/table"
)

// Predicate decides membership for the subject at the given row
type Predicate func(t *table.Table, row int) (bool, error)

// Definition names a population and the rule deciding membership.
// Either Flag (an ADaM Y/N column) or Predicate is set.
type Definition struct {
	Name      string
	Flag      string
	Predicate Predicate
}

// Standard study populations, keyed to the ADSL flag columns.

// Safety returns the safety population (received at least one dose)
func Safety() Definition {
	return Definition{Name: "Safety Population", Flag: study.ColSafetyFL}
}

// Efficacy returns the efficacy-evaluable population
func Efficacy() Definition {
	return Definition{Name: "Efficacy Population", Flag: study.ColEfficacyFL}
}

// IntentToTreat returns the ITT population
func IntentToTreat() Definition {
	return Definition{Name: "Intent-to-Treat Population", Flag: study.ColITTFL}
}

// Result is one evaluated population: the row mask over the input table,
// the member subject IDs, and a derived Y/N flag column for traceability.
// Every subject receives exactly one flag value; the flag is never null.
type Result struct {
	Definition string
	Mask       []bool
	Subjects   []core.SubjectID
	FlagColumn *table.Column
}

// Size returns the number of member subjects
func (r *Result) Size() int {
	return len(r.Subjects)
}

// Apply evaluates a population definition over a subject-level table
func Apply(t *table.Table, def Definition) (*Result, error) {
	ids, err := t.Column(study.ColSubjectID)
	if err != nil {
		return nil, err
	}

	member := func(row int) (bool, error) { return false, nil }
	switch {
	case def.Predicate != nil:
		member = func(row int) (bool, error) { return def.Predicate(t, row) }
	case def.Flag != "":
		flag, err := t.Column(def.Flag)
		if err != nil {
			return nil, err
		}
		member = func(row int) (bool, error) {
			// Missing flags count as not in the population, keeping the
			// derived flag total over all subjects.
			return !flag.IsMissing(row) && flag.String(row) == "Y", nil
		}
	default:
		return nil, core.ErrUnknownPopulation
	}

	res := &Result{
		Definition: def.Name,
		Mask:       make([]bool, t.NumRows()),
	}
	flags := make([]string, t.NumRows())
	for row := 0; row < t.NumRows(); row++ {
		in, err := member(row)
		if err != nil {
			return nil, err
		}
		res.Mask[row] = in
		if in {
			flags[row] = "Y"
			res.Subjects = append(res.Subjects, core.SubjectID(ids.String(row)))
		} else {
			flags[row] = "N"
		}
	}
	res.FlagColumn = table.NewStringColumn(def.Name, table.Flag, flags)
	return res, nil
}

// Filter returns the subject-level rows belonging to the population
func (r *Result) Filter(t *table.Table) (*table.Table, error) {
	return t.Filter(r.Mask)
}
