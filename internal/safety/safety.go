// Package safety tabulates adverse-event incidence by treatment arm.
// Incidence counts subjects, not events: a subject reporting the same term
// several times counts once per term. A separate, explicitly named
// event-count mode exists for event totals; the two are never conflated.
package safety

import (
	"sort"

	"gotlf/domain/core"
	"gotlf/domain/result"
	"gotlf/domain/study"
	"gotlf/domain/table"
)

// Options control an adverse-event tabulation
type Options struct {
	// ArmColumn is the treatment column on the subject-level table.
	ArmColumn string
	// Arms fixes the reporting arms; defaults to the arms observed in the
	// filtered subject-level table.
	Arms []string
	// BySeverity adds a severity grade grouping dimension.
	BySeverity bool
	// Severities restricts counting to events of the given grades. Leaving
	// it empty counts all grades; adding grades can only grow counts.
	Severities []string
	// TreatmentEmergentOnly restricts counting to TRTEMFL == "Y" events
	// when the dataset carries that flag.
	TreatmentEmergentOnly bool
}

func (o Options) armColumn() string {
	if o.ArmColumn == "" {
		return study.ColTreatment
	}
	return o.ArmColumn
}

// cohort maps the population-filtered subject-level table: arm per subject
// and subject totals per arm (the percentage denominators).
type cohort struct {
	armBySubject map[core.SubjectID]string
	arms         []string
	armSizes     map[string]int
}

func buildCohort(subjects *table.Table, opts Options) (*cohort, error) {
	ids, err := subjects.Column(study.ColSubjectID)
	if err != nil {
		return nil, err
	}
	armCol, err := subjects.Column(opts.armColumn())
	if err != nil {
		return nil, err
	}

	c := &cohort{
		armBySubject: make(map[core.SubjectID]string),
		armSizes:     make(map[string]int),
	}
	seen := make(map[string]bool)
	for row := 0; row < subjects.NumRows(); row++ {
		arm := armCol.String(row)
		c.armBySubject[core.SubjectID(ids.String(row))] = arm
		c.armSizes[arm]++
		if !seen[arm] {
			seen[arm] = true
			c.arms = append(c.arms, arm)
		}
	}
	if len(opts.Arms) > 0 {
		c.arms = opts.Arms
	}
	return c, nil
}

// qualifies applies the severity and treatment-emergent filters to one
// adverse-event row.
func qualifies(ae *table.Table, row int, opts Options) bool {
	if opts.TreatmentEmergentOnly && ae.HasColumn(study.ColAETrtEmerg) {
		col, _ := ae.Column(study.ColAETrtEmerg)
		if col.String(row) != "Y" {
			return false
		}
	}
	if len(opts.Severities) > 0 {
		col, err := ae.Column(study.ColAESeverity)
		if err != nil {
			return false
		}
		match := false
		for _, sev := range opts.Severities {
			if col.String(row) == sev {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	return true
}

// key is one tabulation cell
type key struct {
	arm, term, severity string
}

// SubjectIncidence reports, per arm and event term (and severity grade when
// requested), the number and percentage of subjects with at least one
// qualifying occurrence. Denominator is the arm's filtered population size.
// Terms observed anywhere in the input appear in every arm, with count 0
// where no subject reported them.
func SubjectIncidence(ae, subjects *table.Table, opts Options) (*result.Table, error) {
	return tabulate(ae, subjects, opts, true)
}

// EventCounts reports, per arm and event term (and severity grade when
// requested), the total number of qualifying events. This is the "events"
// mode: a subject reporting a term twice contributes two. No percentage is
// emitted since events have no subject denominator.
func EventCounts(ae, subjects *table.Table, opts Options) (*result.Table, error) {
	return tabulate(ae, subjects, opts, false)
}

func tabulate(ae, subjects *table.Table, opts Options, perSubject bool) (*result.Table, error) {
	c, err := buildCohort(subjects, opts)
	if err != nil {
		return nil, err
	}
	terms, err := ae.Column(study.ColAETerm)
	if err != nil {
		return nil, err
	}
	ids, err := ae.Column(study.ColSubjectID)
	if err != nil {
		return nil, err
	}

	var sevCol *table.Column
	if opts.BySeverity {
		sevCol, err = ae.Column(study.ColAESeverity)
		if err != nil {
			return nil, err
		}
	}

	counts := make(map[key]int)
	counted := make(map[key]map[core.SubjectID]bool)
	var termOrder []string
	seenTerm := make(map[string]bool)
	seenSev := make(map[string]bool)

	for row := 0; row < ae.NumRows(); row++ {
		subject := core.SubjectID(ids.String(row))
		arm, inPopulation := c.armBySubject[subject]
		if !inPopulation || terms.IsMissing(row) || !qualifies(ae, row, opts) {
			continue
		}
		term := terms.String(row)
		if !seenTerm[term] {
			seenTerm[term] = true
			termOrder = append(termOrder, term)
		}

		severity := ""
		if opts.BySeverity {
			severity = sevCol.String(row)
			seenSev[severity] = true
		}
		k := key{arm: arm, term: term, severity: severity}

		if perSubject {
			if counted[k] == nil {
				counted[k] = make(map[core.SubjectID]bool)
			}
			if counted[k][subject] {
				continue
			}
			counted[k][subject] = true
		}
		counts[k]++
	}

	sort.Strings(termOrder)
	severities := severityLevels(seenSev)

	name := "ae_subject_incidence"
	groupKeys := []string{"arm", "term"}
	if !perSubject {
		name = "ae_event_counts"
	}
	if opts.BySeverity {
		groupKeys = append(groupKeys, "severity")
	}
	out := result.NewTable(name, groupKeys...)

	for _, term := range termOrder {
		for _, arm := range c.arms {
			for _, severity := range severities {
				groups := []string{arm, term}
				if opts.BySeverity {
					groups = append(groups, severity)
				}
				n := counts[key{arm: arm, term: term, severity: severity}]
				out.Append(groups, "n", result.Number(float64(n)))
				if perSubject {
					if denom := c.armSizes[arm]; denom > 0 {
						out.Append(groups, "pct", result.Number(100*float64(n)/float64(denom)))
					} else {
						out.Append(groups, "pct", result.MissingValue())
					}
				}
			}
		}
	}
	return out, nil
}

// severityLevels orders observed grades MILD < MODERATE < SEVERE, with any
// non-standard grades after, alphabetically. Without severity grouping it
// returns the single empty grade.
func severityLevels(seen map[string]bool) []string {
	if len(seen) == 0 {
		return []string{""}
	}
	var levels []string
	for _, sev := range study.SeverityOrder {
		if seen[sev] {
			levels = append(levels, sev)
			delete(seen, sev)
		}
	}
	var rest []string
	for sev := range seen {
		rest = append(rest, sev)
	}
	sort.Strings(rest)
	return append(levels, rest...)
}
