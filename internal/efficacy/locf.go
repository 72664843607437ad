// Package efficacy fits comparative models for study endpoints: LOCF
// endpoint preparation from the laboratory dataset, per-arm descriptive
// statistics, and a covariate-adjusted ANCOVA with LS means and
// treatment contrasts.
package efficacy

import (
	"gotlf/domain/core"
	"gotlf/domain/study"
	"gotlf/domain/table"
)

// Analysis dataset column names produced by PrepareLOCF.
const (
	ColBaselineVisit = "BASELINE"      // analysis value at visit 0
	ColEndpointLOCF  = "ENDPOINT_LOCF" // last observation at or before the endpoint week
	ColChange        = "CHG"           // endpoint minus baseline
)

// LOCFSpec selects the endpoint observations to carry forward
type LOCFSpec struct {
	// Param is the PARAMCD of the endpoint parameter, e.g. "GLUC".
	Param string
	// EndpointWeek is the analysis visit number of the primary endpoint.
	EndpointWeek float64
}

// PrepareLOCF builds the analysis-ready endpoint dataset: it joins the lab
// table to the (already population-filtered) subject-level table, restricts
// to the endpoint parameter and visits at or before the endpoint week, and
// per subject takes the visit-0 value as baseline and the last non-missing
// post-baseline value as the LOCF endpoint. Subjects missing either value
// are excluded; in particular a subject observed only at visit 0 has no
// post-baseline value to carry forward and does not enter the analysis
// set. The derived CHG column is endpoint minus baseline.
func PrepareLOCF(labs, subjects *table.Table, spec LOCFSpec) (*table.Table, error) {
	ids, err := labs.Column(study.ColSubjectID)
	if err != nil {
		return nil, err
	}
	params, err := labs.Column(study.ColParamCode)
	if err != nil {
		return nil, err
	}
	visits, err := labs.Column(study.ColVisitNum)
	if err != nil {
		return nil, err
	}
	values, err := labs.Column(study.ColAnalysisValue)
	if err != nil {
		return nil, err
	}
	var base *table.Column
	if labs.HasColumn(study.ColBaseline) {
		base, _ = labs.Column(study.ColBaseline)
	}

	arm, err := armBySubject(subjects)
	if err != nil {
		return nil, err
	}

	type state struct {
		baseline    float64
		hasBaseline bool
		locf        float64
		locfVisit   float64
		hasLOCF     bool
		base        float64
		hasBase     bool
	}
	states := make(map[core.SubjectID]*state)
	var order []core.SubjectID

	for row := 0; row < labs.NumRows(); row++ {
		subject := core.SubjectID(ids.String(row))
		if _, inPopulation := arm[subject]; !inPopulation {
			continue
		}
		if params.String(row) != spec.Param || visits.IsMissing(row) || values.IsMissing(row) {
			continue
		}
		visit := visits.Float(row)
		if visit > spec.EndpointWeek {
			continue
		}

		st, ok := states[subject]
		if !ok {
			st = &state{}
			states[subject] = st
			order = append(order, subject)
		}
		if visit == 0 && !st.hasBaseline {
			st.baseline = values.Float(row)
			st.hasBaseline = true
		}
		if visit > 0 && (!st.hasLOCF || visit >= st.locfVisit) {
			st.locf = values.Float(row)
			st.locfVisit = visit
			st.hasLOCF = true
		}
		if base != nil && !st.hasBase && !base.IsMissing(row) {
			st.base = base.Float(row)
			st.hasBase = true
		}
	}

	var (
		outIDs   []string
		outArms  []string
		outBase  []float64
		baseMiss []bool
		outBL    []float64
		outLOCF  []float64
		outCHG   []float64
	)
	for _, subject := range order {
		st := states[subject]
		if !st.hasBaseline || !st.hasLOCF {
			continue
		}
		outIDs = append(outIDs, subject.String())
		outArms = append(outArms, arm[subject])
		outBL = append(outBL, st.baseline)
		outLOCF = append(outLOCF, st.locf)
		outCHG = append(outCHG, st.locf-st.baseline)
		if st.hasBase {
			outBase = append(outBase, st.base)
			baseMiss = append(baseMiss, false)
		} else {
			// Fall back to the visit-0 analysis value when the dataset
			// carries no BASE column.
			outBase = append(outBase, st.baseline)
			baseMiss = append(baseMiss, false)
		}
	}

	return table.New("efficacy_locf",
		table.NewStringColumn(study.ColSubjectID, table.Identifier, outIDs),
		table.NewStringColumn(study.ColPlanned, table.Categorical, outArms),
		table.NewNumericColumn(study.ColBaseline, outBase, baseMiss),
		table.NewNumericColumn(ColBaselineVisit, outBL, nil),
		table.NewNumericColumn(ColEndpointLOCF, outLOCF, nil),
		table.NewNumericColumn(ColChange, outCHG, nil),
	)
}

// armBySubject maps subjects of the filtered subject-level table to arms
func armBySubject(subjects *table.Table) (map[core.SubjectID]string, error) {
	ids, err := subjects.Column(study.ColSubjectID)
	if err != nil {
		return nil, err
	}
	arms, err := subjects.Column(study.ColTreatment)
	if err != nil {
		return nil, err
	}
	out := make(map[core.SubjectID]string, subjects.NumRows())
	for row := 0; row < subjects.NumRows(); row++ {
		out[core.SubjectID(ids.String(row))] = arms.String(row)
	}
	return out, nil
}
