package efficacy

import (
	"testing"

	"gotlf/domain/core"
	"gotlf/domain/study"
	"gotlf/domain/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labsTable(t *testing.T, ids []string, visits, avals []float64) *table.Table {
	t.Helper()
	params := make([]string, len(ids))
	for i := range params {
		params[i] = "GLUC"
	}
	tbl, err := table.New(study.DatasetADLB,
		table.NewStringColumn(study.ColSubjectID, table.Identifier, ids),
		table.NewStringColumn(study.ColParamCode, table.Categorical, params),
		table.NewNumericColumn(study.ColVisitNum, visits, nil),
		table.NewNumericColumn(study.ColAnalysisValue, avals, nil),
	)
	require.NoError(t, err)
	return tbl
}

func subjectsTable(t *testing.T, ids, arms []string) *table.Table {
	t.Helper()
	tbl, err := table.New(study.DatasetADSL,
		table.NewStringColumn(study.ColSubjectID, table.Identifier, ids),
		table.NewStringColumn(study.ColTreatment, table.Categorical, arms),
	)
	require.NoError(t, err)
	return tbl
}

func TestPrepareLOCF(t *testing.T) {
	// S1 completes; S2 has no baseline visit; S3 drops out after week 6;
	// S4 has only the baseline visit, so nothing to carry forward.
	labs := labsTable(t,
		[]string{"S1", "S1", "S1", "S2", "S3", "S3", "S1", "S4"},
		[]float64{0, 6, 24, 6, 0, 6, 52, 0},
		[]float64{100, 98, 95, 97, 102, 96, 90, 99},
	)
	subjects := subjectsTable(t,
		[]string{"S1", "S2", "S3", "S4"},
		[]string{"Placebo", "Placebo", "Active", "Active"})

	out, err := PrepareLOCF(labs, subjects, LOCFSpec{Param: "GLUC", EndpointWeek: 24})
	require.NoError(t, err)
	require.Equal(t, 2, out.NumRows(), "subjects without baseline or post-baseline are excluded")

	ids, _ := out.Column(study.ColSubjectID)
	chg, _ := out.Column(ColChange)
	locf, _ := out.Column(ColEndpointLOCF)

	assert.Equal(t, "S1", ids.String(0))
	assert.Equal(t, 95.0, locf.Float(0), "week-52 visit must not leak past the endpoint week")
	assert.Equal(t, -5.0, chg.Float(0))

	assert.Equal(t, "S3", ids.String(1))
	assert.Equal(t, 96.0, locf.Float(1), "the week-6 value is carried forward")
	assert.Equal(t, -6.0, chg.Float(1))
}

func TestPrepareLOCF_ExcludesSubjectsOutsidePopulation(t *testing.T) {
	labs := labsTable(t,
		[]string{"S1", "S1", "S9", "S9"},
		[]float64{0, 24, 0, 24},
		[]float64{100, 95, 100, 80},
	)
	// S9 is not in the filtered subject-level table.
	subjects := subjectsTable(t, []string{"S1"}, []string{"Placebo"})

	out, err := PrepareLOCF(labs, subjects, LOCFSpec{Param: "GLUC", EndpointWeek: 24})
	require.NoError(t, err)
	assert.Equal(t, 1, out.NumRows())
}

// ancovaFixture builds an 8-subject dataset where the response is an exact
// linear function of arm and baseline plus a residual pattern orthogonal to
// the design, so OLS recovers the true coefficients.
func ancovaFixture(t *testing.T) *table.Table {
	t.Helper()
	arms := []string{"Placebo", "Placebo", "Placebo", "Placebo", "Active", "Active", "Active", "Active"}
	ids := []string{"S1", "S2", "S3", "S4", "S5", "S6", "S7", "S8"}
	base := []float64{10, 20, 10, 20, 10, 20, 10, 20}
	eps := []float64{0.5, -0.5, -0.5, 0.5, 0.5, -0.5, -0.5, 0.5}

	chg := make([]float64, len(ids))
	endpoint := make([]float64, len(ids))
	for i := range chg {
		chg[i] = 1 + 0.3*base[i] + eps[i]
		if arms[i] == "Active" {
			chg[i] -= 2
		}
		endpoint[i] = base[i] + chg[i]
	}

	tbl, err := table.New("efficacy_locf",
		table.NewStringColumn(study.ColSubjectID, table.Identifier, ids),
		table.NewStringColumn(study.ColPlanned, table.Categorical, arms),
		table.NewNumericColumn(study.ColBaseline, base, nil),
		table.NewNumericColumn(ColBaselineVisit, base, nil),
		table.NewNumericColumn(ColEndpointLOCF, endpoint, nil),
		table.NewNumericColumn(ColChange, chg, nil),
	)
	require.NoError(t, err)
	return tbl
}

func defaultSpec() ModelSpec {
	return ModelSpec{
		Endpoint:     ColChange,
		Treatment:    study.ColPlanned,
		Covariates:   []string{study.ColBaseline},
		ReferenceArm: "Placebo",
	}
}

func TestFit_RecoversPlantedEffect(t *testing.T) {
	fit, err := Fit(ancovaFixture(t), defaultSpec())
	require.NoError(t, err)

	require.Len(t, fit.Contrasts, 1)
	c := fit.Contrasts[0]
	assert.Equal(t, "Active vs. Placebo", c.Contrast)
	assert.InDelta(t, -2.0, c.Estimate, 1e-8, "residuals orthogonal to the design leave the effect exact")
	assert.Greater(t, c.StdErr, 0.0)
	assert.Greater(t, c.PValue, 0.0)
	assert.Less(t, c.PValue, 1.0)
	assert.Less(t, c.CILower, c.Estimate)
	assert.Greater(t, c.CIUpper, c.Estimate)
	assert.Equal(t, 0.95, c.ConfLevel, "the documented default confidence level is recorded")
	assert.Equal(t, fit.Formula, c.Model)
	require.NoError(t, c.Validate())

	// LS means at the baseline mean (15): Placebo 1+0.3*15, Active 2 lower.
	require.Len(t, fit.LSMeans, 2)
	assert.Equal(t, "Placebo", fit.LSMeans[0].Arm)
	assert.InDelta(t, 5.5, fit.LSMeans[0].Mean, 1e-8)
	assert.InDelta(t, 3.5, fit.LSMeans[1].Mean, 1e-8)
}

func TestFit_Reproducible(t *testing.T) {
	data := ancovaFixture(t)

	first, err := Fit(data, defaultSpec())
	require.NoError(t, err)
	second, err := Fit(data, defaultSpec())
	require.NoError(t, err)

	// Bit-for-bit: the fit has no randomness to vary between calls.
	assert.Equal(t, first.Contrasts[0].Estimate, second.Contrasts[0].Estimate)
	assert.Equal(t, first.Contrasts[0].PValue, second.Contrasts[0].PValue)
	assert.Equal(t, first.LSMeans[0].Mean, second.LSMeans[0].Mean)
	assert.Equal(t, first.Sigma2, second.Sigma2)
}

func TestFit_RankDeficientDesign(t *testing.T) {
	// A constant covariate is collinear with the intercept.
	arms := []string{"Placebo", "Placebo", "Active", "Active", "Placebo", "Active"}
	ids := []string{"S1", "S2", "S3", "S4", "S5", "S6"}
	base := []float64{10, 10, 10, 10, 10, 10}
	chg := []float64{1, 2, 3, 4, 2, 5}

	data, err := table.New("efficacy_locf",
		table.NewStringColumn(study.ColSubjectID, table.Identifier, ids),
		table.NewStringColumn(study.ColPlanned, table.Categorical, arms),
		table.NewNumericColumn(study.ColBaseline, base, nil),
		table.NewNumericColumn(ColChange, chg, nil),
	)
	require.NoError(t, err)

	_, err = Fit(data, defaultSpec())
	assert.True(t, core.IsModelFitError(err), "rank deficiency must surface, got %v", err)
}

func TestFit_ReferenceArmMustExist(t *testing.T) {
	spec := defaultSpec()
	spec.ReferenceArm = "Xanomeline Low Dose"

	_, err := Fit(ancovaFixture(t), spec)
	assert.True(t, core.IsModelFitError(err), "got %v", err)
	assert.ErrorContains(t, err, "not among the analysis arms")
}

func TestFit_ReferenceArmMustBeAmongFixedArms(t *testing.T) {
	// An explicit arm list is checked too, not just the observed levels.
	spec := defaultSpec()
	spec.Arms = []string{"Active"}

	_, err := Fit(ancovaFixture(t), spec)
	assert.True(t, core.IsModelFitError(err), "got %v", err)
	assert.ErrorContains(t, err, "not among the analysis arms")
}

func TestFit_TooFewCases(t *testing.T) {
	arms := []string{"Placebo", "Active"}
	ids := []string{"S1", "S2"}
	data, err := table.New("efficacy_locf",
		table.NewStringColumn(study.ColSubjectID, table.Identifier, ids),
		table.NewStringColumn(study.ColPlanned, table.Categorical, arms),
		table.NewNumericColumn(study.ColBaseline, []float64{10, 12}, nil),
		table.NewNumericColumn(ColChange, []float64{1, 2}, nil),
	)
	require.NoError(t, err)

	_, err = Fit(data, defaultSpec())
	assert.True(t, core.IsModelFitError(err), "got %v", err)
}

func TestFit_InvalidConfLevel(t *testing.T) {
	spec := defaultSpec()
	spec.ConfLevel = 1.5

	_, err := Fit(ancovaFixture(t), spec)
	assert.ErrorIs(t, err, core.ErrInvalidConfLevel)
}

func TestEndpointDescriptives(t *testing.T) {
	data := ancovaFixture(t)

	out, err := EndpointDescriptives(data, nil)
	require.NoError(t, err)

	n, ok := out.Get([]string{"Placebo", "change"}, "n")
	require.True(t, ok)
	assert.Equal(t, 4.0, n.Num)

	mean, ok := out.Get([]string{"Active", "change"}, "mean")
	require.True(t, ok)
	assert.False(t, mean.Missing)
}

func TestEndpointDescriptives_EmptyArm(t *testing.T) {
	out, err := EndpointDescriptives(ancovaFixture(t), []string{"Placebo", "Active", "Ghost"})
	require.NoError(t, err)

	n, ok := out.Get([]string{"Ghost", "change"}, "n")
	require.True(t, ok)
	assert.Equal(t, 0.0, n.Num)
	mean, ok := out.Get([]string{"Ghost", "change"}, "mean")
	require.True(t, ok)
	assert.True(t, mean.Missing)
}
