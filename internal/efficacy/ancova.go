package efficacy

import (
	"fmt"
	"math"
	"strings"

	"gotlf/domain/core"
	"gotlf/domain/result"
	"gotlf/domain/table"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultConfLevel is the confidence level used when a model spec leaves
// it unset. It is recorded on every estimate rather than relied on later.
const DefaultConfLevel = 0.95

// ModelSpec declares a covariate-adjusted comparison of arms: the response
// column, the treatment column with its reference arm, and the numeric
// adjustment covariates. All parameters are explicit; nothing is read from
// process-wide state.
type ModelSpec struct {
	Endpoint     string
	Treatment    string
	Covariates   []string
	ReferenceArm string
	// Arms fixes the arm order; defaults to observed order with the
	// reference arm first.
	Arms      []string
	ConfLevel float64
}

func (s ModelSpec) confLevel() float64 {
	if s.ConfLevel == 0 {
		return DefaultConfLevel
	}
	return s.ConfLevel
}

// Formula renders the model in the conventional notation, recorded on
// every estimate for reproducibility.
func (s ModelSpec) Formula() string {
	terms := append([]string{s.Treatment}, s.Covariates...)
	return fmt.Sprintf("%s ~ %s (ref=%s)", s.Endpoint, strings.Join(terms, " + "), s.ReferenceArm)
}

// FitResult holds one ANCOVA fit: LS means per arm and contrasts of each
// non-reference arm against the reference.
type FitResult struct {
	Spec       ModelSpec
	Formula    string
	N          int
	ResidualDF float64
	Sigma2     float64
	LSMeans    []result.LSMean
	Contrasts  []result.EffectEstimate
}

// Fit estimates the model by ordinary least squares over complete cases.
// The design matrix is intercept + reference-coded treatment dummies +
// covariates; a rank-deficient design (for example a covariate constant
// within every arm-adjusted residual space, or an arm with no subjects)
// fails with ErrModelFit rather than silently dropping a contrast.
// The fit is deterministic: identical inputs yield identical estimates.
func Fit(data *table.Table, spec ModelSpec) (*FitResult, error) {
	conf := spec.confLevel()
	if conf <= 0 || conf >= 1 {
		return nil, core.ErrInvalidConfLevel
	}
	formula := spec.Formula()

	y, X, arms, covMeans, err := buildDesign(data, spec)
	if err != nil {
		return nil, err
	}
	n, p := X.Dims()
	if n <= p {
		return nil, core.NewModelFitError(formula,
			fmt.Sprintf("%d complete cases for %d parameters", n, p))
	}

	// Normal equations: beta = (X'X)^-1 X'y. Inversion failure means a
	// rank-deficient design and must surface as ErrModelFit.
	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, core.NewModelFitError(formula, "design matrix is rank deficient")
	}
	var xty mat.VecDense
	xty.MulVec(X.T(), y)
	var beta mat.VecDense
	beta.MulVec(&xtxInv, &xty)

	// Residual variance with n-p degrees of freedom.
	var fitted mat.VecDense
	fitted.MulVec(X, &beta)
	rss := 0.0
	for i := 0; i < n; i++ {
		r := y.AtVec(i) - fitted.AtVec(i)
		rss += r * r
	}
	df := float64(n - p)
	sigma2 := rss / df

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	tq := tDist.Quantile(1 - (1-conf)/2)

	res := &FitResult{
		Spec:       spec,
		Formula:    formula,
		N:          n,
		ResidualDF: df,
		Sigma2:     sigma2,
	}

	// LS means: predict each arm at the covariate means and propagate the
	// prediction variance x0' (X'X)^-1 x0 * sigma2.
	for armIdx, arm := range arms {
		x0 := lsMeanRow(p, armIdx, len(arms), covMeans)
		mean := mat.Dot(x0, &beta)
		var tmp mat.VecDense
		tmp.MulVec(&xtxInv, x0)
		se := math.Sqrt(sigma2 * mat.Dot(x0, &tmp))
		res.LSMeans = append(res.LSMeans, result.LSMean{
			Arm:       arm,
			Mean:      mean,
			StdErr:    se,
			CILower:   mean - tq*se,
			CIUpper:   mean + tq*se,
			ConfLevel: conf,
		})
	}

	// Treatment contrasts vs the reference arm: the dummy coefficients.
	for armIdx := 1; armIdx < len(arms); armIdx++ {
		j := armIdx // dummy for arms[armIdx] occupies column armIdx
		est := beta.AtVec(j)
		se := math.Sqrt(sigma2 * xtxInv.At(j, j))
		tStat := est / se
		pValue := 2 * tDist.Survival(math.Abs(tStat))
		res.Contrasts = append(res.Contrasts, result.EffectEstimate{
			Contrast:  fmt.Sprintf("%s vs. %s", arms[armIdx], arms[0]),
			Estimate:  est,
			StdErr:    se,
			CILower:   est - tq*se,
			CIUpper:   est + tq*se,
			TStat:     tStat,
			PValue:    pValue,
			DF:        df,
			ConfLevel: conf,
			Model:     formula,
		})
	}
	return res, nil
}

// buildDesign assembles the complete-case response vector and design
// matrix. The returned arm list starts with the reference arm; covMeans
// are the covariate means over the analysis cases, used for LS means.
func buildDesign(data *table.Table, spec ModelSpec) (*mat.VecDense, *mat.Dense, []string, []float64, error) {
	endpoint, err := data.Column(spec.Endpoint)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	treatment, err := data.Column(spec.Treatment)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	covs := make([]*table.Column, len(spec.Covariates))
	for i, name := range spec.Covariates {
		covs[i], err = data.Column(name)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	}

	arms, err := resolveArms(treatment, spec)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	armIndex := make(map[string]int, len(arms))
	for i, arm := range arms {
		armIndex[arm] = i
	}

	// Complete cases only: endpoint, treatment and every covariate present.
	var rows []int
	for row := 0; row < data.NumRows(); row++ {
		if endpoint.IsMissing(row) || treatment.IsMissing(row) {
			continue
		}
		if _, known := armIndex[treatment.String(row)]; !known {
			continue
		}
		complete := true
		for _, cov := range covs {
			if cov.IsMissing(row) {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, nil, nil, nil, core.ErrInsufficientData
	}

	p := 1 + (len(arms) - 1) + len(covs)
	X := mat.NewDense(len(rows), p, nil)
	y := mat.NewVecDense(len(rows), nil)
	covSums := make([]float64, len(covs))

	for i, row := range rows {
		y.SetVec(i, endpoint.Float(row))
		X.Set(i, 0, 1)
		if idx := armIndex[treatment.String(row)]; idx > 0 {
			X.Set(i, idx, 1)
		}
		for c, cov := range covs {
			v := cov.Float(row)
			X.Set(i, len(arms)+c, v)
			covSums[c] += v
		}
	}
	covMeans := make([]float64, len(covs))
	for c := range covs {
		covMeans[c] = covSums[c] / float64(len(rows))
	}
	return y, X, arms, covMeans, nil
}

// resolveArms orders the arms with the reference first
func resolveArms(treatment *table.Column, spec ModelSpec) ([]string, error) {
	observed := treatment.Levels()
	candidates := spec.Arms
	if len(candidates) == 0 {
		candidates = observed
	}

	ref := spec.ReferenceArm
	if ref == "" && len(candidates) > 0 {
		ref = candidates[0]
	}
	found := false
	arms := []string{ref}
	for _, arm := range candidates {
		if arm == ref {
			found = true
			continue
		}
		arms = append(arms, arm)
	}
	if !found {
		return nil, core.NewModelFitError(spec.Formula(),
			fmt.Sprintf("reference arm %q not among the analysis arms", ref))
	}
	return arms, nil
}

// lsMeanRow builds the prediction row for one arm at the covariate means
func lsMeanRow(p, armIdx, numArms int, covMeans []float64) *mat.VecDense {
	x0 := mat.NewVecDense(p, nil)
	x0.SetVec(0, 1)
	if armIdx > 0 {
		x0.SetVec(armIdx, 1)
	}
	for c, m := range covMeans {
		x0.SetVec(numArms+c, m)
	}
	return x0
}
