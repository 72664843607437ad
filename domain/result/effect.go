package result

import (
	"fmt"

	"gotlf/domain/core"
)

// EffectEstimate is one treatment contrast from a comparative model fit.
// The confidence level and model formula travel with the estimate so the
// result is reproducible independent of any global default.
type EffectEstimate struct {
	Contrast  string  `json:"contrast"` // e.g. "Xanomeline High Dose vs. Placebo"
	Estimate  float64 `json:"estimate"`
	StdErr    float64 `json:"std_err"`
	CILower   float64 `json:"ci_lower"`
	CIUpper   float64 `json:"ci_upper"`
	TStat     float64 `json:"t_stat"`
	PValue    float64 `json:"p_value"`
	DF        float64 `json:"df"`
	ConfLevel float64 `json:"conf_level"`
	Model     string  `json:"model"` // fitted formula, e.g. "CHG ~ TRTP + BASE"
}

// Validate checks the recorded estimate invariants
func (e EffectEstimate) Validate() error {
	if e.ConfLevel <= 0 || e.ConfLevel >= 1 {
		return core.ErrInvalidConfLevel
	}
	if e.PValue < 0 || e.PValue > 1 {
		return fmt.Errorf("effect estimate %s: p-value %g outside [0,1]", e.Contrast, e.PValue)
	}
	if e.Model == "" {
		return fmt.Errorf("effect estimate %s: model specification not recorded", e.Contrast)
	}
	return nil
}

// LSMean is a model-adjusted arm mean evaluated at the covariate means
type LSMean struct {
	Arm       string  `json:"arm"`
	Mean      float64 `json:"mean"`
	StdErr    float64 `json:"std_err"`
	CILower   float64 `json:"ci_lower"`
	CIUpper   float64 `json:"ci_upper"`
	ConfLevel float64 `json:"conf_level"`
}

// EffectTable flattens contrasts and LS means into the long-format output
// contract so the formatter treats efficacy results like any other summary.
func EffectTable(name string, lsMeans []LSMean, contrasts []EffectEstimate) *Table {
	t := NewTable(name, "group", "label")
	for _, ls := range lsMeans {
		groups := []string{"lsmean", ls.Arm}
		t.Append(groups, "estimate", Number(ls.Mean))
		t.Append(groups, "std_err", Number(ls.StdErr))
		t.Append(groups, "ci_lower", Number(ls.CILower))
		t.Append(groups, "ci_upper", Number(ls.CIUpper))
		t.Append(groups, "conf_level", Number(ls.ConfLevel))
	}
	for _, c := range contrasts {
		groups := []string{"contrast", c.Contrast}
		t.Append(groups, "estimate", Number(c.Estimate))
		t.Append(groups, "std_err", Number(c.StdErr))
		t.Append(groups, "ci_lower", Number(c.CILower))
		t.Append(groups, "ci_upper", Number(c.CIUpper))
		t.Append(groups, "t_stat", Number(c.TStat))
		t.Append(groups, "p_value", Number(c.PValue))
		t.Append(groups, "conf_level", Number(c.ConfLevel))
		t.Append(groups, "model", Text(c.Model))
	}
	return t
}
