// Package baseline computes descriptive statistics of baseline
// characteristics by treatment arm: count, mean, SD, median and range for
// continuous covariates, frequency and percentage for categorical ones.
package baseline

import (
	"gotlf/domain/result"
	"gotlf/domain/study"
	"gotlf/domain/table"

	"github.com/montanaflynn/stats"
)

// Denominator selects the percentage denominator for categorical summaries
type Denominator string

const (
	// DenomArm uses each arm's own subject count (the default).
	DenomArm Denominator = "arm"
	// DenomOverall uses the whole filtered population. Must be requested
	// explicitly; it is never the silent default.
	DenomOverall Denominator = "overall"
)

// Options control a baseline summary. The zero value uses the standard
// treatment column, the arms observed in the data, and per-arm denominators.
type Options struct {
	// ArmColumn is the treatment assignment column (default TRT01P).
	ArmColumn string
	// Arms fixes the arms to report. Arms with no subjects after filtering
	// are still emitted, with n=0 and missing statistics. When empty, the
	// arms observed in the input are used.
	Arms []string
	// Denominator selects the percentage base for categorical summaries.
	Denominator Denominator
}

func (o Options) armColumn() string {
	if o.ArmColumn == "" {
		return study.ColTreatment
	}
	return o.ArmColumn
}

func (o Options) denominator() Denominator {
	if o.Denominator == "" {
		return DenomArm
	}
	return o.Denominator
}

// arms resolves the reporting arms and per-arm row masks
func resolveArms(t *table.Table, opts Options) ([]string, map[string][]bool, error) {
	armCol, err := t.Column(opts.armColumn())
	if err != nil {
		return nil, nil, err
	}
	arms := opts.Arms
	if len(arms) == 0 {
		arms = armCol.Levels()
	}
	masks := make(map[string][]bool, len(arms))
	for _, arm := range arms {
		mask := make([]bool, t.NumRows())
		for row := 0; row < t.NumRows(); row++ {
			mask[row] = !armCol.IsMissing(row) && armCol.String(row) == arm
		}
		masks[arm] = mask
	}
	return arms, masks, nil
}

// SummarizeContinuous reports, per arm and covariate, the non-missing
// count, mean, sample SD, median, min and max. An arm with no subjects
// yields n=0 and missing statistics, never a fabricated zero.
func SummarizeContinuous(t *table.Table, covariates []string, opts Options) (*result.Table, error) {
	arms, masks, err := resolveArms(t, opts)
	if err != nil {
		return nil, err
	}

	out := result.NewTable("baseline_continuous", "arm", "covariate")
	for _, cov := range covariates {
		col, err := t.Column(cov)
		if err != nil {
			return nil, err
		}
		for _, arm := range arms {
			values := maskedFloats(col, masks[arm])
			appendContinuous(out, []string{arm, cov}, values)
		}
	}
	return out, nil
}

func maskedFloats(col *table.Column, mask []bool) []float64 {
	var values []float64
	for row := 0; row < col.Len(); row++ {
		if mask[row] && !col.IsMissing(row) {
			values = append(values, col.Float(row))
		}
	}
	return values
}

func appendContinuous(out *result.Table, groups []string, values []float64) {
	out.Append(groups, "n", result.Number(float64(len(values))))
	if len(values) == 0 {
		for _, stat := range []string{"mean", "sd", "median", "min", "max"} {
			out.Append(groups, stat, result.MissingValue())
		}
		return
	}

	mean, _ := stats.Mean(values)
	median, _ := stats.Median(values)
	min, _ := stats.Min(values)
	max, _ := stats.Max(values)
	out.Append(groups, "mean", result.Number(mean))
	if len(values) > 1 {
		sd, _ := stats.StandardDeviationSample(values)
		out.Append(groups, "sd", result.Number(sd))
	} else {
		// SD of a single observation is undefined
		out.Append(groups, "sd", result.MissingValue())
	}
	out.Append(groups, "median", result.Number(median))
	out.Append(groups, "min", result.Number(min))
	out.Append(groups, "max", result.Number(max))
}

// SummarizeCategorical reports, per arm, covariate and category, the
// subject count and percentage. Categories are the union observed in the
// input, so a category absent from one arm still appears with count 0.
// Missing values are reported under an explicit "Missing" category.
func SummarizeCategorical(t *table.Table, covariates []string, opts Options) (*result.Table, error) {
	arms, masks, err := resolveArms(t, opts)
	if err != nil {
		return nil, err
	}

	armSizes := make(map[string]int, len(arms))
	total := 0
	for _, arm := range arms {
		for _, in := range masks[arm] {
			if in {
				armSizes[arm]++
			}
		}
		total += armSizes[arm]
	}

	out := result.NewTable("baseline_categorical", "arm", "covariate", "category")
	for _, cov := range covariates {
		col, err := t.Column(cov)
		if err != nil {
			return nil, err
		}
		categories := col.Levels()
		if col.MissingCount() > 0 {
			categories = append(categories, "Missing")
		}

		for _, arm := range arms {
			denom := armSizes[arm]
			if opts.denominator() == DenomOverall {
				denom = total
			}
			counts := make(map[string]int, len(categories))
			for row := 0; row < t.NumRows(); row++ {
				if !masks[arm][row] {
					continue
				}
				if col.IsMissing(row) {
					counts["Missing"]++
				} else {
					counts[col.String(row)]++
				}
			}
			for _, cat := range categories {
				groups := []string{arm, cov, cat}
				out.Append(groups, "n", result.Number(float64(counts[cat])))
				if denom > 0 {
					out.Append(groups, "pct", result.Number(100*float64(counts[cat])/float64(denom)))
				} else {
					out.Append(groups, "pct", result.MissingValue())
				}
			}
		}
	}
	return out, nil
}
