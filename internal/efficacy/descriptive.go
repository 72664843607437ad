package efficacy

import (
	"gotlf/domain/result"
	"gotlf/domain/study"
	"gotlf/domain/table"

	"github.com/montanaflynn/stats"
)

// EndpointDescriptives reports, per arm, the analysis-set size and the
// mean and sample SD of the baseline value, the LOCF endpoint value and
// the change from baseline. Arms with no analysis subjects appear with
// n=0 and missing statistics.
func EndpointDescriptives(locf *table.Table, arms []string) (*result.Table, error) {
	armCol, err := locf.Column(study.ColPlanned)
	if err != nil {
		return nil, err
	}
	if len(arms) == 0 {
		arms = armCol.Levels()
	}

	measures := []struct {
		label  string
		column string
	}{
		{"baseline", ColBaselineVisit},
		{"endpoint", ColEndpointLOCF},
		{"change", ColChange},
	}

	out := result.NewTable("efficacy_descriptives", "arm", "measure")
	for _, arm := range arms {
		for _, m := range measures {
			col, err := locf.Column(m.column)
			if err != nil {
				return nil, err
			}
			var values []float64
			for row := 0; row < locf.NumRows(); row++ {
				if armCol.String(row) == arm && !col.IsMissing(row) {
					values = append(values, col.Float(row))
				}
			}

			groups := []string{arm, m.label}
			out.Append(groups, "n", result.Number(float64(len(values))))
			if len(values) == 0 {
				out.Append(groups, "mean", result.MissingValue())
				out.Append(groups, "sd", result.MissingValue())
				continue
			}
			mean, _ := stats.Mean(values)
			out.Append(groups, "mean", result.Number(mean))
			if len(values) > 1 {
				sd, _ := stats.StandardDeviationSample(values)
				out.Append(groups, "sd", result.Number(sd))
			} else {
				out.Append(groups, "sd", result.MissingValue())
			}
		}
	}
	return out, nil
}
