package population

import (
	"gotlf/domain/result"
	"gotlf/domain/study"
	"gotlf/domain/table"
)

// CountByTreatment tabulates population membership per treatment arm:
// for each arm, the subject count and its share of the filtered total.
func CountByTreatment(t *table.Table, res *Result) (*result.Table, error) {
	arms, err := t.Column(study.ColTreatment)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	var order []string
	total := 0
	for row := 0; row < t.NumRows(); row++ {
		if !res.Mask[row] {
			continue
		}
		arm := arms.String(row)
		if _, seen := counts[arm]; !seen {
			order = append(order, arm)
		}
		counts[arm]++
		total++
	}

	out := result.NewTable(res.Definition, "arm")
	for _, arm := range order {
		groups := []string{arm}
		out.Append(groups, "n", result.Number(float64(counts[arm])))
		if total > 0 {
			out.Append(groups, "pct", result.Number(100*float64(counts[arm])/float64(total)))
		} else {
			out.Append(groups, "pct", result.MissingValue())
		}
	}
	out.Append([]string{"Total"}, "n", result.Number(float64(total)))
	return out, nil
}
