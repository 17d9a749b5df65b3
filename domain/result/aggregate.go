package result

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// Aggregation is a pure reduction over fold- and target-level results.
// Inputs may arrive from parallel workers in any order; grouping happens in
// maps and the output is canonically sorted, so the tables are identical
// regardless of completion order.

// BuildPerformance flattens per-target outcomes into the (target, view)
// performance table, sorted by target then view.
func BuildPerformance(outcomes []TargetOutcome) []PerformanceRow {
	rows := make([]PerformanceRow, 0)
	for _, out := range outcomes {
		views := make([]string, 0, len(out.ViewR2))
		for v := range out.ViewR2 {
			views = append(views, v)
		}
		sort.Strings(views)
		for _, v := range views {
			row := PerformanceRow{
				Target:       out.Target,
				View:         v,
				ViewR2:       out.ViewR2[v],
				MultiR2:      out.MultiR2,
				GainR2:       out.GainR2,
				Contribution: out.Contributions[v],
			}
			row.IntraR2 = math.NaN()
			if out.IntraDefined {
				row.IntraR2 = out.IntraR2
			}
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Target != rows[j].Target {
			return rows[i].Target < rows[j].Target
		}
		return rows[i].View < rows[j].View
	})
	return rows
}

// BuildImportance averages predictor importance scores across folds and
// flattens them into (view, predictor, target) rows. Failed folds
// contribute nothing.
func BuildImportance(folds []FoldResult) []ImportanceRow {
	type key struct{ view, predictor, target string }
	grouped := make(map[key][]float64)
	for _, fr := range folds {
		if fr.Failed {
			continue
		}
		for predictor, score := range fr.Importance {
			k := key{view: fr.View, predictor: predictor, target: fr.Target}
			grouped[k] = append(grouped[k], score)
		}
	}
	rows := make([]ImportanceRow, 0, len(grouped))
	for k, scores := range grouped {
		mean, err := stats.Mean(scores)
		if err != nil {
			continue
		}
		rows = append(rows, ImportanceRow{
			View:      k.view,
			Predictor: k.predictor,
			Target:    k.target,
			Score:     mean,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Target != rows[j].Target {
			return rows[i].Target < rows[j].Target
		}
		if rows[i].View != rows[j].View {
			return rows[i].View < rows[j].View
		}
		return rows[i].Predictor < rows[j].Predictor
	})
	return rows
}

// MeanViewR2 averages held-out R² over the defined folds of one
// (target, view). The second return is false when no fold had a defined R²
// or every fold failed.
func MeanViewR2(folds []FoldResult) (float64, bool) {
	defined := make([]float64, 0, len(folds))
	for _, fr := range folds {
		if fr.Failed || !fr.R2Defined {
			continue
		}
		defined = append(defined, fr.R2)
	}
	if len(defined) == 0 {
		return math.NaN(), false
	}
	mean, _ := stats.Mean(defined)
	return mean, true
}
