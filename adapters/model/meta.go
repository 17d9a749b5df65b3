package model

import (
	"math"

	"spatialview/domain/result"
	"spatialview/domain/view"

	"gonum.org/v1/gonum/mat"
)

// minMetaRows is the minimum number of jointly covered rows required to fit
// the second-stage combiner.
const minMetaRows = 3

// CombineViews builds the per-target meta-model from out-of-fold per-view
// predictions. Two variants are fit: intrinsic-only (skipped entirely under
// bypassIntra) and multi-view. Gain is their R² difference; per-view
// contribution is the standardized coefficient magnitude in the multi-view
// combiner, normalized to sum to 100 across views.
//
// Views whose folds all failed for this target are excluded from the
// combiner and listed in FailedViews instead of propagating an error.
func CombineViews(target string, y []float64, foldsByView map[string][]result.FoldResult,
	viewOrder []string, bypassIntra bool) result.TargetOutcome {

	out := result.TargetOutcome{
		Target:        target,
		ViewR2:        make(map[string]float64),
		Contributions: make(map[string]float64),
		IntraR2:       math.NaN(),
		MultiR2:       math.NaN(),
	}

	oof := make(map[string][]float64)
	var included []string
	for _, name := range viewOrder {
		folds, ok := foldsByView[name]
		if !ok {
			continue
		}
		if name == view.IntraName && bypassIntra {
			// The intrinsic view is deliberately bypassed; no predictor
			// derived from it may reach the combiner.
			continue
		}
		if r2, defined := result.MeanViewR2(folds); defined {
			out.ViewR2[name] = r2
		}
		preds, any := assembleOutOfFold(folds, len(y))
		if !any {
			out.FailedViews = append(out.FailedViews, name)
			continue
		}
		oof[name] = preds
		included = append(included, name)
	}

	if len(included) == 0 {
		return out
	}

	rows := jointRows(y, oof, included)
	if len(rows) < minMetaRows {
		return out
	}

	// Multi-view combiner over all included views' out-of-fold signals.
	design := metaDesign(oof, included, rows)
	truth := valuesAt(y, rows)
	multi := newLinearModel()
	if err := multi.Fit(design, truth); err == nil {
		r2, defined := heldOutR2(truth, multi.Predict(design))
		if defined {
			out.MultiR2 = r2
			out.MultiDefined = true
		}
		normalizeContributions(out.Contributions, included, multi.Importance())
	}

	// Intrinsic-only baseline on the same rows, unless bypassed.
	if !bypassIntra {
		if intraOOF, ok := oof[view.IntraName]; ok {
			intraDesign := metaDesign(map[string][]float64{view.IntraName: intraOOF}, []string{view.IntraName}, rows)
			intra := newLinearModel()
			if err := intra.Fit(intraDesign, truth); err == nil {
				if r2, defined := heldOutR2(truth, intra.Predict(intraDesign)); defined {
					out.IntraR2 = r2
					out.IntraDefined = true
				}
			}
		}
	}

	// Gain is zero by definition under bypass-intra: there is no
	// intrinsic-only baseline to subtract.
	if out.MultiDefined && out.IntraDefined {
		out.GainR2 = out.MultiR2 - out.IntraR2
	}
	return out
}

// assembleOutOfFold scatters held-out fold predictions into one full-length
// vector. Rows never held out (sentinel rows, failed folds) stay NaN.
func assembleOutOfFold(folds []result.FoldResult, n int) ([]float64, bool) {
	preds := make([]float64, n)
	for i := range preds {
		preds[i] = math.NaN()
	}
	any := false
	for _, fr := range folds {
		if fr.Failed {
			continue
		}
		for k, row := range fr.TestRows {
			preds[row] = fr.Pred[k]
			any = true
		}
	}
	return preds, any
}

func jointRows(y []float64, oof map[string][]float64, included []string) []int {
	var rows []int
	for i := range y {
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			continue
		}
		ok := true
		for _, name := range included {
			if math.IsNaN(oof[name][i]) {
				ok = false
				break
			}
		}
		if ok {
			rows = append(rows, i)
		}
	}
	return rows
}

func metaDesign(oof map[string][]float64, included []string, rows []int) *mat.Dense {
	design := mat.NewDense(len(rows), len(included), nil)
	for j, name := range included {
		preds := oof[name]
		for i, row := range rows {
			design.Set(i, j, preds[row])
		}
	}
	return design
}

func normalizeContributions(dst map[string]float64, included []string, importance []float64) {
	total := 0.0
	for _, imp := range importance {
		total += imp
	}
	if total <= 0 {
		// No view carries signal; split evenly so shares still sum to 100.
		for _, name := range included {
			dst[name] = 100 / float64(len(included))
		}
		return
	}
	for j, name := range included {
		dst[name] = 100 * importance[j] / total
	}
}
