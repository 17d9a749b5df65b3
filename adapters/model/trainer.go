package model

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"spatialview/domain/core"
	"spatialview/domain/result"
	"spatialview/domain/view"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// TrainConfig controls one per-view cross-validated fit.
type TrainConfig struct {
	Folds  int
	Model  Kind
	Forest ForestConfig
}

// Validate checks the structural configuration before any training starts.
func (c TrainConfig) Validate() error {
	if c.Folds < 2 {
		return fmt.Errorf("%w: got %d", core.ErrInvalidFolds, c.Folds)
	}
	if _, err := ParseKind(string(c.Model)); err != nil {
		return err
	}
	return nil
}

// degenerateVariance is the variance below which a predictor column is
// dropped from a fold's fit.
const degenerateVariance = 1e-12

// FitView fits one model per fold for a single (target, view) pair under
// k-fold cross-validation and returns the per-fold held-out results.
//
// The fold partition is a pure row partition, deterministic given seed.
// Within the intrinsic view the target's own column is excluded as a
// predictor; sentinel (non-finite) rows are excluded from both training and
// held-out sets. Degenerate predictors are dropped per fold; a fold whose
// predictors are all degenerate is recorded as failed without aborting
// sibling folds.
func FitView(v view.View, target string, y []float64, cfg TrainConfig, seed int64) ([]result.FoldResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	predictors := v.Data
	if v.Kind == view.KindIntra {
		predictors = predictors.DropColumn(target)
	}
	if predictors.Rows() != len(y) {
		return nil, core.NewIndexMismatchError(fmt.Sprintf("target %s against view %s", target, v.Name))
	}
	if predictors.Cols() == 0 {
		return nil, core.NewConfigError(fmt.Sprintf("view %s has no predictors for target %s", v.Name, target))
	}

	usable := usableRows(predictors, y)
	if len(usable) < cfg.Folds {
		return nil, fmt.Errorf("%w: %d usable rows for %d folds (target %s, view %s)",
			core.ErrData, len(usable), cfg.Folds, target, v.Name)
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(usable), func(i, j int) {
		usable[i], usable[j] = usable[j], usable[i]
	})

	features := predictors.Features()
	results := make([]result.FoldResult, 0, cfg.Folds)
	for fold := 0; fold < cfg.Folds; fold++ {
		var train, test []int
		for i, row := range usable {
			if i%cfg.Folds == fold {
				test = append(test, row)
			} else {
				train = append(train, row)
			}
		}
		results = append(results, fitFold(predictors, features, target, v.Name, y, train, test, fold, cfg, seed))
	}
	return results, nil
}

func fitFold(predictors *view.FeatureMatrix, features []string, target, viewName string,
	y []float64, train, test []int, fold int, cfg TrainConfig, seed int64) result.FoldResult {

	fr := result.FoldResult{Target: target, View: viewName, Fold: fold}

	kept := keepNonDegenerate(predictors, features, train)
	if len(kept) == 0 {
		fr.Failed = true
		fr.FailReason = core.NewDegenerateError(target, viewName, fold).Error()
		return fr
	}

	xTrain := subMatrix(predictors, train, kept)
	xTest := subMatrix(predictors, test, kept)
	yTrain := valuesAt(y, train)
	yTest := valuesAt(y, test)

	foldSeed := core.DeriveSeed(seed, "fold", strconv.Itoa(fold))
	reg := newRegressor(cfg.Model, cfg.Forest, foldSeed)
	if err := reg.Fit(xTrain, yTrain); err != nil {
		fr.Failed = true
		fr.FailReason = err.Error()
		return fr
	}

	fr.TestRows = test
	fr.Pred = reg.Predict(xTest)
	fr.Actual = yTest
	fr.R2, fr.R2Defined = heldOutR2(yTest, fr.Pred)

	importance := reg.Importance()
	fr.Importance = make(map[string]float64, len(kept))
	for j, featureIdx := range kept {
		fr.Importance[features[featureIdx]] = importance[j]
	}
	return fr
}

// heldOutR2 computes R² = 1 - SS_res/SS_tot on the held-out partition only.
// A target constant within the fold yields an undefined R² rather than
// an infinity.
func heldOutR2(actual, pred []float64) (float64, bool) {
	mean := stat.Mean(actual, nil)
	ssTot := 0.0
	ssRes := 0.0
	for i := range actual {
		dt := actual[i] - mean
		dr := actual[i] - pred[i]
		ssTot += dt * dt
		ssRes += dr * dr
	}
	if ssTot < degenerateVariance {
		return math.NaN(), false
	}
	return 1 - ssRes/ssTot, true
}

func usableRows(m *view.FeatureMatrix, y []float64) []int {
	rows := make([]int, 0, m.Rows())
	for i := 0; i < m.Rows(); i++ {
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			continue
		}
		ok := true
		for j := 0; j < m.Cols(); j++ {
			val := m.At(i, j)
			if math.IsNaN(val) || math.IsInf(val, 0) {
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

func keepNonDegenerate(m *view.FeatureMatrix, features []string, train []int) []int {
	kept := make([]int, 0, len(features))
	col := make([]float64, len(train))
	for j := range features {
		for i, row := range train {
			col[i] = m.At(row, j)
		}
		if stat.Variance(col, nil) > degenerateVariance {
			kept = append(kept, j)
		}
	}
	return kept
}

func subMatrix(m *view.FeatureMatrix, rows, cols []int) *mat.Dense {
	out := mat.NewDense(len(rows), len(cols), nil)
	for i, r := range rows {
		for j, c := range cols {
			out.Set(i, j, m.At(r, c))
		}
	}
	return out
}

func valuesAt(y []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = y[r]
	}
	return out
}
