package model

import (
	"math"
	"math/rand"
	"testing"

	"spatialview/domain/core"
	"spatialview/domain/view"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLinearModel_RecoversPlantedCoefficients(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 60
	x := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x1 := rng.NormFloat64()
		x2 := rng.NormFloat64()
		x.Set(i, 0, x1)
		x.Set(i, 1, x2)
		y[i] = 1 + 2*x1 - 3*x2
	}

	m := newLinearModel()
	require.NoError(t, m.Fit(x, y))

	pred := m.Predict(x)
	for i := range y {
		assert.InDelta(t, y[i], pred[i], 1e-6)
	}

	imp := m.Importance()
	require.Len(t, imp, 2)
	assert.Greater(t, imp[1], imp[0], "the |-3| predictor should outrank the |2| predictor")
}

func TestForestModel_DeterministicBySeed(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	n := 80
	x := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			x.Set(i, j, rng.NormFloat64())
		}
		y[i] = x.At(i, 0) * 2
	}

	a := newForestModel(ForestConfig{Trees: 16}, 99)
	b := newForestModel(ForestConfig{Trees: 16}, 99)
	require.NoError(t, a.Fit(x, y))
	require.NoError(t, b.Fit(x, y))

	pa := a.Predict(x)
	pb := b.Predict(x)
	for i := range pa {
		require.Equal(t, pa[i], pb[i], "same seed must reproduce predictions exactly")
	}
}

func TestForestModel_ImportanceFindsSignal(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n := 120
	x := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		signal := rng.NormFloat64()
		x.Set(i, 0, signal)
		x.Set(i, 1, rng.NormFloat64())
		x.Set(i, 2, rng.NormFloat64())
		y[i] = 3 * signal
	}

	m := newForestModel(ForestConfig{Trees: 32}, 5)
	require.NoError(t, m.Fit(x, y))

	imp := m.Importance()
	require.Len(t, imp, 3)
	total := 0.0
	for _, v := range imp {
		assert.GreaterOrEqual(t, v, 0.0)
		total += v
	}
	assert.InDelta(t, 1.0, total, 1e-9, "importance should be normalized")
	assert.Greater(t, imp[0], imp[1], "the signal feature should dominate noise")
	assert.Greater(t, imp[0], imp[2], "the signal feature should dominate noise")
}

func foldTestView(t *testing.T, n int, seed int64) (view.View, []float64) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	cells := make([]string, n)
	values := make([]float64, 0, n*3)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		cells[i] = "c" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		a := rng.NormFloat64()
		b := rng.NormFloat64()
		y[i] = 1 + 2*a - b
		values = append(values, a, b, y[i])
	}
	m, err := view.NewFeatureMatrix(cells, []string{"a", "b", "target"}, values)
	require.NoError(t, err)
	return view.View{Name: view.IntraName, Kind: view.KindIntra, Data: m}, y
}

func TestFitView_FoldPartitionCoversEachRowOnce(t *testing.T) {
	v, y := foldTestView(t, 40, 1)
	cfg := TrainConfig{Folds: 5, Model: KindLinear}

	folds, err := FitView(v, "target", y, cfg, 42)
	require.NoError(t, err)
	require.Len(t, folds, 5)

	seen := make(map[int]int)
	for _, fr := range folds {
		require.False(t, fr.Failed)
		for _, row := range fr.TestRows {
			seen[row]++
		}
		// The target column must never leak into its own predictors.
		_, hasTarget := fr.Importance["target"]
		assert.False(t, hasTarget)
		assert.Contains(t, fr.Importance, "a")
	}
	require.Len(t, seen, 40)
	for row, count := range seen {
		assert.Equal(t, 1, count, "row %d held out %d times", row, count)
	}
}

func TestFitView_DeterministicBySeed(t *testing.T) {
	v, y := foldTestView(t, 40, 2)
	cfg := TrainConfig{Folds: 4, Model: KindEnsemble, Forest: ForestConfig{Trees: 8}}

	first, err := FitView(v, "target", y, cfg, 7)
	require.NoError(t, err)
	second, err := FitView(v, "target", y, cfg, 7)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].TestRows, second[i].TestRows)
		assert.Equal(t, first[i].Pred, second[i].Pred)
		assert.Equal(t, first[i].R2, second[i].R2)
	}
}

func TestFitView_ExcludesSentinelRows(t *testing.T) {
	v, y := foldTestView(t, 30, 3)
	// Poison three rows the way an isolated-cell sentinel would.
	dense := v.Data.Dense()
	for _, row := range []int{0, 7, 19} {
		dense.Set(row, 0, math.NaN())
	}

	folds, err := FitView(v, "target", y, TrainConfig{Folds: 3, Model: KindLinear}, 42)
	require.NoError(t, err)
	for _, fr := range folds {
		for _, row := range fr.TestRows {
			assert.NotContains(t, []int{0, 7, 19}, row, "sentinel row reached a held-out set")
		}
	}
}

func TestFitView_TooFewUsableRows(t *testing.T) {
	v, y := foldTestView(t, 4, 4)
	_, err := FitView(v, "target", y, TrainConfig{Folds: 5, Model: KindLinear}, 42)
	require.Error(t, err)
	assert.True(t, core.IsDataError(err))
}

func TestFitView_AllDegeneratePredictorsFailsFoldOnly(t *testing.T) {
	n := 20
	cells := make([]string, n)
	values := make([]float64, 0, n*2)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		cells[i] = "c" + string(rune('a'+i))
		y[i] = float64(i)
		values = append(values, 5.0, y[i]) // "flat" is constant everywhere
	}
	m, err := view.NewFeatureMatrix(cells, []string{"flat", "target"}, values)
	require.NoError(t, err)
	v := view.View{Name: view.IntraName, Kind: view.KindIntra, Data: m}

	folds, err := FitView(v, "target", y, TrainConfig{Folds: 4, Model: KindLinear}, 42)
	require.NoError(t, err, "degenerate folds must not abort the run")
	for _, fr := range folds {
		assert.True(t, fr.Failed)
		assert.NotEmpty(t, fr.FailReason)
		assert.Empty(t, fr.Pred)
	}
}

func TestFitView_InvalidConfig(t *testing.T) {
	v, y := foldTestView(t, 20, 5)
	_, err := FitView(v, "target", y, TrainConfig{Folds: 1, Model: KindLinear}, 42)
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))

	_, err = FitView(v, "target", y, TrainConfig{Folds: 3, Model: Kind("boosted")}, 42)
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
}

func TestHeldOutR2_UndefinedOnConstantTarget(t *testing.T) {
	_, defined := heldOutR2([]float64{2, 2, 2}, []float64{1, 2, 3})
	assert.False(t, defined)

	r2, defined := heldOutR2([]float64{1, 2, 3}, []float64{1, 2, 3})
	require.True(t, defined)
	assert.InDelta(t, 1.0, r2, 1e-12)
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindEnsemble, kind)

	_, err = ParseKind("boosted")
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
}
