package model

import (
	"math"

	"spatialview/domain/core"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// linearModel is ordinary least squares with an intercept, solved through
// lightly ridge-jittered normal equations so collinear predictors cannot
// blow up the fit. Importance is the magnitude of the standardized
// coefficient.
type linearModel struct {
	coef       []float64 // per predictor, excluding intercept
	intercept  float64
	importance []float64
}

func newLinearModel() *linearModel {
	return &linearModel{}
}

func (m *linearModel) Fit(x *mat.Dense, y []float64) error {
	n, p := x.Dims()
	if n != len(y) {
		return core.NewConfigError("design rows do not match target length")
	}
	if n == 0 || p == 0 {
		return core.NewDegenerateError("", "", 0)
	}

	// Design with leading intercept column.
	design := mat.NewDense(n, p+1, nil)
	for i := 0; i < n; i++ {
		design.Set(i, 0, 1)
		for j := 0; j < p; j++ {
			design.Set(i, j+1, x.At(i, j))
		}
	}

	var xtx mat.Dense
	xtx.Mul(design.T(), design)
	ridge := 0.0
	for j := 0; j <= p; j++ {
		ridge += xtx.At(j, j)
	}
	ridge = 1e-8 * (ridge/float64(p+1) + 1)
	for j := 0; j <= p; j++ {
		xtx.Set(j, j, xtx.At(j, j)+ridge)
	}

	var xty mat.VecDense
	xty.MulVec(design.T(), mat.NewVecDense(n, y))

	var beta mat.VecDense
	if err := beta.SolveVec(&xtx, &xty); err != nil {
		return core.NewConfigError("linear system solve failed: " + err.Error())
	}

	m.intercept = beta.AtVec(0)
	m.coef = make([]float64, p)
	for j := 0; j < p; j++ {
		m.coef[j] = beta.AtVec(j + 1)
	}

	sdY := math.Sqrt(stat.Variance(y, nil))
	m.importance = make([]float64, p)
	for j := 0; j < p; j++ {
		col := mat.Col(nil, j, x)
		sdX := math.Sqrt(stat.Variance(col, nil))
		if sdY > 0 {
			m.importance[j] = math.Abs(m.coef[j]) * sdX / sdY
		}
	}
	return nil
}

func (m *linearModel) Predict(x *mat.Dense) []float64 {
	n, p := x.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		pred := m.intercept
		for j := 0; j < p && j < len(m.coef); j++ {
			pred += m.coef[j] * x.At(i, j)
		}
		out[i] = pred
	}
	return out
}

func (m *linearModel) Importance() []float64 {
	return append([]float64(nil), m.importance...)
}
