// Package model fits the engine's per-view predictive models under
// cross-validation and combines their out-of-fold signals in a second-stage
// meta-model.
package model

import (
	"spatialview/domain/core"

	"gonum.org/v1/gonum/mat"
)

// Kind selects the per-view model family.
type Kind string

const (
	// KindEnsemble is a bagged nonlinear regressor; it captures nonlinear
	// spatial effects and yields per-predictor importance natively.
	KindEnsemble Kind = "ensemble"
	// KindLinear is ordinary linear regression, the faster and
	// interpretable contrast baseline.
	KindLinear Kind = "linear"
)

// ParseKind validates a model kind name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindEnsemble, KindLinear:
		return Kind(s), nil
	case "":
		return KindEnsemble, nil
	default:
		return "", core.NewConfigError("unknown model kind " + s)
	}
}

// Regressor is one trainable per-view model. Implementations are used for a
// single fit and are not safe for concurrent use; the trainer creates one
// per (target, view, fold) unit.
type Regressor interface {
	Fit(x *mat.Dense, y []float64) error
	Predict(x *mat.Dense) []float64
	// Importance returns one non-negative score per predictor column,
	// aligned with the fitted design. Valid after Fit.
	Importance() []float64
}

func newRegressor(kind Kind, forest ForestConfig, seed int64) Regressor {
	if kind == KindLinear {
		return newLinearModel()
	}
	return newForestModel(forest, seed)
}
