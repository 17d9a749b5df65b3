package view

import (
	"fmt"
	"math"

	"spatialview/domain/core"

	"gonum.org/v1/gonum/mat"
)

// FeatureMatrix is the canonical cells-by-features data object for all view
// construction and model fitting. Rows are indexed by a stable cell
// identifier; the row order is fixed at construction and shared by every
// view derived from the matrix.
type FeatureMatrix struct {
	cellIDs  []string
	features []string
	data     *mat.Dense
	colIndex map[string]int
}

// NewFeatureMatrix builds a matrix from row-major values. It enforces the
// entry invariants for externally supplied data: unique cell identifiers,
// unique feature names, and no NaN/Inf anywhere.
func NewFeatureMatrix(cellIDs, features []string, values []float64) (*FeatureMatrix, error) {
	if len(values) != len(cellIDs)*len(features) {
		return nil, fmt.Errorf("%w: have %d values for %d cells x %d features",
			core.ErrData, len(values), len(cellIDs), len(features))
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, core.NewNonFiniteError(features[i%len(features)], i/len(features))
		}
	}
	data := mat.NewDense(len(cellIDs), len(features), values)
	return newMatrix(cellIDs, features, data)
}

// NewDerived builds a matrix around data produced by the engine itself,
// e.g. spatially aggregated views. Derived matrices may carry NaN sentinel
// rows for isolated cells, so only index uniqueness is enforced.
func NewDerived(cellIDs, features []string, data *mat.Dense) (*FeatureMatrix, error) {
	r, c := data.Dims()
	if r != len(cellIDs) || c != len(features) {
		return nil, fmt.Errorf("%w: data is %dx%d for %d cells x %d features",
			core.ErrData, r, c, len(cellIDs), len(features))
	}
	return newMatrix(cellIDs, features, data)
}

func newMatrix(cellIDs, features []string, data *mat.Dense) (*FeatureMatrix, error) {
	seenCell := make(map[string]struct{}, len(cellIDs))
	for _, id := range cellIDs {
		if _, dup := seenCell[id]; dup {
			return nil, fmt.Errorf("%w: %s", core.ErrDuplicateCell, id)
		}
		seenCell[id] = struct{}{}
	}
	colIndex := make(map[string]int, len(features))
	for j, f := range features {
		if _, dup := colIndex[f]; dup {
			return nil, fmt.Errorf("%w: %s", core.ErrDuplicateFeature, f)
		}
		colIndex[f] = j
	}
	return &FeatureMatrix{
		cellIDs:  append([]string(nil), cellIDs...),
		features: append([]string(nil), features...),
		data:     data,
		colIndex: colIndex,
	}, nil
}

// Rows returns the number of cells.
func (m *FeatureMatrix) Rows() int { return len(m.cellIDs) }

// Cols returns the number of features.
func (m *FeatureMatrix) Cols() int { return len(m.features) }

// CellIDs returns a copy of the row index.
func (m *FeatureMatrix) CellIDs() []string {
	return append([]string(nil), m.cellIDs...)
}

// Features returns a copy of the feature names in column order.
func (m *FeatureMatrix) Features() []string {
	return append([]string(nil), m.features...)
}

// At returns the value at row i, column j.
func (m *FeatureMatrix) At(i, j int) float64 { return m.data.At(i, j) }

// Row copies row i into a fresh slice.
func (m *FeatureMatrix) Row(i int) []float64 {
	return mat.Row(nil, i, m.data)
}

// Dense returns the underlying matrix. Callers must treat it as read-only;
// the matrix is shared by every view built from it.
func (m *FeatureMatrix) Dense() *mat.Dense { return m.data }

// ColumnIndex reports the column position of a feature.
func (m *FeatureMatrix) ColumnIndex(feature string) (int, bool) {
	j, ok := m.colIndex[feature]
	return j, ok
}

// Column copies a named feature column into a fresh slice.
func (m *FeatureMatrix) Column(feature string) ([]float64, bool) {
	j, ok := m.colIndex[feature]
	if !ok {
		return nil, false
	}
	return mat.Col(nil, j, m.data), true
}

// DropColumn returns a new matrix without the named feature. Dropping an
// absent feature returns the receiver unchanged, which lets the trainer
// apply the leave-target-out rule uniformly across views.
func (m *FeatureMatrix) DropColumn(feature string) *FeatureMatrix {
	j, ok := m.colIndex[feature]
	if !ok {
		return m
	}
	features := make([]string, 0, len(m.features)-1)
	features = append(features, m.features[:j]...)
	features = append(features, m.features[j+1:]...)
	data := mat.NewDense(m.Rows(), len(features), nil)
	for jj, f := range features {
		src := m.colIndex[f]
		for i := 0; i < m.Rows(); i++ {
			data.Set(i, jj, m.data.At(i, src))
		}
	}
	out, err := newMatrix(m.cellIDs, features, data)
	if err != nil {
		// Uniqueness already held on the receiver.
		panic(err)
	}
	return out
}

// SameIndex reports whether the other matrix shares this matrix's cell
// index exactly, in set and order.
func (m *FeatureMatrix) SameIndex(other *FeatureMatrix) bool {
	return sameIndex(m.cellIDs, other.cellIDs)
}

func sameIndex(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
