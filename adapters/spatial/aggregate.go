package spatial

import (
	"fmt"
	"math"

	"spatialview/domain/core"
	"spatialview/domain/view"

	"gonum.org/v1/gonum/mat"
)

// Sentinel is the policy for cells with an empty neighbor set (juxta) or
// negligible total kernel weight (para). Isolated cells are expected at
// tissue boundaries, so they yield a sentinel row instead of an error.
type Sentinel string

const (
	// SentinelNaN marks the row undefined; the trainer excludes it from
	// model fitting. This is the default.
	SentinelNaN Sentinel = "nan"
	// SentinelZero fills the row with zeros and keeps it in the design.
	SentinelZero Sentinel = "zero"
)

// ParseSentinel validates a sentinel policy name.
func ParseSentinel(s string) (Sentinel, error) {
	switch Sentinel(s) {
	case SentinelNaN, SentinelZero:
		return Sentinel(s), nil
	case "":
		return SentinelNaN, nil
	default:
		return "", fmt.Errorf("%w: unknown sentinel policy %q", core.ErrConfiguration, s)
	}
}

func (s Sentinel) value() float64 {
	if s == SentinelZero {
		return 0
	}
	return math.NaN()
}

// minTotalWeight is the threshold below which a para row is considered to
// have no effective neighborhood (bandwidth far under the nearest-neighbor
// distance).
const minTotalWeight = 1e-12

// Aggregate applies a neighbor structure to a feature matrix, producing a
// spatially aggregated matrix aligned to the original cell index.
//
// Binary structures average the neighbor rows; weighted structures take the
// weighted average over all other cells with weights normalized to sum to 1
// across the row.
func Aggregate(m *view.FeatureMatrix, ns *NeighborStructure, sentinel Sentinel) (*view.FeatureMatrix, error) {
	if !sameIndex(m.CellIDs(), ns.cellIDs) {
		return nil, core.NewIndexMismatchError("neighbor structure")
	}
	switch ns.Kind {
	case StructureBinary:
		return aggregateBinary(m, ns, sentinel)
	case StructureWeighted:
		return aggregateWeighted(m, ns, sentinel)
	default:
		return nil, fmt.Errorf("%w: unknown neighbor structure kind %q", core.ErrConfiguration, ns.Kind)
	}
}

func aggregateBinary(m *view.FeatureMatrix, ns *NeighborStructure, sentinel Sentinel) (*view.FeatureMatrix, error) {
	rows, cols := m.Rows(), m.Cols()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		nbrs := ns.neighbors[i]
		if len(nbrs) == 0 {
			fillRow(out, i, cols, sentinel.value())
			continue
		}
		for j := 0; j < cols; j++ {
			sum := 0.0
			for _, nb := range nbrs {
				sum += m.At(nb, j)
			}
			out.Set(i, j, sum/float64(len(nbrs)))
		}
	}
	return view.NewDerived(m.CellIDs(), m.Features(), out)
}

func aggregateWeighted(m *view.FeatureMatrix, ns *NeighborStructure, sentinel Sentinel) (*view.FeatureMatrix, error) {
	rows, cols := m.Rows(), m.Cols()
	out := mat.NewDense(rows, cols, nil)
	row := make([]float64, rows)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, ns.weights)
		total := 0.0
		for _, w := range row {
			total += w
		}
		if total < minTotalWeight {
			fillRow(out, i, cols, sentinel.value())
			continue
		}
		for j := 0; j < cols; j++ {
			sum := 0.0
			for k, w := range row {
				if w != 0 {
					sum += w * m.At(k, j)
				}
			}
			out.Set(i, j, sum/total)
		}
	}
	return view.NewDerived(m.CellIDs(), m.Features(), out)
}

func fillRow(out *mat.Dense, i, cols int, v float64) {
	for j := 0; j < cols; j++ {
		out.Set(i, j, v)
	}
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
