// Package spatial builds neighbor structures from cell coordinates and
// turns them into spatially aggregated feature views.
package spatial

import (
	"fmt"
	"math"

	"spatialview/domain/core"
	"spatialview/domain/view"

	"gonum.org/v1/gonum/mat"
)

// KernelFamily selects the distance decay used for paraview weights.
type KernelFamily string

const (
	KernelGaussian    KernelFamily = "gaussian"
	KernelExponential KernelFamily = "exponential"
	KernelLinear      KernelFamily = "linear"
)

// ParseKernelFamily validates a kernel family name.
func ParseKernelFamily(s string) (KernelFamily, error) {
	switch KernelFamily(s) {
	case KernelGaussian, KernelExponential, KernelLinear:
		return KernelFamily(s), nil
	default:
		return "", core.NewKernelError(s)
	}
}

// weight returns the kernel weight for a pair at the given distance.
// Each family is non-increasing in distance and widens monotonically with
// the bandwidth.
func (k KernelFamily) weight(distance, bandwidth float64) float64 {
	switch k {
	case KernelGaussian:
		return math.Exp(-distance * distance / (2 * bandwidth * bandwidth))
	case KernelExponential:
		return math.Exp(-distance / bandwidth)
	case KernelLinear:
		return math.Max(0, 1-distance/bandwidth)
	default:
		return 0
	}
}

// StructureKind discriminates binary adjacency from continuous weights.
type StructureKind string

const (
	StructureBinary   StructureKind = "binary"
	StructureWeighted StructureKind = "weighted"
)

// NeighborStructure is a neighbor relation over one cell index: either a
// binary adjacency (juxta) or a dense kernel weight matrix (para). Self
// pairs are always excluded.
type NeighborStructure struct {
	Kind      StructureKind
	cellIDs   []string
	neighbors [][]int   // binary: neighbor row indices per cell
	weights   *mat.Dense // weighted: n x n, zero diagonal
}

// CellIDs returns a copy of the structure's cell index.
func (ns *NeighborStructure) CellIDs() []string {
	return append([]string(nil), ns.cellIDs...)
}

// Neighbors returns the neighbor indices of cell i (binary structures).
func (ns *NeighborStructure) Neighbors(i int) []int {
	return append([]int(nil), ns.neighbors[i]...)
}

// Weight returns the pair weight (weighted structures).
func (ns *NeighborStructure) Weight(i, j int) float64 {
	return ns.weights.At(i, j)
}

// BuildJuxta returns, for each cell, the set of other cells within
// Euclidean distance <= threshold. Any cell absent from the coordinate
// table fails the whole build with a DataError before aggregation.
func BuildJuxta(coords *view.Coordinates, cellIDs []string, threshold float64) (*NeighborStructure, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("%w: juxta threshold must be positive, got %g", core.ErrConfiguration, threshold)
	}
	points, err := resolvePoints(coords, cellIDs)
	if err != nil {
		return nil, err
	}
	n := len(cellIDs)
	neighbors := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if view.Distance(points[i], points[j]) <= threshold {
				neighbors[i] = append(neighbors[i], j)
				neighbors[j] = append(neighbors[j], i)
			}
		}
	}
	return &NeighborStructure{
		Kind:      StructureBinary,
		cellIDs:   append([]string(nil), cellIDs...),
		neighbors: neighbors,
	}, nil
}

// BuildPara returns a dense weight matrix over all cell pairs using the
// given kernel family and bandwidth, with a zero diagonal.
func BuildPara(coords *view.Coordinates, cellIDs []string, bandwidth float64, family KernelFamily) (*NeighborStructure, error) {
	if bandwidth <= 0 {
		return nil, fmt.Errorf("%w: para bandwidth must be positive, got %g", core.ErrConfiguration, bandwidth)
	}
	if _, err := ParseKernelFamily(string(family)); err != nil {
		return nil, err
	}
	points, err := resolvePoints(coords, cellIDs)
	if err != nil {
		return nil, err
	}
	n := len(cellIDs)
	weights := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			w := family.weight(view.Distance(points[i], points[j]), bandwidth)
			weights.Set(i, j, w)
			weights.Set(j, i, w)
		}
	}
	return &NeighborStructure{
		Kind:    StructureWeighted,
		cellIDs: append([]string(nil), cellIDs...),
		weights: weights,
	}, nil
}

func resolvePoints(coords *view.Coordinates, cellIDs []string) ([]view.Point, error) {
	if err := coords.Covers(cellIDs); err != nil {
		return nil, err
	}
	points := make([]view.Point, len(cellIDs))
	for i, id := range cellIDs {
		points[i], _ = coords.Get(id)
	}
	return points, nil
}
