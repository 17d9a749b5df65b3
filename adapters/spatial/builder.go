package spatial

import (
	"fmt"
	"strconv"

	"spatialview/domain/view"
)

// Builder orchestrates construction of the named view types for one
// feature matrix and coordinate set. Each Add operation derives from the
// collection's intrinsic view (never from previously derived views) and
// returns a new collection; callers chain by reassignment.
type Builder struct {
	coords   *view.Coordinates
	sentinel Sentinel
}

// NewBuilder creates a view builder over a coordinate table with the
// default NaN sentinel policy.
func NewBuilder(coords *view.Coordinates) *Builder {
	return &Builder{coords: coords, sentinel: SentinelNaN}
}

// WithSentinel returns a builder using the given isolated-cell policy.
func (b *Builder) WithSentinel(s Sentinel) *Builder {
	return &Builder{coords: b.coords, sentinel: s}
}

// InitialView creates a collection containing exactly one intrinsic view
// equal to the input matrix.
func (b *Builder) InitialView(m *view.FeatureMatrix) view.Collection {
	return view.NewCollection(m)
}

// AddJuxta appends a juxtaview computed from the intrinsic view's data with
// the given distance threshold. The view name incorporates the parameter,
// e.g. "juxta.15", so downstream lookup by name is stable.
func (b *Builder) AddJuxta(c view.Collection, threshold float64) (view.Collection, error) {
	intra, ok := c.Intra()
	if !ok {
		return view.Collection{}, fmt.Errorf("collection has no intrinsic view")
	}
	ns, err := BuildJuxta(b.coords, c.CellIDs(), threshold)
	if err != nil {
		return view.Collection{}, err
	}
	data, err := Aggregate(intra.Data, ns, b.sentinel)
	if err != nil {
		return view.Collection{}, err
	}
	return c.With(view.View{
		Name:   viewName(view.KindJuxta, threshold),
		Kind:   view.KindJuxta,
		Data:   data,
		Params: map[string]float64{"threshold": threshold},
	})
}

// AddPara appends a paraview computed from the intrinsic view's data with
// the given kernel bandwidth and family.
func (b *Builder) AddPara(c view.Collection, bandwidth float64, family KernelFamily) (view.Collection, error) {
	intra, ok := c.Intra()
	if !ok {
		return view.Collection{}, fmt.Errorf("collection has no intrinsic view")
	}
	ns, err := BuildPara(b.coords, c.CellIDs(), bandwidth, family)
	if err != nil {
		return view.Collection{}, err
	}
	data, err := Aggregate(intra.Data, ns, b.sentinel)
	if err != nil {
		return view.Collection{}, err
	}
	return c.With(view.View{
		Name:   viewName(view.KindPara, bandwidth),
		Kind:   view.KindPara,
		Data:   data,
		Params: map[string]float64{"bandwidth": bandwidth},
	})
}

func viewName(kind view.Kind, param float64) string {
	return string(kind) + "." + strconv.FormatFloat(param, 'g', -1, 64)
}
