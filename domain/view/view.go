package view

import (
	"fmt"

	"spatialview/domain/core"
)

// Kind tags the spatial relationship a view encodes.
type Kind string

const (
	KindIntra Kind = "intra" // the cell's own feature vector
	KindJuxta Kind = "juxta" // unweighted mean over threshold neighbors
	KindPara  Kind = "para"  // kernel-weighted broader neighborhood
)

// IntraName is the deterministic name of the intrinsic view in every
// collection built by the view builder.
const IntraName = "intra"

// View is one named, immutable cells-by-features design block.
type View struct {
	Name   string
	Kind   Kind
	Data   *FeatureMatrix
	Params map[string]float64
}

// Collection is an ordered set of views sharing one exact cell index.
// All operations return new collections; a collection already handed to a
// trainer can never be invalidated by later composition.
type Collection struct {
	cellIDs []string
	views   []View
	byName  map[string]int
}

// NewCollection creates a collection containing exactly one intrinsic view
// equal to the input matrix.
func NewCollection(intra *FeatureMatrix) Collection {
	c := Collection{
		cellIDs: intra.CellIDs(),
		views:   []View{{Name: IntraName, Kind: KindIntra, Data: intra}},
		byName:  map[string]int{IntraName: 0},
	}
	return c
}

// With returns a new collection with the view appended. The view must share
// the collection's cell index exactly and carry an unused name; violations
// are configuration errors, never a silent reindex.
func (c Collection) With(v View) (Collection, error) {
	if !sameIndex(c.cellIDs, v.Data.cellIDs) {
		return Collection{}, core.NewIndexMismatchError(fmt.Sprintf("view %q", v.Name))
	}
	if _, exists := c.byName[v.Name]; exists {
		return Collection{}, fmt.Errorf("%w: %q", core.ErrViewCollision, v.Name)
	}
	out := Collection{
		cellIDs: c.cellIDs,
		views:   make([]View, 0, len(c.views)+1),
		byName:  make(map[string]int, len(c.views)+1),
	}
	out.views = append(out.views, c.views...)
	out.views = append(out.views, v)
	for i, vv := range out.views {
		out.byName[vv.Name] = i
	}
	return out, nil
}

// View looks up a view by name.
func (c Collection) View(name string) (View, bool) {
	i, ok := c.byName[name]
	if !ok {
		return View{}, false
	}
	return c.views[i], true
}

// Intra returns the collection's intrinsic view.
func (c Collection) Intra() (View, bool) {
	for _, v := range c.views {
		if v.Kind == KindIntra {
			return v, true
		}
	}
	return View{}, false
}

// Views returns the views in insertion order.
func (c Collection) Views() []View {
	return append([]View(nil), c.views...)
}

// Names returns the view names in insertion order.
func (c Collection) Names() []string {
	names := make([]string, len(c.views))
	for i, v := range c.views {
		names[i] = v.Name
	}
	return names
}

// CellIDs returns a copy of the shared cell index.
func (c Collection) CellIDs() []string {
	return append([]string(nil), c.cellIDs...)
}

// Len returns the number of views.
func (c Collection) Len() int { return len(c.views) }

// Rename returns a new collection with one view renamed. Renaming supports
// cross-domain composition: a pathway-derived view can be inserted next to
// a composition-derived one without recomputing neighbor structures.
func (c Collection) Rename(oldName, newName string) (Collection, error) {
	i, ok := c.byName[oldName]
	if !ok {
		return Collection{}, fmt.Errorf("%w: no view named %q", core.ErrConfiguration, oldName)
	}
	if _, exists := c.byName[newName]; exists && newName != oldName {
		return Collection{}, fmt.Errorf("%w: %q", core.ErrViewCollision, newName)
	}
	out := Collection{
		cellIDs: c.cellIDs,
		views:   append([]View(nil), c.views...),
		byName:  make(map[string]int, len(c.views)),
	}
	renamed := out.views[i]
	renamed.Name = newName
	out.views[i] = renamed
	for j, v := range out.views {
		out.byName[v.Name] = j
	}
	return out, nil
}

// Combine merges any number of collections into one design. Every input
// must share the first collection's cell index in membership and order, and
// view names must not collide; the error names the offending collection.
// The resulting view set is independent of argument order.
func Combine(cols ...Collection) (Collection, error) {
	if len(cols) == 0 {
		return Collection{}, fmt.Errorf("%w: combine requires at least one collection", core.ErrConfiguration)
	}
	out := Collection{
		cellIDs: cols[0].cellIDs,
		byName:  make(map[string]int),
	}
	for n, col := range cols {
		if !sameIndex(out.cellIDs, col.cellIDs) {
			return Collection{}, core.NewIndexMismatchError(fmt.Sprintf("collection %d", n))
		}
		for _, v := range col.views {
			if _, exists := out.byName[v.Name]; exists {
				return Collection{}, fmt.Errorf("%w: %q (collection %d)", core.ErrViewCollision, v.Name, n)
			}
			out.byName[v.Name] = len(out.views)
			out.views = append(out.views, v)
		}
	}
	return out, nil
}
