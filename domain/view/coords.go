package view

import (
	"math"

	"spatialview/domain/core"
)

// Point is a 2D spatial position (row, col) in the tissue coordinate frame.
type Point struct {
	Row float64
	Col float64
}

// Coordinates maps cell identifiers to spatial positions. It is an
// externally supplied, immutable input; every cell referenced by a feature
// matrix used for spatial views must be covered.
type Coordinates struct {
	pos map[string]Point
}

// NewCoordinates copies the given positions into an immutable table.
func NewCoordinates(pos map[string]Point) *Coordinates {
	cp := make(map[string]Point, len(pos))
	for id, p := range pos {
		cp[id] = p
	}
	return &Coordinates{pos: cp}
}

// Get returns the position of a cell.
func (c *Coordinates) Get(cellID string) (Point, bool) {
	p, ok := c.pos[cellID]
	return p, ok
}

// Len returns the number of covered cells.
func (c *Coordinates) Len() int { return len(c.pos) }

// Covers fails fast with a DataError naming the first cell identifier that
// has no coordinate. Called before any aggregation proceeds.
func (c *Coordinates) Covers(cellIDs []string) error {
	for _, id := range cellIDs {
		if _, ok := c.pos[id]; !ok {
			return core.NewMissingCoordinateError(id)
		}
	}
	return nil
}

// Distance is the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	dr := a.Row - b.Row
	dc := a.Col - b.Col
	return math.Sqrt(dr*dr + dc*dc)
}
