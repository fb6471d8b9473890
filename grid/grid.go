// Package grid defines the reference frames entities are addressed within and
// the rule that keeps entity offsets small.
package grid

import (
	"math"

	"github.com/aukilabs/bigspace/cell"
	"github.com/aukilabs/bigspace/geom"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// ID is the handle of a grid node.
type ID = cell.GridID

const (
	ErrTypeInvalidGrid = "grid-invalid"

	DefaultCellEdgeLength = 2000
)

// Grid holds the properties of a reference frame.
type Grid struct {
	// The edge length of the cubic cells of the grid.
	CellEdgeLength float64

	// The distance past the cell boundary an entity can travel before it is
	// moved to the next cell. It prevents entities oscillating on a boundary
	// from switching cells every frame.
	SwitchingThreshold float64
}

// New returns a validated grid.
func New(cellEdgeLength, switchingThreshold float64) (Grid, error) {
	g := Grid{
		CellEdgeLength:     cellEdgeLength,
		SwitchingThreshold: switchingThreshold,
	}
	return g, g.Validate()
}

func Default() Grid {
	return Grid{CellEdgeLength: DefaultCellEdgeLength}
}

func (g Grid) Validate() error {
	if !(g.CellEdgeLength > 0) || math.IsInf(g.CellEdgeLength, 0) {
		return errors.New("cell edge length must be a positive number").
			WithType(ErrTypeInvalidGrid).
			WithTag("cell_edge_length", g.CellEdgeLength)
	}

	if !(g.SwitchingThreshold >= 0) || math.IsInf(g.SwitchingThreshold, 0) {
		return errors.New("switching threshold must be a non negative number").
			WithType(ErrTypeInvalidGrid).
			WithTag("switching_threshold", g.SwitchingThreshold)
	}
	return nil
}

// MaxDistanceFromOrigin returns how far from its cell center an entity can be
// before being recentered.
func (g Grid) MaxDistanceFromOrigin() float64 {
	return g.CellEdgeLength/2 + g.SwitchingThreshold
}

// Recenter splits a local translation in an integer cell delta and a residual
// translation within half a cell edge of the cell center. Components are
// rounded half away from zero so a translation of exactly one edge moves one
// cell and leaves no residual.
func Recenter(t mgl64.Vec3, cellEdgeLength float64, p cell.Precision) (cell.Coord, mgl64.Vec3, error) {
	cells := geom.Round(mgl64.Vec3{
		t[0] / cellEdgeLength,
		t[1] / cellEdgeLength,
		t[2] / cellEdgeLength,
	})

	x, okX := toAxis(cells[0], p)
	y, okY := toAxis(cells[1], p)
	z, okZ := toAxis(cells[2], p)
	if !okX || !okY || !okZ {
		return cell.Coord{}, t, errors.New("recentering delta overflows the cell precision").
			WithType(cell.ErrTypeOverflow).
			WithTag("translation", t).
			WithTag("cell_edge_length", cellEdgeLength).
			WithTag("precision", p.String())
	}

	return cell.Coord{X: x, Y: y, Z: z}, t.Sub(cells.Mul(cellEdgeLength)), nil
}

// RecenterMember moves a member translation back within the grid bounds. A
// translation lying exactly on the bound is left in place. It returns the new
// cell and translation and whether they changed. On overflow the given cell
// and translation are returned untouched with the error.
func (g Grid) RecenterMember(p cell.Precision, c cell.Coord, t mgl32.Vec3) (cell.Coord, mgl32.Vec3, bool, error) {
	td := geom.Double(t)
	if geom.MaxAbs(td) <= g.MaxDistanceFromOrigin() {
		return c, t, false, nil
	}

	delta, residual, err := Recenter(td, g.CellEdgeLength, p)
	if err != nil {
		return c, t, false, err
	}

	next, err := c.Add(p, delta)
	if err != nil {
		return c, t, false, err
	}

	return next, geom.Single(residual), true, nil
}

// CellToFloat returns the position of the cell center in the grid metric.
func (g Grid) CellToFloat(c cell.Coord) mgl64.Vec3 {
	return mgl64.Vec3{c.X.Float64(), c.Y.Float64(), c.Z.Float64()}.Mul(g.CellEdgeLength)
}

// DeltaToFloat returns the offset between the centers of two cells in the grid
// metric. It stays exact for nearby cells whatever their absolute position.
func (g Grid) DeltaToFloat(c, from cell.Coord) mgl64.Vec3 {
	x, y, z := c.Delta(from)
	return mgl64.Vec3{x, y, z}.Mul(g.CellEdgeLength)
}

// PositionDouble returns the double precision position of a cell and
// translation pair.
func (g Grid) PositionDouble(c cell.Coord, t mgl32.Vec3) mgl64.Vec3 {
	return g.CellToFloat(c).Add(geom.Double(t))
}

// TranslationToGrid converts a double precision translation in the grid
// metric into a cell delta and a render precision residual.
func (g Grid) TranslationToGrid(v mgl64.Vec3, p cell.Precision) (cell.Coord, mgl32.Vec3, error) {
	delta, residual, err := Recenter(v, g.CellEdgeLength, p)
	if err != nil {
		return cell.Coord{}, mgl32.Vec3{}, err
	}
	return delta, geom.Single(residual), nil
}

func toAxis(v float64, p cell.Precision) (cell.Int128, bool) {
	i, ok := cell.Int128FromFloat64(v)
	return i, ok && p.Contains(i)
}
