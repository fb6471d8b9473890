package grid

import (
	"github.com/aukilabs/bigspace/cell"
	"github.com/aukilabs/bigspace/geom"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// LocalOrigin is the position of the floating origin expressed in the lattice
// of one grid.
type LocalOrigin struct {
	// The cell of the grid containing the floating origin.
	Cell cell.Coord

	// The origin translation relative to the center of Cell.
	Translation mgl32.Vec3

	// The origin rotation relative to the grid axes.
	Rotation mgl64.Quat

	transform mgl64.Mat4
	unchanged bool
}

// NewLocalOrigin returns a local origin and computes its cached transform.
func NewLocalOrigin(c cell.Coord, t mgl32.Vec3, r mgl64.Quat) LocalOrigin {
	return LocalOrigin{
		Cell:        c,
		Translation: t,
		Rotation:    r,
		transform:   geom.Inverse(geom.Rigid(r, geom.Double(t))),
	}
}

func newLocalOrigin() LocalOrigin {
	return NewLocalOrigin(cell.Coord{}, mgl32.Vec3{}, mgl64.QuatIdent())
}

// Transform maps positions relative to the center of Cell into the frame of the
// floating origin.
func (lo LocalOrigin) Transform() mgl64.Mat4 {
	return lo.transform
}

// Unchanged reports whether the last propagation left the value identical.
func (lo LocalOrigin) Unchanged() bool {
	return lo.unchanged
}

// Equal reports whether both origins are at the same place.
func (lo LocalOrigin) Equal(o LocalOrigin) bool {
	return lo.Cell == o.Cell &&
		lo.Translation == o.Translation &&
		lo.Rotation == o.Rotation
}

// MemberTransform returns the double precision transform of a member of the
// grid relative to the floating origin.
func (lo LocalOrigin) MemberTransform(g Grid, c cell.Coord, t geom.Transform) mgl64.Mat4 {
	t = t.Normalized()
	local := geom.Affine(
		geom.Double(t.Scale),
		geom.QuatDouble(t.Rotation),
		geom.Double(t.Translation).Add(g.DeltaToFloat(c, lo.Cell)),
	)
	return lo.transform.Mul4(local)
}
