package geom

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Transform is the local placement of an entity inside its cell.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

func TransformIdentity() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func TransformFromTranslation(t mgl32.Vec3) Transform {
	tr := TransformIdentity()
	tr.Translation = t
	return tr
}

// WithRotation returns a copy of the transform with its rotation replaced.
func (t Transform) WithRotation(q mgl64.Quat) Transform {
	t.Rotation = QuatSingle(q)
	return t
}

// Affine returns the double precision matrix of the transform.
func (t Transform) Affine() mgl64.Mat4 {
	t = t.Normalized()
	return Affine(Double(t.Scale), QuatDouble(t.Rotation), Double(t.Translation))
}

// Normalized replaces a zero scale or rotation with identity values.
func (t Transform) Normalized() Transform {
	if t.Scale == (mgl32.Vec3{}) {
		t.Scale = mgl32.Vec3{1, 1, 1}
	}
	if t.Rotation == (mgl32.Quat{}) {
		t.Rotation = mgl32.QuatIdent()
	}
	return t
}
