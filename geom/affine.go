package geom

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Affine returns the transform scaling by s, then rotating by q, then
// translating by t.
func Affine(s mgl64.Vec3, q mgl64.Quat, t mgl64.Vec3) mgl64.Mat4 {
	return mgl64.Translate3D(t[0], t[1], t[2]).
		Mul4(q.Normalize().Mat4()).
		Mul4(mgl64.Scale3D(s[0], s[1], s[2]))
}

// Rigid returns the transform rotating by q then translating by t.
func Rigid(q mgl64.Quat, t mgl64.Vec3) mgl64.Mat4 {
	return mgl64.Translate3D(t[0], t[1], t[2]).Mul4(q.Normalize().Mat4())
}

// Inverse returns the inverse of an affine transform. The linear part is
// inverted on its own so large translations do not enter the determinant.
func Inverse(m mgl64.Mat4) mgl64.Mat4 {
	linear := m.Mat3().Inv()
	return fromParts(linear, linear.Mul3x1(Translation(m)).Mul(-1))
}

// Translation returns the translation column of m.
func Translation(m mgl64.Mat4) mgl64.Vec3 {
	return m.Col(3).Vec3()
}

// Decompose splits an affine transform without shear into its scale, rotation
// and translation.
func Decompose(m mgl64.Mat4) (mgl64.Vec3, mgl64.Quat, mgl64.Vec3) {
	linear := m.Mat3()
	x, y, z := linear.Col(0), linear.Col(1), linear.Col(2)

	scale := mgl64.Vec3{x.Len(), y.Len(), z.Len()}
	if linear.Det() < 0 {
		scale[0] = -scale[0]
	}

	rotation := mgl64.Mat4FromCols(
		x.Mul(safeInverse(scale[0])).Vec4(0),
		y.Mul(safeInverse(scale[1])).Vec4(0),
		z.Mul(safeInverse(scale[2])).Vec4(0),
		mgl64.Vec4{0, 0, 0, 1},
	)
	return scale, mgl64.Mat4ToQuat(rotation).Normalize(), Translation(m)
}

// DecomposeRigid splits a rigid transform into its rotation and translation.
func DecomposeRigid(m mgl64.Mat4) (mgl64.Quat, mgl64.Vec3) {
	_, q, t := Decompose(m)
	return q, t
}

// Mat4Single converts a transform to render precision.
func Mat4Single(m mgl64.Mat4) mgl32.Mat4 {
	var s mgl32.Mat4
	for i, v := range m {
		s[i] = float32(v)
	}
	return s
}

func Mat4Double(m mgl32.Mat4) mgl64.Mat4 {
	var d mgl64.Mat4
	for i, v := range m {
		d[i] = float64(v)
	}
	return d
}

func fromParts(linear mgl64.Mat3, t mgl64.Vec3) mgl64.Mat4 {
	return mgl64.Mat4FromCols(
		linear.Col(0).Vec4(0),
		linear.Col(1).Vec4(0),
		linear.Col(2).Vec4(0),
		t.Vec4(1),
	)
}

func safeInverse(v float64) float64 {
	if v == 0 {
		return 0
	}
	return 1 / v
}
