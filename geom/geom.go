// Package geom holds the transform helpers shared by the grid and propagation
// packages. Double precision math uses mgl64 and render precision values use
// mgl32.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	XAxis = mgl64.Vec3{1, 0, 0}
	YAxis = mgl64.Vec3{0, 1, 0}
	ZAxis = mgl64.Vec3{0, 0, 1}
)

// Double converts a render precision vector to double precision.
func Double(v mgl32.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

// Single converts a double precision vector to render precision.
func Single(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

func QuatDouble(q mgl32.Quat) mgl64.Quat {
	return mgl64.Quat{W: float64(q.W), V: Double(q.V)}
}

func QuatSingle(q mgl64.Quat) mgl32.Quat {
	return mgl32.Quat{W: float32(q.W), V: Single(q.V)}
}

// MaxAbs returns the largest absolute component of v.
func MaxAbs(v mgl64.Vec3) float64 {
	return max(math.Abs(v[0]), math.Abs(v[1]), math.Abs(v[2]))
}

// Round rounds each component half away from zero.
func Round(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Round(v[0]), math.Round(v[1]), math.Round(v[2])}
}

func IsFinite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// AngleBetween returns the angle in radians of the rotation from a to b.
func AngleBetween(a, b mgl64.Quat) float64 {
	d := math.Abs(a.Normalize().Dot(b.Normalize()))
	if d > 1 {
		d = 1
	}
	return 2 * math.Acos(d)
}

// Near reports whether every component of a and b differ by at most epsilon.
func Near(a, b mgl64.Vec3, epsilon float64) bool {
	return near(a[:], b[:], epsilon)
}

func NearSingle(a, b mgl32.Vec3, epsilon float64) bool {
	return near(a[:], b[:], epsilon)
}

func NearMat4(a, b mgl64.Mat4, epsilon float64) bool {
	return near(a[:], b[:], epsilon)
}

func near[T float32 | float64](a, b []T, epsilon float64) bool {
	for i := range a {
		if math.Abs(float64(a[i])-float64(b[i])) > epsilon {
			return false
		}
	}
	return true
}
