package cell

import (
	"fmt"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	ErrTypeOverflow = "cell-coord-overflow"
)

// Coord is the position of a cell within the lattice of its grid. Components
// are stored on 128 bits and checked against a Precision on every arithmetic
// operation.
type Coord struct {
	X Int128
	Y Int128
	Z Int128
}

func NewCoord(x, y, z int64) Coord {
	return Coord{X: Int64(x), Y: Int64(y), Z: Int64(z)}
}

// Add returns c+d or an overflow error when a component does not fit in p.
func (c Coord) Add(p Precision, d Coord) (Coord, error) {
	x, okX := addChecked(p, c.X, d.X)
	y, okY := addChecked(p, c.Y, d.Y)
	z, okZ := addChecked(p, c.Z, d.Z)
	if !okX || !okY || !okZ {
		return c, errors.New("cell coordinate overflow").
			WithType(ErrTypeOverflow).
			WithTag("coord", c.String()).
			WithTag("delta", d.String()).
			WithTag("precision", p.String())
	}
	return Coord{X: x, Y: y, Z: z}, nil
}

// Delta returns c-o as floating point values. It is exact as long as the
// difference fits in 53 bits, which keeps it precise near the floating origin
// whatever the absolute coordinates are.
func (c Coord) Delta(o Coord) (x, y, z float64) {
	return deltaAxis(c.X, o.X), deltaAxis(c.Y, o.Y), deltaAxis(c.Z, o.Z)
}

func (c Coord) Min(o Coord) Coord {
	return Coord{X: minAxis(c.X, o.X), Y: minAxis(c.Y, o.Y), Z: minAxis(c.Z, o.Z)}
}

func (c Coord) Max(o Coord) Coord {
	return Coord{X: maxAxis(c.X, o.X), Y: maxAxis(c.Y, o.Y), Z: maxAxis(c.Z, o.Z)}
}

// Chebyshev returns the largest per axis distance between c and o, saturated
// at math.MaxInt64.
func (c Coord) Chebyshev(o Coord) int64 {
	return max(absDiff(c.X, o.X), absDiff(c.Y, o.Y), absDiff(c.Z, o.Z))
}

// InBounds reports whether every component is representable in p.
func (c Coord) InBounds(p Precision) bool {
	return p.Contains(c.X) && p.Contains(c.Y) && p.Contains(c.Z)
}

func (c Coord) IsZero() bool {
	return c == Coord{}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%s,%s,%s)", c.X, c.Y, c.Z)
}

func addChecked(p Precision, a, b Int128) (Int128, bool) {
	sum, ok := a.Add(b)
	return sum, ok && p.Contains(sum)
}

func deltaAxis(a, b Int128) float64 {
	d, ok := a.Sub(b)
	if !ok {
		return a.Float64() - b.Float64()
	}
	return d.Float64()
}

func absDiff(a, b Int128) int64 {
	d, ok := a.Sub(b)
	if !ok {
		return math.MaxInt64
	}
	if d.Sign() < 0 {
		d = d.Neg()
	}
	if d.Sign() < 0 || !d.IsInt64() {
		return math.MaxInt64
	}
	return d.Int64()
}

func minAxis(a, b Int128) Int128 {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

func maxAxis(a, b Int128) Int128 {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}
