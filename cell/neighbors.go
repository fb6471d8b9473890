package cell

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Adjacency defines which cells are considered touching.
type Adjacency uint8

const (
	// Faces connects cells sharing a face: 6 neighbors.
	Faces Adjacency = 6
	// Full connects cells sharing a face, an edge or a corner: 26 neighbors.
	Full Adjacency = 26
)

func ParseAdjacency(v string) (Adjacency, error) {
	switch v {
	case "faces", "6":
		return Faces, nil
	case "full", "26":
		return Full, nil
	default:
		return 0, errors.New("unsupported adjacency").WithTag("value", v)
	}
}

func (a Adjacency) String() string {
	switch a {
	case Faces:
		return "faces"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

var (
	faceOffsets = [6]Coord{
		NewCoord(-1, 0, 0), NewCoord(1, 0, 0),
		NewCoord(0, -1, 0), NewCoord(0, 1, 0),
		NewCoord(0, 0, -1), NewCoord(0, 0, 1),
	}

	fullOffsets = func() [26]Coord {
		var offsets [26]Coord
		i := 0
		for x := int64(-1); x <= 1; x++ {
			for y := int64(-1); y <= 1; y++ {
				for z := int64(-1); z <= 1; z++ {
					if x == 0 && y == 0 && z == 0 {
						continue
					}
					offsets[i] = NewCoord(x, y, z)
					i++
				}
			}
		}
		return offsets
	}()
)

// Offsets returns the neighbor offsets at distance 1 for the adjacency.
func (a Adjacency) Offsets() []Coord {
	if a == Faces {
		return faceOffsets[:]
	}
	return fullOffsets[:]
}

// Neighbors returns the coordinates around c that lie within radius cells under
// the given adjacency: a Manhattan ball for Faces and a cube for Full. The
// center is excluded. Coordinates that do not fit in p are left out and
// counted in clipped.
func (c Coord) Neighbors(p Precision, a Adjacency, radius int) (neighbors []Coord, clipped int) {
	if radius <= 0 {
		return nil, 0
	}

	if radius == 1 {
		offsets := a.Offsets()
		neighbors = make([]Coord, 0, len(offsets))
		for _, o := range offsets {
			n, err := c.Add(p, o)
			if err != nil {
				clipped++
				continue
			}
			neighbors = append(neighbors, n)
		}
		return neighbors, clipped
	}

	r := int64(radius)
	for x := -r; x <= r; x++ {
		for y := -r; y <= r; y++ {
			for z := -r; z <= r; z++ {
				if x == 0 && y == 0 && z == 0 {
					continue
				}
				if a == Faces && abs(x)+abs(y)+abs(z) > r {
					continue
				}

				n, err := c.Add(p, NewCoord(x, y, z))
				if err != nil {
					clipped++
					continue
				}
				neighbors = append(neighbors, n)
			}
		}
	}
	return neighbors, clipped
}

// Adjacent reports whether c and o are distinct touching cells.
func (a Adjacency) Adjacent(c, o Coord) bool {
	if c == o || c.Chebyshev(o) != 1 {
		return false
	}
	if a == Full {
		return true
	}
	return absDiff(c.X, o.X)+absDiff(c.Y, o.Y)+absDiff(c.Z, o.Z) == 1
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
