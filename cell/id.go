package cell

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// GridID is the handle of a grid. Grids are identified by the id of the entity
// that carries them.
type GridID = uint32

// ID identifies one cell of one grid.
type ID struct {
	Grid  GridID
	Coord Coord
}

func NewID(grid GridID, coord Coord) ID {
	return ID{Grid: grid, Coord: coord}
}

// Hash returns the xxhash of the little endian encoding of the id. The value
// does not depend on the platform or the process.
func (id ID) Hash() Hash {
	var b [52]byte
	binary.LittleEndian.PutUint32(b[0:], id.Grid)
	putAxis(b[4:], id.Coord.X)
	putAxis(b[20:], id.Coord.Y)
	putAxis(b[36:], id.Coord.Z)
	return Hash(xxhash.Sum64(b[:]))
}

func putAxis(b []byte, v Int128) {
	binary.LittleEndian.PutUint64(b, v.Lo)
	binary.LittleEndian.PutUint64(b[8:], uint64(v.Hi))
}

func (id ID) String() string {
	return fmt.Sprintf("%d:%s", id.Grid, id.Coord)
}

// Hash is a bucketing accelerant for cell lookups. Two ids with the same hash
// are not necessarily the same cell.
type Hash uint64

// Key is an ID with its precomputed hash. It is cached on entities and only
// recomputed when their cell changes.
type Key struct {
	ID   ID
	Hash Hash
}

func NewKey(grid GridID, coord Coord) Key {
	return KeyOf(NewID(grid, coord))
}

func KeyOf(id ID) Key {
	return Key{ID: id, Hash: id.Hash()}
}

func (k Key) Grid() GridID {
	return k.ID.Grid
}

func (k Key) Coord() Coord {
	return k.ID.Coord
}

// WithCoord returns the key of another cell of the same grid.
func (k Key) WithCoord(c Coord) Key {
	return NewKey(k.ID.Grid, c)
}

func (k Key) String() string {
	return k.ID.String()
}
