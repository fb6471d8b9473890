package cell

import (
	"math"
	"strconv"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Precision is the integer width of cell coordinates.
type Precision uint8

const (
	Precision8   Precision = 8
	Precision16  Precision = 16
	Precision32  Precision = 32
	Precision64  Precision = 64
	Precision128 Precision = 128

	DefaultPrecision = Precision64
)

// ParsePrecision returns the precision matching the given bit width, such as
// "32" or "i32".
func ParsePrecision(v string) (Precision, error) {
	if len(v) > 0 && (v[0] == 'i' || v[0] == 'I') {
		v = v[1:]
	}

	bits, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("invalid cell precision").
			WithTag("value", v).
			Wrap(err)
	}

	p := Precision(bits)
	if int(p) != bits || !p.Valid() {
		return 0, errors.New("unsupported cell precision").WithTag("bits", bits)
	}
	return p, nil
}

func (p Precision) Valid() bool {
	switch p {
	case Precision8, Precision16, Precision32, Precision64, Precision128:
		return true
	default:
		return false
	}
}

// Min returns the smallest representable coordinate component.
func (p Precision) Min() Int128 {
	switch p {
	case Precision8:
		return Int64(math.MinInt8)
	case Precision16:
		return Int64(math.MinInt16)
	case Precision32:
		return Int64(math.MinInt32)
	case Precision128:
		return MinInt128
	default:
		return Int64(math.MinInt64)
	}
}

// Max returns the largest representable coordinate component.
func (p Precision) Max() Int128 {
	switch p {
	case Precision8:
		return Int64(math.MaxInt8)
	case Precision16:
		return Int64(math.MaxInt16)
	case Precision32:
		return Int64(math.MaxInt32)
	case Precision128:
		return MaxInt128
	default:
		return Int64(math.MaxInt64)
	}
}

// Contains reports whether v is representable.
func (p Precision) Contains(v Int128) bool {
	return v.Cmp(p.Min()) >= 0 && v.Cmp(p.Max()) <= 0
}

func (p Precision) String() string {
	return "i" + strconv.Itoa(int(p))
}
