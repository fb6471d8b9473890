package cell

import (
	"cmp"
	"math"
	"math/big"
	"math/bits"
	"strconv"
)

var (
	MinInt128 = Int128{Hi: math.MinInt64}
	MaxInt128 = Int128{Hi: math.MaxInt64, Lo: math.MaxUint64}
)

// Int128 is a two's complement signed 128-bit integer. Hi carries the sign.
type Int128 struct {
	Hi int64
	Lo uint64
}

func Int64(v int64) Int128 {
	return Int128{Hi: v >> 63, Lo: uint64(v)}
}

// Add returns a+b and false when the sum overflows 128 bits.
func (a Int128) Add(b Int128) (Int128, bool) {
	lo, carry := bits.Add64(a.Lo, b.Lo, 0)
	hi, _ := bits.Add64(uint64(a.Hi), uint64(b.Hi), carry)
	s := Int128{Hi: int64(hi), Lo: lo}
	if (a.Hi < 0) == (b.Hi < 0) && (s.Hi < 0) != (a.Hi < 0) {
		return s, false
	}
	return s, true
}

// Sub returns a-b and false when the difference overflows 128 bits.
func (a Int128) Sub(b Int128) (Int128, bool) {
	lo, borrow := bits.Sub64(a.Lo, b.Lo, 0)
	hi, _ := bits.Sub64(uint64(a.Hi), uint64(b.Hi), borrow)
	d := Int128{Hi: int64(hi), Lo: lo}
	if (a.Hi < 0) != (b.Hi < 0) && (d.Hi < 0) != (a.Hi < 0) {
		return d, false
	}
	return d, true
}

// Neg returns -a. MinInt128 is its own negation.
func (a Int128) Neg() Int128 {
	lo := ^a.Lo + 1
	hi := ^a.Hi
	if lo == 0 {
		hi++
	}
	return Int128{Hi: hi, Lo: lo}
}

func (a Int128) Cmp(b Int128) int {
	return cmp.Or(cmp.Compare(a.Hi, b.Hi), cmp.Compare(a.Lo, b.Lo))
}

func (a Int128) Sign() int {
	switch {
	case a.Hi < 0:
		return -1
	case a.Hi == 0 && a.Lo == 0:
		return 0
	default:
		return 1
	}
}

// IsInt64 reports whether a fits in an int64.
func (a Int128) IsInt64() bool {
	return a.Hi == int64(a.Lo)>>63
}

// Int64 returns the low 64 bits of a as an int64.
func (a Int128) Int64() int64 {
	return int64(a.Lo)
}

// Float64 returns the nearest float64 to a.
func (a Int128) Float64() float64 {
	if a.IsInt64() {
		return float64(a.Int64())
	}
	if a.Hi < 0 {
		m := a.Neg()
		return -(float64(uint64(m.Hi))*0x1p64 + float64(m.Lo))
	}
	return float64(a.Hi)*0x1p64 + float64(a.Lo)
}

// Int128FromFloat64 truncates v toward zero. It returns false when v is NaN or
// does not fit in 128 bits.
func Int128FromFloat64(v float64) (Int128, bool) {
	if math.IsNaN(v) || v >= 0x1p127 || v < -0x1p127 {
		return Int128{}, false
	}
	if v >= -0x1p63 && v < 0x1p63 {
		return Int64(int64(v)), true
	}

	m := math.Abs(v)
	hi := math.Floor(m / 0x1p64)
	r := Int128{Hi: int64(hi), Lo: uint64(m - hi*0x1p64)}
	if v < 0 {
		r = r.Neg()
	}
	return r, true
}

func (a Int128) Big() *big.Int {
	b := new(big.Int).Lsh(big.NewInt(a.Hi), 64)
	return b.Add(b, new(big.Int).SetUint64(a.Lo))
}

func (a Int128) String() string {
	if a.IsInt64() {
		return strconv.FormatInt(a.Int64(), 10)
	}
	return a.Big().String()
}
