package cell

import (
	"math"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestCoordAdd(t *testing.T) {
	t.Run("adds components", func(t *testing.T) {
		c, err := NewCoord(1, -2, 3).Add(Precision64, NewCoord(4, 5, -6))
		require.NoError(t, err)
		require.Equal(t, NewCoord(5, 3, -3), c)
	})

	t.Run("reports overflow of the precision", func(t *testing.T) {
		c := NewCoord(math.MaxInt8, 0, 0)
		res, err := c.Add(Precision8, NewCoord(1, 0, 0))
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeOverflow))
		require.Equal(t, c, res)
	})

	t.Run("reports int64 overflow instead of wrapping", func(t *testing.T) {
		_, err := NewCoord(0, math.MaxInt64, 0).Add(Precision64, NewCoord(0, 1, 0))
		require.Error(t, err)
		require.Equal(t, ErrTypeOverflow, errors.Type(err))

		_, err = NewCoord(0, 0, math.MinInt64).Add(Precision64, NewCoord(0, 0, -1))
		require.Error(t, err)
	})
}

func TestCoordDelta(t *testing.T) {
	x, y, z := NewCoord(150_000_000_002, -3, 0).Delta(NewCoord(150_000_000_000, 2, 0))
	require.Equal(t, 2.0, x)
	require.Equal(t, -5.0, y)
	require.Zero(t, z)

	x, _, _ = NewCoord(math.MaxInt64, 0, 0).Delta(NewCoord(math.MinInt64, 0, 0))
	require.InEpsilon(t, math.Exp2(64), x, 1e-9)
}

func TestCoordChebyshev(t *testing.T) {
	require.Equal(t, int64(3), NewCoord(0, 0, 0).Chebyshev(NewCoord(1, -3, 2)))
	require.Equal(t, int64(math.MaxInt64), NewCoord(math.MinInt64, 0, 0).Chebyshev(NewCoord(math.MaxInt64, 0, 0)))
}

func TestCoordMinMax(t *testing.T) {
	a := NewCoord(1, 5, -2)
	b := NewCoord(3, -1, -2)
	require.Equal(t, NewCoord(1, -1, -2), a.Min(b))
	require.Equal(t, NewCoord(3, 5, -2), a.Max(b))
}
