package mathutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCeilDiv(t *testing.T) {
	cases := []struct {
		x, y, want int
	}{
		{10, 3, 4},
		{9, 3, 3},
		{0, 5, 0},
		{5, 0, 0},
	}
	for _, c := range cases {
		require.Equal(t, c.want, CeilDiv(c.x, c.y))
	}
}

func TestClamp(t *testing.T) {
	require.Equal(t, 1, Clamp(0, 1, 10))
	require.Equal(t, 10, Clamp(20, 1, 10))
	require.Equal(t, 5, Clamp(5, 1, 10))
}

func TestAbsoluteDifference(t *testing.T) {
	require.Equal(t, uint64(3), AbsoluteDifference(10, 7))
	require.Equal(t, uint64(3), AbsoluteDifference(7, 10))
}

func TestSafeAddOverflow(t *testing.T) {
	sum, overflow := SafeAdd(1, 2)
	require.False(t, overflow)
	require.Equal(t, uint64(3), sum)

	_, overflow = SafeAdd(^uint64(0), 1)
	require.True(t, overflow)
}

func TestSafeMulOverflow(t *testing.T) {
	product, overflow := SafeMul(3, 4)
	require.False(t, overflow)
	require.Equal(t, uint64(12), product)

	_, overflow = SafeMul(^uint64(0), 2)
	require.True(t, overflow)
}
