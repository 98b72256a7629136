package safeconv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMustUintToInt_ConvertsInBounds(t *testing.T) {
	require.Equal(t, 42, MustUintToInt(42))
}

func TestMustUintToInt_PanicsOnOverflow(t *testing.T) {
	require.Panics(t, func() { MustUintToInt(uint(MaxInt) + 1) })
}

func TestMustIntToUint_ConvertsInBounds(t *testing.T) {
	require.Equal(t, uint(42), MustIntToUint(42))
}

func TestMustIntToUint_PanicsOnNegative(t *testing.T) {
	require.Panics(t, func() { MustIntToUint(-1) })
}

func TestMustIntToUint32_ConvertsInBounds(t *testing.T) {
	require.Equal(t, uint32(42), MustIntToUint32(42))
}

func TestMustIntToUint32_PanicsOnNegative(t *testing.T) {
	require.Panics(t, func() { MustIntToUint32(-1) })
}

func TestMustIntToUint32_PanicsAboveMax(t *testing.T) {
	require.Panics(t, func() { MustIntToUint32(int(MaxUint32) + 1) })
}
