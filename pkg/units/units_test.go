package units

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnitMultipliers(t *testing.T) {
	require.Equal(t, int64(1024), int64(KiB))
	require.Equal(t, int64(1024*1024), int64(MiB))
	require.Equal(t, int64(1024*1024*1024), int64(GiB))
}
