package transfer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorsPerTransfer(t *testing.T) {
	tests := []struct {
		name          string
		dim, bps      int
		total, budget int64
		want          int64
	}{
		{"fits in budget collapses to total", 4, 4, 10, 1000, 10},
		{"divides evenly", 128, 4, 1000, 51200, 10},
		{"truncates", 128, 4, 1000, 51201, 9},
		{"huge budget", 768, 4, 1_000_000, math.MaxInt64, 1_000_000},
		{"smaller budget gives larger batches", 128, 4, 1000, 25600, 20},
		{"single doc", 3, 4, 1, 1, 12},
		{"saturates", math.MaxInt32, 4, math.MaxInt64, 1, math.MaxInt64},
		{"wide product", math.MaxInt64, 4, 1, math.MaxInt64, 4},
		{"wide product saturates", math.MaxInt64, 4, 2, 1, math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VectorsPerTransfer(tt.dim, tt.bps, tt.total, tt.budget)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVectorsPerTransfer_AlwaysPositive(t *testing.T) {
	for _, dim := range []int{1, 3, 128, 1536} {
		for _, total := range []int64{1, 2, 999, 1 << 20} {
			for _, budget := range []int64{1, 1000, 1 << 20, 1 << 40} {
				n, err := VectorsPerTransfer(dim, 4, total, budget)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, n, int64(1))
			}
		}
	}
}

func TestVectorsPerTransfer_InvalidArguments(t *testing.T) {
	for _, args := range [][4]int64{
		{0, 4, 10, 100},
		{4, 0, 10, 100},
		{4, 4, 0, 100},
		{4, 4, 10, 0},
		{-1, 4, 10, 100},
		{4, 4, -5, 100},
	} {
		_, err := VectorsPerTransfer(int(args[0]), int(args[1]), args[2], args[3])
		assert.ErrorIs(t, err, ErrInvalidArgument, "args %v", args)
	}
}
