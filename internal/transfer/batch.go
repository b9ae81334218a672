package transfer

import (
	"fmt"
	"math"
	"math/big"
	"math/bits"
)

// VectorsPerTransfer returns how many vectors to accumulate before each
// transfer: floor(dimension*bytesPerScalar*totalLiveDocs / budget).
//
// A zero quotient means the whole stream fits the budget and is collapsed to
// totalLiveDocs, so the stream is sent in a single transfer. The heuristic is
// approximate: a smaller budget produces larger batches. A quotient that does
// not fit in int64 saturates at math.MaxInt64.
func VectorsPerTransfer(dimension, bytesPerScalar int, totalLiveDocs, budget int64) (int64, error) {
	if dimension <= 0 || bytesPerScalar <= 0 || totalLiveDocs <= 0 || budget <= 0 {
		return 0, fmt.Errorf("%w: dimension=%d bytesPerScalar=%d totalLiveDocs=%d budget=%d",
			ErrInvalidArgument, dimension, bytesPerScalar, totalLiveDocs, budget)
	}

	q, ok := quotient(dimension, bytesPerScalar, totalLiveDocs, budget)
	if !ok {
		return math.MaxInt64, nil
	}
	if q == 0 {
		return totalLiveDocs, nil
	}
	return q, nil
}

// quotient computes floor(dimension*bytesPerScalar*totalLiveDocs/budget) and
// reports false if the result does not fit in int64.
func quotient(dimension, bytesPerScalar int, totalLiveDocs, budget int64) (int64, bool) {
	if hi, width := bits.Mul64(uint64(dimension), uint64(bytesPerScalar)); hi == 0 {
		hi, lo := bits.Mul64(width, uint64(totalLiveDocs))
		d := uint64(budget)
		if hi >= d {
			return 0, false
		}
		q, _ := bits.Div64(hi, lo, d)
		if q > math.MaxInt64 {
			return 0, false
		}
		return int64(q), true
	}

	// Width alone overflows 64 bits.
	n := new(big.Int).SetInt64(int64(dimension))
	n.Mul(n, big.NewInt(int64(bytesPerScalar)))
	n.Mul(n, big.NewInt(totalLiveDocs))
	n.Quo(n, big.NewInt(budget))
	if !n.IsInt64() {
		return 0, false
	}
	return n.Int64(), true
}
