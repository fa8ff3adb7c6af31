// Package feerate implements the integer-only fee-rate and weight
// arithmetic shared by the mempool view, the modified-entry index, and
// the package selector.
package feerate

import (
	"math/bits"

	"github.com/btcsuite/btcd/btcutil"
)

// WitnessScaleFactor is the divisor applied to witness bytes when
// computing transaction weight; non-witness bytes are counted at full
// weight.
const WitnessScaleFactor = 4

// Weight returns 3*baseSize + totalSize, the witness-discounted size
// accounting used throughout the assembler.
func Weight(baseSize, totalSize int64) int64 {
	return 3*baseSize + totalSize
}

// FeeRate is an amount of fee paid per unit of transaction size
// (in the same units btcutil.Amount uses per byte). It is always
// compared via cross-multiplication against another package's
// (fee, size) pair so callers never divide and never round.
type FeeRate struct {
	Fee  btcutil.Amount
	Size int64
}

// Less reports whether fr has a strictly lower feerate than other,
// using fee_a*size_b vs fee_b*size_a cross-multiplication so the
// comparison is exact regardless of magnitude.
func (fr FeeRate) Less(other FeeRate) bool {
	leftHi, leftLo := bits.Mul64(uint64(fr.Fee), uint64(other.Size))
	rightHi, rightLo := bits.Mul64(uint64(other.Fee), uint64(fr.Size))
	if leftHi != rightHi {
		return leftHi < rightHi
	}
	return leftLo < rightLo
}

// AtLeast reports whether fr's feerate is greater than or equal to
// min's, using the same cross-multiply rule as Less.
func (fr FeeRate) AtLeast(min FeeRate) bool {
	return !fr.Less(min)
}

// MinFee returns the minimum fee a package of the given size must pay
// to clear this feerate floor, rounding down.
func (fr FeeRate) MinFee(size int64) btcutil.Amount {
	if fr.Size == 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(fr.Fee), uint64(size))
	q, _ := bits.Div64(hi, lo, uint64(fr.Size))
	return btcutil.Amount(q)
}
