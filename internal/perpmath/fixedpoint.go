// Package perpmath implements the deterministic fee, funding and
// liquidation-price arithmetic over 6-decimal atomic USD amounts.
// Every formula multiplies before dividing so intermediate products
// keep full precision; intermediates go through big.Int because a
// size times price product does not fit in int64.
package perpmath

import (
	"math/big"
	"sync"
)

// BpsDenominator converts basis points to a fraction.
const BpsDenominator = 10_000

var intPool = sync.Pool{
	New: func() any { return new(big.Int) },
}

func getInt() *big.Int {
	return intPool.Get().(*big.Int)
}

func putInt(v *big.Int) {
	v.SetInt64(0)
	intPool.Put(v)
}

// mulDiv computes a*b/denom with a wide intermediate, truncating
// toward zero. denom must be non-zero.
func mulDiv(a, b, denom int64) int64 {
	num := getInt()
	num.Mul(big.NewInt(a), big.NewInt(b))
	num.Quo(num, big.NewInt(denom))
	out := num.Int64()
	putInt(num)
	return out
}
