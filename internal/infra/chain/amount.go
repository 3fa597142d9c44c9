package chain

import "math/big"

// meetsAmount reports whether a received on-chain amount satisfies the
// expected amount under the 1% downward tolerance: received >= expected*0.99.
// Integer math only, so the boundary is exact (990_000_000 of 1_000_000_000
// passes, 989_999_999 does not). A higher observed amount always passes.
func meetsAmount(received, expected int64) bool {
	return meetsAmountBig(big.NewInt(received), expected)
}

func meetsAmountBig(received *big.Int, expected int64) bool {
	if received.Sign() <= 0 {
		return false
	}
	r := new(big.Int).Mul(received, big.NewInt(100))
	e := new(big.Int).Mul(big.NewInt(expected), big.NewInt(99))
	return r.Cmp(e) >= 0
}
