package fixedpoint

import (
	"errors"
	"math/big"
)

var (
	tokenScale     = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	ratioPrecision = new(big.Int).Exp(big.NewInt(10), big.NewInt(10), nil)
)

// ErrNegativeInput indicates a square root was requested for a negative value.
var ErrNegativeInput = errors.New("fixedpoint: square root of negative value")

// TokenScale returns the wei-style scaling factor applied to token amounts.
// One whole token equals 10^18 of the smallest unit.
func TokenScale() *big.Int {
	return new(big.Int).Set(tokenScale)
}

// RatioPrecision returns the fixed point denominator used for ratio and
// multiplier arithmetic throughout the emission path.
func RatioPrecision() *big.Int {
	return new(big.Int).Set(ratioPrecision)
}

// Sqrt computes the integer square root of n using Newton iteration: the
// largest s such that s*s <= n. The result is deterministic across platforms
// because no floating point is involved.
func Sqrt(n *big.Int) (*big.Int, error) {
	if n == nil || n.Sign() < 0 {
		return nil, ErrNegativeInput
	}
	if n.Sign() == 0 {
		return big.NewInt(0), nil
	}
	// Seed with a power of two no smaller than the root so the iteration
	// converges monotonically from above.
	guess := new(big.Int).Lsh(big.NewInt(1), uint(n.BitLen()+1)/2)
	for {
		next := new(big.Int).Quo(n, guess)
		next.Add(next, guess)
		next.Rsh(next, 1)
		if next.Cmp(guess) >= 0 {
			return guess, nil
		}
		guess = next
	}
}

// DecadeBracket maps a non-negative value onto the 0..9 range using decade
// thresholds: values below 10 map to 0, below 100 to 1, and so on, saturating
// at 9 for values of 10^9 and above. It is a discretised base-10 logarithm
// that avoids floating point entirely.
func DecadeBracket(n *big.Int) uint64 {
	if n == nil || n.Sign() <= 0 {
		return 0
	}
	threshold := big.NewInt(10)
	ten := big.NewInt(10)
	var bracket uint64
	for bracket < 9 {
		if n.Cmp(threshold) < 0 {
			break
		}
		bracket++
		threshold = new(big.Int).Mul(threshold, ten)
	}
	return bracket
}
