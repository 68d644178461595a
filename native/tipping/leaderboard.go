package tipping

import "math/big"

// EvaluateTopTip reports whether candidate takes the all-time top tip. Ties do
// not displace the current holder.
func EvaluateTopTip(candidate, currentTop *big.Int) bool {
	if candidate == nil {
		return false
	}
	if currentTop == nil {
		return candidate.Sign() > 0
	}
	return candidate.Cmp(currentTop) > 0
}
