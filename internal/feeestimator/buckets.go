package feeestimator

import "math"

// Constants per spec section 4.2. These are not tunable in the core, the
// same way pkg/feerate/core/estimator.go hardcodes its ShortDecay/MedDecay/
// LongDecay/block-period constants as package vars rather than
// configuration.
const (
	// MaxBlockConfirms is the deepest confirmation target tracked.
	MaxBlockConfirms = 25
	// DefaultDecay is the per-block EMA decay factor for both stats.
	DefaultDecay = 0.998
	// MinSuccessPct is the success-rate threshold estimate_median requires.
	MinSuccessPct = 0.85
	// SufficientFeeTxs is the sample-size coefficient for the fee stat.
	SufficientFeeTxs = 1.0
	// SufficientPriTxs is the sample-size coefficient for the priority stat.
	SufficientPriTxs = 0.1
	// MinPriorityVal is the coin-age priority threshold separating the
	// "low" and "high" priority categories.
	MinPriorityVal = 1e8
)

// feeBuckets returns the 39 fee-rate bucket upper bounds: a leading zero
// sentinel, then 1000 spaced upward by a factor of 10^(1/12) through 1e6,
// then a 1e16 sentinel top bucket.
// Grounded on pkg/feerate/core/estimator.go's exponential bucket spacing
// (FeeSpacing), adapted to the spec's exact bound count and ratio.
//
// Each bound is computed as 1000 * 10^(k/12) directly from k, rather than
// by repeatedly multiplying the previous bound by 10^(1/12): the direct
// form lands exactly on 10000 at k=12 (math.Pow's integer-exponent fast
// path makes 10^1 exact), which matters for the boundary case of a
// fee-rate landing exactly on a bucket bound (see buckets_test.go).
func feeBuckets() []float64 {
	const n = 39
	out := make([]float64, 0, n)
	out = append(out, 0)
	for k := 0; len(out) < n; k++ {
		out = append(out, 1000*math.Pow(10, float64(k)/12))
	}
	out[len(out)-1] = 1e16
	return out
}

// priorityBuckets returns the 13 priority bucket upper bounds: 1e5..1e16
// spaced by a factor of 10, plus a 1e99 sentinel top bucket.
func priorityBuckets() []float64 {
	out := make([]float64, 0, 13)
	v := 1e5
	for v <= 1e16+1 {
		out = append(out, v)
		v *= 10
	}
	out = append(out, 1e99)
	return out
}
