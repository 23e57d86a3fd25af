// Package confirmstat implements bucketed, decayed confirmation statistics
// for a single category of sampled value (fee rate or priority).
//
// It is adapted from the bucketing and decay scheme in
// pkg/feerate/core/core.go's TxConfirmStats, restructured into the
// clear/record/flush cycle the estimator requires: record() only ever
// touches the current block's accumulators, and update_moving_averages()
// is the single point where decay is applied and the current block is
// folded into the historical averages. The teacher's TxConfirmStats instead
// decays in place and lets Record increment the live moving average
// directly; that shortcut doesn't give a clean "transactions seen since the
// last block boundary" snapshot, which the estimator's reorg handling needs.
package confirmstat

import (
	"fmt"
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Sentinel errors for construction/record-time misuse. Per the ambient
// error-handling contract, InvalidArgument conditions are silently ignored
// rather than surfaced, matching pkg/feerate/core/core.go's Record, which
// simply returns on out-of-range input instead of erroring.
var (
	// ErrTooFewBuckets is returned by New when fewer than two buckets are
	// supplied.
	ErrTooFewBuckets = errors.New("confirmstat: need at least 2 buckets")
	// ErrTooManyBuckets is returned by New when more than 1000 buckets are
	// supplied.
	ErrTooManyBuckets = errors.New("confirmstat: at most 1000 buckets allowed")
	// ErrBadMaxConfirms is returned by New when maxConfirms is out of
	// [1, 1008].
	ErrBadMaxConfirms = errors.New("confirmstat: maxConfirms must be in [1, 1008]")
	// ErrBadDecay is returned by New when decay is not strictly inside
	// (0, 1).
	ErrBadDecay = errors.New("confirmstat: decay must satisfy 0 < decay < 1")
)

const (
	minBuckets     = 2
	maxBuckets     = 1000
	minMaxConfirms = 1
	maxMaxConfirms = 1008
)

// Stat is one bucketed, decayed statistics table: the TxConfirmStat of
// spec section 4.1. It is not safe for concurrent use; callers serialize
// access the same way BlockPolicyEstimator does for its two Stats.
type Stat struct {
	label       string
	buckets     []float64
	decay       float64
	maxConfirms int

	// confAvg[y][x] is the decayed count of transactions in bucket x that
	// confirmed within y+1 blocks.
	confAvg [][]float64
	// txCtAvg[x] is the decayed count of transactions sampled into bucket x.
	txCtAvg []float64
	// avg[x] is the decayed sum of the sampled value in bucket x.
	avg []float64

	curBlockConf [][]float64
	curBlockTxCt []float64
	curBlockVal  []float64
}

// New allocates a zeroed Stat. buckets must be strictly increasing upper
// bounds; the last entry is treated as the saturating top bucket for any
// value at or beyond it.
func New(buckets []float64, maxConfirms int, decay float64, label string) (*Stat, error) {
	if len(buckets) < minBuckets {
		return nil, ErrTooFewBuckets
	}
	if len(buckets) > maxBuckets {
		return nil, ErrTooManyBuckets
	}
	if maxConfirms < minMaxConfirms || maxConfirms > maxMaxConfirms {
		return nil, ErrBadMaxConfirms
	}
	if !(decay > 0 && decay < 1) {
		return nil, ErrBadDecay
	}

	k := len(buckets)
	s := &Stat{
		label:       label,
		buckets:     append([]float64(nil), buckets...),
		decay:       decay,
		maxConfirms: maxConfirms,
		confAvg:     make2D(maxConfirms, k),
		txCtAvg:     make([]float64, k),
		avg:         make([]float64, k),
	}
	s.clearLocked()
	return s, nil
}

func make2D(rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
	}
	return out
}

// Label is the human-readable category name ("FeeRate" or "Priority"),
// used only in diagnostic output.
func (s *Stat) Label() string { return s.label }

// MaxConfirms returns the number of confirmation ranges tracked.
func (s *Stat) MaxConfirms() int { return s.maxConfirms }

// Buckets returns the bucket upper bounds, in increasing order.
func (s *Stat) Buckets() []float64 { return append([]float64(nil), s.buckets...) }

// BucketIndex returns the index of the smallest bucket whose upper bound is
// strictly greater than v (ordered-map "strict upper bound" lookup, per
// spec design note). A value at or above the last real bound saturates
// into the final (sentinel) bucket.
func (s *Stat) BucketIndex(v float64) int {
	i := sort.Search(len(s.buckets), func(i int) bool { return v < s.buckets[i] })
	if i >= len(s.buckets) {
		return len(s.buckets) - 1
	}
	return i
}

// ClearCurrent zeros every cur_block_* cell. Dimensions are unchanged, so
// calling it twice in a row is idempotent.
func (s *Stat) ClearCurrent() {
	s.clearLocked()
}

func (s *Stat) clearLocked() {
	k := len(s.buckets)
	s.curBlockConf = make2D(s.maxConfirms, k)
	s.curBlockTxCt = make([]float64, k)
	s.curBlockVal = make([]float64, k)
}

// Record samples one confirmed transaction. blocksToConfirm must be >= 1;
// any other value is silently ignored (InvalidArgument, per spec section 7).
func (s *Stat) Record(blocksToConfirm int, v float64) {
	if blocksToConfirm < 1 {
		return
	}
	x := s.BucketIndex(v)
	top := blocksToConfirm - 1
	for y := top; y < s.maxConfirms; y++ {
		s.curBlockConf[y][x]++
	}
	s.curBlockTxCt[x]++
	s.curBlockVal[x] += v
}

// UpdateMovingAverages decays the historical averages and folds the
// current block's accumulators into them. It does not clear the current
// block accumulators; call ClearCurrent before the next block's samples.
func (s *Stat) UpdateMovingAverages() {
	k := len(s.buckets)
	for x := 0; x < k; x++ {
		for y := 0; y < s.maxConfirms; y++ {
			s.confAvg[y][x] = s.confAvg[y][x]*s.decay + s.curBlockConf[y][x]
		}
		s.txCtAvg[x] = s.txCtAvg[x]*s.decay + s.curBlockTxCt[x]
		s.avg[x] = s.avg[x]*s.decay + s.curBlockVal[x]
	}
}

// EstimateMedian returns the estimated median value for confirmation
// within target blocks at sufficient sample size sufficientTx and minimum
// success rate minSuccess, or -1 if no qualifying bucket window was found.
func (s *Stat) EstimateMedian(target int, sufficientTx, minSuccess float64) float64 {
	if target <= 0 || target > s.maxConfirms {
		return -1
	}

	k := len(s.buckets)
	threshold := sufficientTx / (1 - s.decay)

	top := k - 1
	curLow, curHigh := top, top
	bestLow, bestHigh := -1, -1
	found := false

	var nConf, total float64

	for bucket := top; bucket >= 0; bucket-- {
		curLow = bucket
		nConf += s.confAvg[target-1][bucket]
		total += s.txCtAvg[bucket]

		if total < threshold {
			continue
		}

		rate := nConf / total
		if rate < minSuccess {
			// Descent stops: keep the last good window.
			break
		}

		found = true
		bestLow, bestHigh = curLow, curHigh
		nConf, total = 0, 0
		curHigh = bucket - 1
	}

	if !found {
		return -1
	}

	var txSum float64
	for j := bestLow; j <= bestHigh; j++ {
		txSum += s.txCtAvg[j]
	}
	if txSum == 0 {
		return -1
	}

	half := txSum / 2
	for j := bestLow; j <= bestHigh; j++ {
		if half-s.txCtAvg[j] > 0 {
			half -= s.txCtAvg[j]
			continue
		}
		if s.txCtAvg[j] == 0 {
			return -1
		}
		return s.avg[j] / s.txCtAvg[j]
	}

	return -1
}

// DumpBuckets renders one diagnostic line per bucket, for debug output
// only (spec section 6: "debug printer... diagnostic purposes only").
func (s *Stat) DumpBuckets() string {
	out := fmt.Sprintf("%s buckets (decay=%.5f, maxConfirms=%d):\n", s.label, s.decay, s.maxConfirms)
	for x, b := range s.buckets {
		avg := 0.0
		if s.txCtAvg[x] > 0 {
			avg = s.avg[x] / s.txCtAvg[x]
		}
		upper := b
		if math.IsInf(upper, 1) {
			out += fmt.Sprintf("  [.. +Inf) n=%.2f avg=%.2f\n", s.txCtAvg[x], avg)
			continue
		}
		out += fmt.Sprintf("  [.. %.2f) n=%.2f avg=%.2f\n", upper, s.txCtAvg[x], avg)
	}
	return out
}
