// Package feeestimator implements BlockPolicyEstimator: the component that
// classifies confirmed transactions into a fee-rate or priority
// confirmstat.Stat and answers "what value clears within N blocks".
//
// Grounded on pkg/feerate/core/estimator.go's BlockPolicyEstimator
// (ProcessTransaction/processBlock/estimateFee), simplified to the single
// decay horizon spec section 4.2 calls for instead of the teacher's
// short/medium/long three-horizon design.
package feeestimator

import (
	"go.uber.org/zap"

	"github.com/morcos/bitcoin/internal/confirmstat"
	"github.com/morcos/bitcoin/internal/mempool"
)

// Estimator is BlockPolicyEstimator: it is not safe for concurrent use,
// per spec section 5 ("the estimator is not thread-safe; callers must
// serialize access").
type Estimator struct {
	logger *zap.Logger

	bestSeenHeight int32

	feeStats *confirmstat.Stat
	priStats *confirmstat.Stat

	minRelayFee float64
}

// New builds an Estimator with the spec's default buckets, decay and
// max-confirms. minRelayFee is the fee-rate threshold (in the same units
// as mempool.Entry.FeeRatePerKB) at or below which a transaction is classified
// as "low" fee.
func New(logger *zap.Logger, minRelayFee float64) *Estimator {
	if logger == nil {
		logger = zap.NewNop()
	}

	feeStats, err := confirmstat.New(feeBuckets(), MaxBlockConfirms, DefaultDecay, "FeeRate")
	if err != nil {
		// The default bucket tables always satisfy confirmstat.New's
		// invariants; a failure here means the constants above were
		// edited incorrectly.
		panic(err)
	}
	priStats, err := confirmstat.New(priorityBuckets(), MaxBlockConfirms, DefaultDecay, "Priority")
	if err != nil {
		panic(err)
	}

	return &Estimator{
		logger:      logger,
		feeStats:    feeStats,
		priStats:    priStats,
		minRelayFee: minRelayFee,
	}
}

// BestSeenHeight returns the highest block height processed so far.
func (e *Estimator) BestSeenHeight() int32 { return e.bestSeenHeight }

// ProcessTransaction samples one confirmed transaction into the
// appropriate stat, per spec section 4.2. It is a no-op unless the entry
// was clear at entry.
func (e *Estimator) ProcessTransaction(blockHeight int32, entry mempool.Entry) {
	if !entry.ClearAtEntry {
		return
	}

	blocksToConfirm := blockHeight - entry.Height
	if blocksToConfirm <= 0 {
		// Reorg anomaly: the entry height is not behind the block that
		// supposedly confirmed it.
		return
	}

	feeRate := entry.FeeRatePerKB()

	var feeCategory string
	switch {
	case entry.Fee == 0:
		feeCategory = "zero"
	case feeRate <= e.minRelayFee:
		feeCategory = "low"
	default:
		feeCategory = "high"
	}

	priCategory := "high"
	if entry.Priority < MinPriorityVal {
		priCategory = "low"
	}

	switch {
	case feeCategory == "high" && priCategory == "low":
		e.feeStats.Record(int(blocksToConfirm), feeRate)
	case feeCategory == "zero" || (feeCategory == "low" && priCategory == "high"):
		e.priStats.Record(int(blocksToConfirm), entry.Priority)
	default:
		// (high, high) and (low, low) are ambiguous attribution and are
		// dropped, matching pkg/feerate/core/estimator.go's undocumented
		// behavior for the same classification (see DESIGN.md open
		// questions).
	}
}

// ProcessBlock advances the estimator to blockHeight, replaying entries
// through ProcessTransaction and updating the moving averages. Side
// chains/reorgs (blockHeight <= BestSeenHeight) are ignored.
func (e *Estimator) ProcessBlock(blockHeight int32, entries []mempool.Entry) {
	if blockHeight <= e.bestSeenHeight {
		return
	}
	e.bestSeenHeight = blockHeight

	e.feeStats.ClearCurrent()
	e.priStats.ClearCurrent()

	for _, entry := range entries {
		e.ProcessTransaction(blockHeight, entry)
	}

	e.feeStats.UpdateMovingAverages()
	e.priStats.UpdateMovingAverages()

	e.logger.Debug("processed block",
		zap.Int32("height", blockHeight),
		zap.Int("entries", len(entries)),
	)
}

// EstimateFee returns the fee rate needed to confirm within target blocks,
// or 0 if target is out of range or there isn't enough data.
func (e *Estimator) EstimateFee(target int) float64 {
	if target <= 0 || target > MaxBlockConfirms {
		return 0
	}
	m := e.feeStats.EstimateMedian(target, SufficientFeeTxs, MinSuccessPct)
	if m < 0 {
		return 0
	}
	return m
}

// EstimatePriority returns the priority needed to confirm within target
// blocks, or -1 if target is out of range or there isn't enough data.
func (e *Estimator) EstimatePriority(target int) float64 {
	if target <= 0 || target > MaxBlockConfirms {
		return -1
	}
	return e.priStats.EstimateMedian(target, SufficientPriTxs, MinSuccessPct)
}

// DumpBuckets renders both stats' diagnostic dump, for debug output only.
func (e *Estimator) DumpBuckets() string {
	return e.feeStats.DumpBuckets() + e.priStats.DumpBuckets()
}
