// Package mempool holds the minimal transaction-entry shape the fee
// estimator samples from. The estimator treats the originating mempool as an
// opaque collaborator; this type is the concrete contract it compiles
// against, grounded on the fields used by
// pkg/feerate/bitcoincore/structs.go's MempoolTransaction and
// pkg/feerate/core/estimator.go's MempoolTx in the teacher repo.
package mempool

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcutil"
)

// Entry describes a single transaction as seen by the fee estimator at the
// moment it is replayed into a block.
type Entry struct {
	Hash chainhash.Hash

	// Height is the block height at which the transaction entered the
	// mempool.
	Height int32

	// Fee is the total fee paid by the transaction.
	Fee btcutil.Amount

	// Size is the serialized transaction size in bytes.
	Size int64

	// Priority is the transaction's priority at the given block height
	// (coin-age based; computed by the caller).
	Priority float64

	// ClearAtEntry is true when the transaction had no unconfirmed
	// in-mempool ancestors at the time it entered the mempool. Only
	// clear-at-entry transactions are sampled, to keep the estimate
	// unbiased by chains of dependent transactions.
	ClearAtEntry bool
}

// FeeRatePerKB returns the transaction's fee rate in smallest-currency-unit
// per kilobyte, the unit TxConfirmStat buckets on.
func (e Entry) FeeRatePerKB() float64 {
	if e.Size <= 0 {
		return 0
	}
	return float64(e.Fee) * 1000 / float64(e.Size)
}
