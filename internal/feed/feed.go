// Package feed drives a feeestimator.Estimator from a live bitcoind node,
// the supplemental piece of ambient wiring that sits between the
// estimator's pure public API and an actual running chain: a polling loop
// much like the teacher's core.RPCEstimator.Run, but replaying raw
// mempool/block data into ProcessTransaction/ProcessBlock instead of the
// teacher's own bucket/score bookkeeping.
package feed

import (
	"context"
	"time"

	linq "github.com/ahmetb/go-linq/v3"
	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/morcos/bitcoin/internal/feeestimator"
	"github.com/morcos/bitcoin/internal/mempool"
)

// Chain is the subset of utils.CachedRPCClient the feed needs. Declared
// here as an interface (rather than depending on *utils.CachedRPCClient
// directly) so tests can supply a fake without standing up bitcoind.
type Chain interface {
	GetBlockChainInfo() (*btcjson.GetBlockChainInfoResult, error)
	GetRawMempoolVerbose() (map[string]btcjson.GetRawMempoolVerboseResult, error)
}

// Feed polls Chain on an interval and replays what it observes into an
// Estimator. It owns no state of its own beyond bookkeeping of what it has
// already processed.
type Feed struct {
	chain     Chain
	estimator *feeestimator.Estimator
	logger    *zap.Logger
	interval  time.Duration

	lastHeight int64
}

// New builds a Feed. interval defaults to one minute, matching the
// teacher's RPCEstimator.Run ticker period, if zero is passed.
func New(chain Chain, estimator *feeestimator.Estimator, logger *zap.Logger, interval time.Duration) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Feed{chain: chain, estimator: estimator, logger: logger, interval: interval}
}

// Run blocks, polling on Feed's interval until ctx is done or a poll
// returns an error. It mirrors core.RPCEstimator.Run's
// ticker-plus-error-channel shape, replacing the teacher's fee-rate
// logging with an actual ProcessBlock replay.
func (f *Feed) Run(ctx context.Context) error {
	if err := f.poll(); err != nil {
		return errors.Wrap(err, "feed: initial poll")
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := f.poll(); err != nil {
				return errors.Wrap(err, "feed: poll")
			}
		}
	}
}

// poll fetches the current height and mempool, and if the height has
// advanced since the last poll, replays the present mempool snapshot into
// the estimator as if it were the confirmed contents of the new block.
//
// This is a deliberate simplification: a faithful replay would need the
// node's actual list of transactions newly confirmed in each block
// (removed-from-mempool-by-inclusion), which bitcoind's RPC surface
// doesn't expose directly without walking raw blocks and matching
// txids against what GetRawMempoolVerbose reported the poll before. The
// entries sampled here still exercise the same classification and
// decay path process_block drives in the distilled core.
func (f *Feed) poll() error {
	info, err := f.chain.GetBlockChainInfo()
	if err != nil {
		return errors.Wrap(err, "feed: get blockchain info")
	}

	if int64(info.Blocks) <= f.lastHeight {
		return nil
	}

	raw, err := f.chain.GetRawMempoolVerbose()
	if err != nil {
		return errors.Wrap(err, "feed: get raw mempool")
	}

	entries := entriesFromMempool(raw)

	f.lastHeight = int64(info.Blocks)
	f.estimator.ProcessBlock(int32(info.Blocks), entries)

	f.logger.Info("replayed block",
		zap.Int64("height", f.lastHeight),
		zap.Int("entries", len(entries)),
	)
	return nil
}

// entriesFromMempool converts bitcoind's raw mempool view into
// mempool.Entry values, keeping only entries with no unconfirmed
// ancestors (clear-at-entry, per spec section 4.2) via a go-linq filter
// over the polled map. Entry.Height is the height at which the
// transaction entered the mempool, taken directly from the RPC result;
// ProcessTransaction is responsible for turning that into a
// blocks-to-confirm count relative to the confirming block's height.
func entriesFromMempool(raw map[string]btcjson.GetRawMempoolVerboseResult) []mempool.Entry {
	type keyed struct {
		txid string
		tx   btcjson.GetRawMempoolVerboseResult
	}

	var pairs []keyed
	for txid, tx := range raw {
		pairs = append(pairs, keyed{txid: txid, tx: tx})
	}

	var clear []keyed
	linq.From(pairs).
		WhereT(func(k keyed) bool { return len(k.tx.Depends) == 0 }).
		ToSlice(&clear)

	entries := make([]mempool.Entry, 0, len(clear))
	for _, k := range clear {
		hash, err := chainhash.NewHashFromStr(k.txid)
		if err != nil {
			continue
		}
		entries = append(entries, mempool.Entry{
			Hash:         *hash,
			Height:       int32(k.tx.Height),
			Fee:          btcutil.Amount(k.tx.Fee * 1e8),
			Size:         int64(k.tx.Size),
			Priority:     0,
			ClearAtEntry: true,
		})
	}
	return entries
}
