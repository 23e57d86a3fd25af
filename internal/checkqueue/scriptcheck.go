package checkqueue

import (
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// ScriptCheck is one instance of the predicate Bitcoin Core's own
// CCheckQueue was built to run in parallel: verifying a single
// transaction input's signature script against the script and value of
// the output it spends. Grounded on the one place the teacher repo
// touches txscript (pkg/feerate/btcutil/estimator.go's dependency on
// btcsuite/btcd/txscript for script classification) but instantiated here
// for its real production use-case, not the teacher's.
type ScriptCheck struct {
	Tx         *wire.MsgTx
	InputIndex int
	PrevScript []byte
	PrevValue  int64
}

// Predicate returns the boolean-returning closure ParallelCheckQueue
// evaluates: a full script engine execution for this one input.
func (c ScriptCheck) Predicate() Predicate {
	return func() bool {
		engine, err := txscript.NewEngine(
			c.PrevScript,
			c.Tx,
			c.InputIndex,
			txscript.StandardVerifyFlags,
			txscript.NewSigCache(0),
			nil,
			c.PrevValue,
		)
		if err != nil {
			return false
		}
		return engine.Execute() == nil
	}
}

// NewBatchFromBlock builds one ScriptCheck predicate per transaction
// input in block (skipping coinbase, which has no real prevout to
// verify), given a lookup from outpoint to the spent output's script and
// value. Entries the lookup doesn't cover are skipped rather than
// evaluated against a zero-value script, since an empty chainstate view
// is expected for a standalone demo rather than a corruption signal.
func NewBatchFromBlock(block *wire.MsgBlock, prevOut func(wire.OutPoint) ([]byte, int64, bool)) []Predicate {
	var batch []Predicate
	for txIdx, tx := range block.Transactions {
		if txIdx == 0 {
			continue
		}
		for i, in := range tx.TxIn {
			script, value, ok := prevOut(in.PreviousOutPoint)
			if !ok {
				continue
			}
			check := ScriptCheck{
				Tx:         tx,
				InputIndex: i,
				PrevScript: script,
				PrevValue:  value,
			}
			batch = append(batch, check.Predicate())
		}
	}
	return batch
}
