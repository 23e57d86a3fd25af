package feeestimator

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/morcos/bitcoin/internal/confirmstat"
)

// Versioning per spec section 6: version_required >= legacyVersionThreshold
// denotes the modern on-disk layout. New estimates files are always written
// at currentVersionWritten/currentVersionRequired; older files down to the
// legacy layout are still readable.
const (
	legacyVersionThreshold = 100000
	currentVersionRequired = 139900
	currentVersionWritten  = 149900
)

// ErrCorrupt wraps confirmstat.ErrCorrupt at the estimator level so callers
// don't need to import the inner package just to compare sentinel errors.
var ErrCorrupt = confirmstat.ErrCorrupt

// WriteTo serializes the estimator's full on-disk state: header, then
// fee_stats, then pri_stats, in that order, always in the modern layout.
func (e *Estimator) WriteTo(w io.Writer) error {
	if err := writeInt32(w, currentVersionRequired); err != nil {
		return errors.Wrap(err, "feeestimator: write version_required")
	}
	if err := writeInt32(w, currentVersionWritten); err != nil {
		return errors.Wrap(err, "feeestimator: write version_written")
	}
	if err := writeInt32(w, e.bestSeenHeight); err != nil {
		return errors.Wrap(err, "feeestimator: write best_seen_height")
	}
	if err := e.feeStats.WriteTo(w); err != nil {
		return errors.Wrap(err, "feeestimator: write fee_stats")
	}
	if err := e.priStats.WriteTo(w); err != nil {
		return errors.Wrap(err, "feeestimator: write pri_stats")
	}
	return nil
}

// ReadFrom replaces the estimator's state from r. On any error — I/O or
// corruption — the estimator's existing fee_stats/pri_stats/bestSeenHeight
// are left completely untouched; ReadFrom only swaps them in after a fully
// successful decode of both stats, per spec section 6's "the in-memory
// instance is left untouched" requirement.
func (e *Estimator) ReadFrom(r io.Reader) error {
	versionRequired, err := readInt32(r)
	if err != nil {
		return errors.Wrap(err, "feeestimator: read version_required")
	}
	if _, err := readInt32(r); err != nil { // version_written, informational only
		return errors.Wrap(err, "feeestimator: read version_written")
	}
	bestSeenHeight, err := readInt32(r)
	if err != nil {
		return errors.Wrap(err, "feeestimator: read best_seen_height")
	}

	legacy := versionRequired < legacyVersionThreshold

	feeStats, err := confirmstat.Decode(r, legacy, "FeeRate")
	if err != nil {
		return errors.Wrap(err, "feeestimator: decode fee_stats")
	}
	priStats, err := confirmstat.Decode(r, legacy, "Priority")
	if err != nil {
		return errors.Wrap(err, "feeestimator: decode pri_stats")
	}

	e.bestSeenHeight = bestSeenHeight
	e.feeStats = feeStats
	e.priStats = priStats
	return nil
}

func writeInt32(w io.Writer, v int32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func readInt32(r io.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}
