package confirmstat

import (
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
)

// ErrCorrupt is returned by Decode when the encoded stat fails the
// validation rules in spec section 6: out-of-range decay/K/maxConfirms, or
// a length-prefixed array whose declared count doesn't match K.
var ErrCorrupt = errors.New("confirmstat: corrupt encoded stat")

// wireProtocolVersion is passed to wire.WriteVarInt/ReadVarInt, which take
// a protocol version to pick an encoding in the wider btcd wire format;
// the var-int convention itself doesn't vary by version, so this is a
// placeholder value rather than anything meaningful to this codec.
const wireProtocolVersion = 0

// maxReadCount bounds any length-prefixed count this codec will attempt to
// allocate for, so a corrupt huge count fails fast instead of exhausting
// memory trying to read it.
const maxReadCount = maxBuckets * maxMaxConfirms

// WriteTo encodes the stat in the modern (non-legacy) layout: decay, then
// length-prefixed buckets/avg/tx_ct_avg, then one length-prefixed sequence
// of max_confirms length-prefixed conf_avg rows. New estimators only ever
// write the modern layout; legacy is a read-only compatibility format.
func (s *Stat) WriteTo(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, s.decay); err != nil {
		return errors.Wrap(err, "confirmstat: write decay")
	}
	if err := writeFloat64Slice(w, s.buckets); err != nil {
		return errors.Wrap(err, "confirmstat: write buckets")
	}
	if err := writeFloat64Slice(w, s.avg); err != nil {
		return errors.Wrap(err, "confirmstat: write avg")
	}
	if err := writeFloat64Slice(w, s.txCtAvg); err != nil {
		return errors.Wrap(err, "confirmstat: write tx_ct_avg")
	}
	if err := wire.WriteVarInt(w, wireProtocolVersion, uint64(len(s.confAvg))); err != nil {
		return errors.Wrap(err, "confirmstat: write conf_avg row count")
	}
	for _, row := range s.confAvg {
		if err := writeFloat64Slice(w, row); err != nil {
			return errors.Wrap(err, "confirmstat: write conf_avg row")
		}
	}
	return nil
}

// Decode reads one stat in either the legacy or modern layout (the caller
// determines which from the file's version_required header field) and
// validates it against spec section 6's rules. On any violation it returns
// ErrCorrupt (wrapped with context); Decode never touches an existing
// instance, it only ever builds a fresh one that the caller swaps in after
// a successful return.
func Decode(r io.Reader, legacy bool, label string) (*Stat, error) {
	var decay float64
	if err := binary.Read(r, binary.LittleEndian, &decay); err != nil {
		return nil, errors.Wrap(err, "confirmstat: read decay")
	}
	if !(decay > 0 && decay < 1) {
		return nil, errors.Wrap(ErrCorrupt, "decay out of range")
	}

	legacyMaxConfirms := 0
	if legacy {
		n, err := wire.ReadVarInt(r, wireProtocolVersion)
		if err != nil {
			return nil, errors.Wrap(err, "confirmstat: read legacy max_confirms")
		}
		legacyMaxConfirms = int(n)
		if legacyMaxConfirms < minMaxConfirms || legacyMaxConfirms > maxMaxConfirms {
			return nil, errors.Wrap(ErrCorrupt, "legacy max_confirms out of range")
		}
	}

	buckets, err := readFloat64Slice(r)
	if err != nil {
		return nil, errors.Wrap(err, "confirmstat: read buckets")
	}
	k := len(buckets)
	if k < minBuckets || k > maxBuckets {
		return nil, errors.Wrap(ErrCorrupt, "bucket count out of range")
	}

	avg, err := readFloat64Slice(r)
	if err != nil {
		return nil, errors.Wrap(err, "confirmstat: read avg")
	}
	if len(avg) != k {
		return nil, errors.Wrap(ErrCorrupt, "avg length mismatch")
	}

	txCtAvg, err := readFloat64Slice(r)
	if err != nil {
		return nil, errors.Wrap(err, "confirmstat: read tx_ct_avg")
	}
	if len(txCtAvg) != k {
		return nil, errors.Wrap(ErrCorrupt, "tx_ct_avg length mismatch")
	}

	maxConfirms := legacyMaxConfirms
	if !legacy {
		n, err := wire.ReadVarInt(r, wireProtocolVersion)
		if err != nil {
			return nil, errors.Wrap(err, "confirmstat: read conf_avg row count")
		}
		maxConfirms = int(n)
	}
	if maxConfirms < minMaxConfirms || maxConfirms > maxMaxConfirms {
		return nil, errors.Wrap(ErrCorrupt, "max_confirms out of range")
	}

	confAvg := make([][]float64, maxConfirms)
	for y := 0; y < maxConfirms; y++ {
		row, err := readFloat64Slice(r)
		if err != nil {
			return nil, errors.Wrap(err, "confirmstat: read conf_avg row")
		}
		if len(row) != k {
			return nil, errors.Wrap(ErrCorrupt, "conf_avg row length mismatch")
		}
		confAvg[y] = row
	}

	return &Stat{
		label:        label,
		buckets:      buckets,
		decay:        decay,
		maxConfirms:  maxConfirms,
		confAvg:      confAvg,
		txCtAvg:      txCtAvg,
		avg:          avg,
		curBlockConf: make2D(maxConfirms, k),
		curBlockTxCt: make([]float64, k),
		curBlockVal:  make([]float64, k),
	}, nil
}

func writeFloat64Slice(w io.Writer, vals []float64) error {
	if err := wire.WriteVarInt(w, wireProtocolVersion, uint64(len(vals))); err != nil {
		return err
	}
	for _, v := range vals {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func readFloat64Slice(r io.Reader) ([]float64, error) {
	n, err := wire.ReadVarInt(r, wireProtocolVersion)
	if err != nil {
		return nil, err
	}
	if n > maxReadCount {
		return nil, ErrCorrupt
	}
	out := make([]float64, n)
	for i := range out {
		if err := binary.Read(r, binary.LittleEndian, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
