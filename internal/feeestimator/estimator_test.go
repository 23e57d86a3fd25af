package feeestimator

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/morcos/bitcoin/internal/mempool"
)

func highFeeLowPriEntry(height int32, fee btcutil.Amount, size int64) mempool.Entry {
	return mempool.Entry{
		Hash:         chainhash.Hash{},
		Height:       height,
		Fee:          fee,
		Size:         size,
		Priority:     0,
		ClearAtEntry: true,
	}
}

// EstimatorTestSuite exercises the estimator with enough feed volume per
// block to actually cross the default sufficientTx/(1-decay) threshold of
// 500 — a single transaction per block only asymptotically approaches
// that threshold and would never cross it at DefaultDecay, so these tests
// feed a realistic block's worth of transactions each round rather than
// one.
type EstimatorTestSuite struct {
	suite.Suite
	est *Estimator
}

func (s *EstimatorTestSuite) SetupTest() {
	s.est = New(nil, 1000)
}

func (s *EstimatorTestSuite) feedBlocks(startHeight int32, n int, txsPerBlock int, fee btcutil.Amount, size int64, confirmDelay int32) {
	for i := 0; i < n; i++ {
		height := startHeight + int32(i)
		entries := make([]mempool.Entry, txsPerBlock)
		for j := range entries {
			entries[j] = highFeeLowPriEntry(height-confirmDelay, fee, size)
		}
		s.est.ProcessBlock(height, entries)
	}
}

func (s *EstimatorTestSuite) TestBaselineFeeEstimateTracksFedFeeRate() {
	// 30 txs/block, fee 10000 sat on a 1000-byte tx -> fee rate 10000/kb.
	s.feedBlocks(1000, 60, 30, 10000, 1000, 2)

	got := s.est.EstimateFee(3)
	s.Require().Greater(got, 0.0)
	s.InDelta(10000, got, 50)
}

func (s *EstimatorTestSuite) TestEstimateFeeRejectsOutOfRangeTarget() {
	s.feedBlocks(1000, 60, 30, 10000, 1000, 2)
	s.Equal(float64(0), s.est.EstimateFee(MaxBlockConfirms+5))
	s.Equal(float64(0), s.est.EstimateFee(0))
}

func (s *EstimatorTestSuite) TestInsufficientDataReturnsSentinels() {
	s.Equal(float64(0), s.est.EstimateFee(5))
	s.Equal(float64(-1), s.est.EstimatePriority(5))
}

func (s *EstimatorTestSuite) TestReorgIsRejected() {
	s.feedBlocks(1000, 1, 30, 10000, 1000, 2)
	before := s.est.DumpBuckets()
	s.est.ProcessBlock(999, []mempool.Entry{highFeeLowPriEntry(997, 20000, 1000)})
	s.est.ProcessBlock(1000, []mempool.Entry{highFeeLowPriEntry(998, 20000, 1000)})
	after := s.est.DumpBuckets()
	s.Equal(before, after)
	s.Equal(int32(1000), s.est.BestSeenHeight())
}

func (s *EstimatorTestSuite) TestProcessTransactionIgnoresNotClearAtEntry() {
	e := highFeeLowPriEntry(998, 10000, 1000)
	e.ClearAtEntry = false
	s.est.ProcessBlock(1000, []mempool.Entry{e})
	s.Equal(float64(0), s.est.EstimateFee(3))
}

func (s *EstimatorTestSuite) TestAmbiguousHighHighAndLowLowAreDropped() {
	// high fee, high priority: dropped by process_transaction's routing.
	highHigh := mempool.Entry{Height: 998, Fee: 20000, Size: 1000, Priority: 1e9, ClearAtEntry: true}
	// low fee, low priority: dropped too.
	lowLow := mempool.Entry{Height: 998, Fee: 500, Size: 1000, Priority: 1, ClearAtEntry: true}

	entries := make([]mempool.Entry, 0, 60)
	for i := 0; i < 30; i++ {
		entries = append(entries, highHigh, lowLow)
	}
	s.est.ProcessBlock(1000, entries)

	s.Equal(float64(0), s.est.EstimateFee(3))
	s.Equal(float64(-1), s.est.EstimatePriority(3))
}

func TestEstimatorSuite(t *testing.T) {
	suite.Run(t, new(EstimatorTestSuite))
}

func TestSerializeRoundTrip(t *testing.T) {
	est := New(nil, 1000)
	for i := 0; i < 60; i++ {
		height := int32(1000 + i)
		entries := make([]mempool.Entry, 30)
		for j := range entries {
			entries[j] = highFeeLowPriEntry(height-2, 10000, 1000)
		}
		est.ProcessBlock(height, entries)
	}

	var buf bytes.Buffer
	require.NoError(t, est.WriteTo(&buf))

	decoded := New(nil, 1000)
	require.NoError(t, decoded.ReadFrom(&buf))

	assert.Equal(t, est.BestSeenHeight(), decoded.BestSeenHeight())
	assert.InDelta(t, est.EstimateFee(3), decoded.EstimateFee(3), 0.01)
}

// writeLegacyStat hand-builds one confirmstat legacy-layout stat (spec
// section 6): decay, then max_confirms written before buckets, then
// max_confirms consecutive length-prefixed conf_avg rows with no outer
// length prefix, matching confirmstat.Decode's legacy branch.
func writeLegacyStat(t *testing.T, w io.Writer, decay float64, maxConfirms int, buckets, avg, txCtAvg []float64, confAvg [][]float64) {
	t.Helper()
	require.NoError(t, binary.Write(w, binary.LittleEndian, decay))
	require.NoError(t, wireWriteVarInt(w, uint64(maxConfirms)))
	writeLegacyFloat64Slice(t, w, buckets)
	writeLegacyFloat64Slice(t, w, avg)
	writeLegacyFloat64Slice(t, w, txCtAvg)
	for y := 0; y < maxConfirms; y++ {
		writeLegacyFloat64Slice(t, w, confAvg[y])
	}
}

func writeLegacyFloat64Slice(t *testing.T, w io.Writer, vals []float64) {
	t.Helper()
	require.NoError(t, wireWriteVarInt(w, uint64(len(vals))))
	for _, v := range vals {
		require.NoError(t, binary.Write(w, binary.LittleEndian, v))
	}
}

func wireWriteVarInt(w io.Writer, n uint64) error {
	return wire.WriteVarInt(w, 0, n)
}

// TestReadFromLegacyFormatRoundTrip hand-builds a full legacy (version <
// 100000) estimates file — header, then fee_stats/pri_stats in the legacy
// confirmstat layout — and confirms ReadFrom reconstructs the expected
// estimator state. Covers spec section 8 property 2's "round-trip... at
// both supported versions" for the legacy side, which WriteTo alone can
// never exercise since it only ever emits the modern layout.
func TestReadFromLegacyFormatRoundTrip(t *testing.T) {
	buckets := []float64{1000, 5000, 10000, 12115, 20000}
	const maxConfirms = 4
	const decay = 0.95

	avg := []float64{10, 20, 30, 40, 50}
	txCtAvg := []float64{1, 2, 3, 4, 5}
	confAvg := make([][]float64, maxConfirms)
	for y := range confAvg {
		confAvg[y] = make([]float64, len(buckets))
		for x := range buckets {
			confAvg[y][x] = float64(y + x)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, writeInt32(&buf, 99900)) // version_required < 100000: legacy
	require.NoError(t, writeInt32(&buf, 99900))  // version_written
	require.NoError(t, writeInt32(&buf, 1234))   // best_seen_height
	writeLegacyStat(t, &buf, decay, maxConfirms, buckets, avg, txCtAvg, confAvg)
	writeLegacyStat(t, &buf, decay, maxConfirms, buckets, avg, txCtAvg, confAvg)

	decoded := New(nil, 1000)
	require.NoError(t, decoded.ReadFrom(&buf))

	assert.Equal(t, int32(1234), decoded.BestSeenHeight())
	assert.Equal(t, buckets, decoded.feeStats.Buckets())
	assert.Equal(t, buckets, decoded.priStats.Buckets())
	assert.Equal(t, maxConfirms, decoded.feeStats.MaxConfirms())
	assert.Equal(t, maxConfirms, decoded.priStats.MaxConfirms())
}

func TestReadFromLeavesEstimatorUntouchedOnCorruption(t *testing.T) {
	est := New(nil, 1000)
	for i := 0; i < 60; i++ {
		height := int32(1000 + i)
		entries := make([]mempool.Entry, 30)
		for j := range entries {
			entries[j] = highFeeLowPriEntry(height-2, 10000, 1000)
		}
		est.ProcessBlock(height, entries)
	}
	before := est.EstimateFee(3)

	err := est.ReadFrom(bytes.NewReader([]byte{1, 2, 3}))
	require.Error(t, err)

	assert.Equal(t, before, est.EstimateFee(3))
}
