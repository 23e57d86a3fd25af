package feed

import (
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morcos/bitcoin/internal/feeestimator"
)

type fakeChain struct {
	height  int32
	mempool map[string]btcjson.GetRawMempoolVerboseResult
	polls   int
}

func (f *fakeChain) GetBlockChainInfo() (*btcjson.GetBlockChainInfoResult, error) {
	f.polls++
	return &btcjson.GetBlockChainInfoResult{Blocks: int32(f.height)}, nil
}

func (f *fakeChain) GetRawMempoolVerbose() (map[string]btcjson.GetRawMempoolVerboseResult, error) {
	return f.mempool, nil
}

func TestEntriesFromMempoolFiltersDependents(t *testing.T) {
	raw := map[string]btcjson.GetRawMempoolVerboseResult{
		"1111111111111111111111111111111111111111111111111111111111111111": {
			Height: 998,
			Fee:    0.0001,
			Size:   1000,
		},
		"2222222222222222222222222222222222222222222222222222222222222222": {
			Height:  999,
			Fee:     0.0002,
			Size:    500,
			Depends: []string{"1111111111111111111111111111111111111111111111111111111111111111"},
		},
	}

	entries := entriesFromMempool(raw)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].ClearAtEntry)
	assert.Equal(t, int32(998), entries[0].Height)
}

func TestFeedRunStopsOnContextDone(t *testing.T) {
	chain := &fakeChain{height: 1000, mempool: map[string]btcjson.GetRawMempoolVerboseResult{}}
	est := feeestimator.New(nil, 1000)
	f := New(chain, est, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
	assert.GreaterOrEqual(t, chain.polls, 1)
}
