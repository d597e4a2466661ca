// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trace

import (
	"context"
	"testing"

	"github.com/33cn/evmgateway/rpc/ethrpc/types"
	rpctypes "github.com/33cn/evmgateway/rpc/types"
	"github.com/33cn/evmgateway/store"
	ctypes "github.com/33cn/evmgateway/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	addrA = "0x000000000000000000000000000000000000aaaa"
	addrB = "0x000000000000000000000000000000000000bbbb"
	addrC = "0x000000000000000000000000000000000000cccc"
	hash1 = "0x0000000000000000000000000000000000000000000000000000000000000001"
	hash2 = "0x0000000000000000000000000000000000000000000000000000000000000002"
	hash3 = "0x0000000000000000000000000000000000000000000000000000000000000003"
)

func newTestHandler(t *testing.T) *traceHandler {
	b, err := store.NewMemBackend()
	require.Nil(t, err)
	t.Cleanup(func() { b.Close() })

	receipts := []*ctypes.Receipt{
		{Hash: hash1, From: addrA, To: addrB, BlockNumber: 5, BlockHash: hash3, TxIndex: 1, GasLimit: 90000, GasUsed: 50000, Output: "0x01",
			Itxs: []*ctypes.InternalCall{
				{CallType: "f1", From: addrB, To: addrC, Gas: 1000, TraceAddress: []int{0}},
				{CallType: "f0", From: addrC, TraceAddress: []int{0, 0}},
			}},
		{Hash: hash2, From: addrC, To: addrA, BlockNumber: 5, BlockHash: hash3, TxIndex: 0, Errors: []string{"revert"},
			Itxs: []*ctypes.InternalCall{{CallType: "fa", From: addrA, To: addrB, TraceAddress: []int{0}}}},
	}
	require.Nil(t, b.IndexReceipts(receipts))
	require.Nil(t, b.IndexDeltas([]*ctypes.Delta{{BlockNumber: 8}}))
	return &traceHandler{backend: b, cfg: ctypes.DefaultConfig()}
}

func u64(v uint64) *uint64 { return &v }

func TestTraceFilter(t *testing.T) {
	th := newTestHandler(t)
	ctx := context.Background()

	traces, err := th.Filter(ctx, &types.TraceFilterParams{Groups: []*types.TraceFilterGroup{{FromBlock: "0x0"}}})
	require.Nil(t, err)
	require.Equal(t, 3, len(traces))
	//按交易位置升序
	assert.Equal(t, uint64(0), *traces[0].TransactionPosition)
	assert.Equal(t, "staticcall", traces[0].Action.CallType)
	assert.Equal(t, hash3, traces[0].BlockHash.Hex())

	traces, err = th.Filter(ctx, &types.TraceFilterParams{Groups: []*types.TraceFilterGroup{
		{FromBlock: "0x0", FromAddress: []string{addrC}},
		{FromBlock: "0x0", ToAddress: []string{addrB}, Count: u64(1)},
		{FromBlock: "0x0", Count: u64(0)},
	}})
	require.Nil(t, err)
	require.Equal(t, 2, len(traces))
	assert.Equal(t, "create", traces[0].Type)
	assert.Equal(t, common.HexToAddress(addrB), *traces[1].Action.To)

	_, err = th.Filter(ctx, &types.TraceFilterParams{Groups: []*types.TraceFilterGroup{{FromBlock: "nope"}}})
	rerr, ok := err.(*rpctypes.Error)
	require.True(t, ok)
	assert.Equal(t, rpctypes.CodeInvalidParams, rerr.Code)

	//未给出区块时为最新区块
	traces, err = th.Filter(ctx, &types.TraceFilterParams{Groups: []*types.TraceFilterGroup{{}}})
	require.Nil(t, err)
	assert.Equal(t, 0, len(traces))
}

func TestTraceFilterOrder(t *testing.T) {
	b, err := store.NewMemBackend()
	require.Nil(t, err)
	defer b.Close()

	var itxs []*ctypes.InternalCall
	for i := 0; i < 12; i++ {
		itxs = append(itxs, &ctypes.InternalCall{CallType: "f1", From: addrB, To: addrC, Gas: uint64(i), TraceAddress: []int{i}})
	}
	//先写入高度更高的区块
	require.Nil(t, b.IndexReceipts([]*ctypes.Receipt{
		{Hash: hash1, From: addrA, To: addrB, BlockNumber: 9, BlockHash: hash3, TxIndex: 0, Itxs: itxs},
		{Hash: hash2, From: addrA, To: addrB, BlockNumber: 3, BlockHash: hash2, TxIndex: 4,
			Itxs: []*ctypes.InternalCall{{CallType: "f0", From: addrA, TraceAddress: []int{0}}}},
	}))
	th := &traceHandler{backend: b, cfg: ctypes.DefaultConfig()}

	traces, err := th.Filter(context.Background(), &types.TraceFilterParams{Groups: []*types.TraceFilterGroup{{FromBlock: "0x0", ToBlock: "0x10"}}})
	require.Nil(t, err)
	require.Equal(t, 13, len(traces))
	assert.Equal(t, uint64(3), *traces[0].BlockNumber)
	for i, tr := range traces[1:] {
		assert.Equal(t, uint64(9), *tr.BlockNumber)
		assert.Equal(t, []int{i}, tr.TraceAddress)
		assert.Equal(t, uint64(i), uint64(tr.Action.Gas))
	}
}

func TestTraceTransaction(t *testing.T) {
	th := newTestHandler(t)
	ctx := context.Background()

	traces, err := th.Transaction(ctx, &types.HashParams{Hash: hash1})
	require.Nil(t, err)
	require.Equal(t, 3, len(traces))
	assert.Equal(t, 1, traces[0].Subtraces)
	assert.Equal(t, []int{}, traces[0].TraceAddress)
	assert.Equal(t, hash1, traces[2].TransactionHash.Hex())

	traces, err = th.Transaction(ctx, &types.HashParams{Hash: "0x09"})
	assert.Nil(t, err)
	assert.Nil(t, traces)

	replay, err := th.ReplayTransaction(ctx, &types.ReplayParams{Hash: hash2, TraceTypes: []string{"trace"}})
	require.Nil(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, "revert", replay.Trace[0].Error)
	assert.Nil(t, replay.Trace[0].BlockHash)
	assert.Nil(t, replay.TransactionHash)
}

func TestTraceBlock(t *testing.T) {
	th := newTestHandler(t)
	ctx := context.Background()

	replays, err := th.ReplayBlockTransactions(ctx, &types.BlockParams{Block: "0x5"})
	require.Nil(t, err)
	require.Equal(t, 2, len(replays))
	assert.Equal(t, hash2, replays[0].TransactionHash.Hex())
	assert.Equal(t, hash1, replays[1].TransactionHash.Hex())

	traces, err := th.Block(ctx, &types.BlockParams{Block: "5"})
	require.Nil(t, err)
	assert.Equal(t, 5, len(traces))

	traces, err = th.Block(ctx, &types.BlockParams{Block: "latest"})
	require.Nil(t, err)
	assert.Equal(t, 0, len(traces))
}
