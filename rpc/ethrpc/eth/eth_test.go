// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eth

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/33cn/evmgateway/client"
	"github.com/33cn/evmgateway/client/mocks"
	"github.com/33cn/evmgateway/rpc"
	"github.com/33cn/evmgateway/rpc/ethrpc/types"
	rpctypes "github.com/33cn/evmgateway/rpc/types"
	"github.com/33cn/evmgateway/store"
	ctypes "github.com/33cn/evmgateway/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	addrA   = "0x000000000000000000000000000000000000aaaa"
	addrB   = "0x000000000000000000000000000000000000bbbb"
	topic0  = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"
	block10 = "0x1010101010101010101010101010101010101010101010101010101010101010"
	block12 = "0x1212121212121212121212121212121212121212121212121212121212121212"
	delta11 = "0x1111111111111111111111111111111111111111111111111111111111111111"
)

func txHash(i int) string {
	return "0x" + strings.Repeat("0", 62) + string("0123456789abcdef"[i/16]) + string("0123456789abcdef"[i%16])
}

func newTestHandler(t *testing.T) (*ethHandler, *mocks.Ledger) {
	b, err := store.NewMemBackend()
	require.Nil(t, err)
	t.Cleanup(func() { b.Close() })

	receipts := []*ctypes.Receipt{
		{Hash: txHash(1), From: addrA, To: addrB, Value: "0x10", Nonce: 1, GasLimit: 21000, GasUsed: 21000, GasUsedBlock: 21000,
			BlockNumber: 10, BlockHash: block10, TxIndex: 0, GlobalSequence: 100, Status: 1, Epoch: 1600000000,
			V: "0x25", R: "0x1", S: "0x2",
			Logs: []*ctypes.ReceiptLog{{Address: addrB, Topics: []string{topic0}, Data: "0x01"}}},
		{Hash: txHash(2), From: addrB, To: addrA, Nonce: 7, GasLimit: 50000, GasUsed: 30000, GasUsedBlock: 51000,
			BlockNumber: 10, BlockHash: block10, TxIndex: 1, GlobalSequence: 101, Status: 1, Epoch: 1600000000,
			Logs: []*ctypes.ReceiptLog{{Address: addrA, Topics: []string{topic0}}}},
		{Hash: txHash(3), From: addrA, BlockNumber: 12, BlockHash: block12, TxIndex: 0, GlobalSequence: 120, Status: 0,
			Errors: []string{"out of gas"}, CreatedAddr: addrB},
	}
	require.Nil(t, b.IndexReceipts(receipts))
	require.Nil(t, b.IndexDeltas([]*ctypes.Delta{{BlockNumber: 11, Timestamp: 1600000500, BlockHash: delta11}, {BlockNumber: 13}}))

	ledger := &mocks.Ledger{}
	cfg := ctypes.DefaultConfig()
	cfg.Chain.GasLimit = 0x7fffffff
	return &ethHandler{ledger: ledger, backend: b, cfg: cfg}, ledger
}

func TestChainID(t *testing.T) {
	e, ledger := newTestHandler(t)
	ctx := context.Background()
	ledger.On("GetChainID", mock.Anything).Return(uint64(40), nil)

	id, err := e.ChainID(ctx, nil)
	require.Nil(t, err)
	assert.Equal(t, hexutil.Uint64(40), id)

	e.cfg.Chain.ChainID = 41
	id, err = e.ChainID(ctx, nil)
	require.Nil(t, err)
	assert.Equal(t, hexutil.Uint64(41), id)
	ledger.AssertNumberOfCalls(t, "GetChainID", 1)
}

func TestBlockNumberAndSyncing(t *testing.T) {
	e, ledger := newTestHandler(t)
	ctx := context.Background()
	ledger.On("GetChainHeadBlockNumber", mock.Anything).Return(uint64(20), nil).Once()
	n, err := e.BlockNumber(ctx, nil)
	require.Nil(t, err)
	assert.Equal(t, hexutil.Uint64(20), n)

	ledger.On("GetChainHeadBlockNumber", mock.Anything).Return(uint64(20), nil).Once()
	status, err := e.Syncing(ctx, nil)
	require.Nil(t, err)
	assert.Equal(t, &types.SyncStatus{CurrentBlock: 13, HighestBlock: 20}, status)

	ledger.On("GetChainHeadBlockNumber", mock.Anything).Return(uint64(13), nil).Once()
	status, err = e.Syncing(ctx, nil)
	require.Nil(t, err)
	assert.Equal(t, false, status)
}

func TestAccountState(t *testing.T) {
	e, ledger := newTestHandler(t)
	ctx := context.Background()
	ledger.On("GetAccount", mock.Anything, addrA).Return(&client.Account{Balance: big.NewInt(1000), Nonce: 3, Code: []byte{0x60, 0x80}}, nil)
	ledger.On("GetAccount", mock.Anything, addrB).Return(&client.Account{}, nil)

	bal, err := e.GetBalance(ctx, &types.AccountParams{Address: addrA})
	require.Nil(t, err)
	assert.Equal(t, "0x3e8", bal.String())
	bal, err = e.GetBalance(ctx, &types.AccountParams{Address: addrB})
	require.Nil(t, err)
	assert.Equal(t, "0x0", bal.String())

	nonce, err := e.GetTransactionCount(ctx, &types.AccountParams{Address: addrA})
	require.Nil(t, err)
	assert.Equal(t, hexutil.Uint64(3), nonce)

	code, err := e.GetCode(ctx, &types.AccountParams{Address: addrA})
	require.Nil(t, err)
	assert.Equal(t, "0x6080", code.String())
	code, err = e.GetCode(ctx, &types.AccountParams{Address: addrB})
	require.Nil(t, err)
	assert.Equal(t, "0x", code.String())
}

func TestCallRevert(t *testing.T) {
	e, ledger := newTestHandler(t)
	ctx := context.Background()
	//Error("nope")
	output := "0x08c379a0" +
		"0000000000000000000000000000000000000000000000000000000000000020" +
		"0000000000000000000000000000000000000000000000000000000000000004" +
		"6e6f706500000000000000000000000000000000000000000000000000000000"
	ledger.On("Call", mock.Anything, mock.Anything).Return(nil, &client.RevertError{Message: "reverted", Data: output})
	ledger.On("EstimateGas", mock.Anything, mock.Anything).Return(uint64(0), &client.RevertError{Message: "no data"})

	_, err := e.Call(ctx, &types.CallParams{Args: ctypes.CallArgs{To: addrB}})
	terr, ok := err.(*ctypes.TransactionError)
	require.True(t, ok)
	assert.Equal(t, "execution reverted: nope", terr.Message)
	assert.Equal(t, output, terr.Data)

	_, err = e.EstimateGas(ctx, &types.CallParams{Args: ctypes.CallArgs{To: addrB}})
	terr, ok = err.(*ctypes.TransactionError)
	require.True(t, ok)
	assert.Equal(t, "no data", terr.Message)

	rerr := rpc.ToRPCError(err, 3)
	assert.Equal(t, 3, rerr.Code)
}

func TestSendRawTransaction(t *testing.T) {
	e, ledger := newTestHandler(t)
	ctx := context.Background()
	raw := []byte{0xf8, 0x6b, 0x01}
	ledger.On("SubmitRaw", mock.Anything, raw).Return(&ctypes.ExecutionResult{
		TxID:    "abc",
		Console: `xxRECEIPT_LOG_START{"status":1,"gasused":"0x5208"}RECEIPT_LOG_ENDyy`,
	}, nil).Once()

	hash, err := e.SendRawTransaction(ctx, &types.RawTxParams{Data: hexutil.Encode(raw)})
	require.Nil(t, err)
	assert.Equal(t, hexutil.Encode(crypto.Keccak256(raw)), hash)

	ledger.On("SubmitRaw", mock.Anything, raw).Return(&ctypes.ExecutionResult{
		Console: `RECEIPT_LOG_START{"status":0,"errors":["insufficient balance"]}RECEIPT_LOG_END`,
	}, nil).Once()
	_, err = e.SendRawTransaction(ctx, &types.RawTxParams{Data: hexutil.Encode(raw)})
	terr, ok := err.(*ctypes.TransactionError)
	require.True(t, ok)
	assert.Equal(t, "insufficient balance", terr.Message)
}

func TestSendTransaction(t *testing.T) {
	e, ledger := newTestHandler(t)
	ctx := context.Background()
	ledger.On("SendTransaction", mock.Anything, mock.Anything).Return(&ctypes.ExecutionResult{TxID: "ab", Console: ""}, nil).Once()
	hash, err := e.SendTransaction(ctx, &types.CallParams{Args: ctypes.CallArgs{From: addrA, To: addrB}})
	require.Nil(t, err)
	assert.Equal(t, "0x00000000000000000000000000000000000000000000000000000000000000ab", hash)

	ledger.On("SendTransaction", mock.Anything, mock.Anything).Return(&ctypes.ExecutionResult{}, nil).Once()
	_, err = e.SendTransaction(ctx, &types.CallParams{})
	assert.Equal(t, ctypes.ErrLedgerNoReceipt, err)
}

func TestGetTransaction(t *testing.T) {
	e, _ := newTestHandler(t)
	ctx := context.Background()

	r, err := e.GetTransactionReceipt(ctx, &types.HashParams{Hash: txHash(2)})
	require.Nil(t, err)
	require.NotNil(t, r)
	assert.Equal(t, hexutil.Uint64(51000), r.CumulativeGasUsed)
	assert.Equal(t, hexutil.Uint64(1), r.TransactionIndex)

	r, err = e.GetTransactionReceipt(ctx, &types.HashParams{Hash: txHash(9)})
	assert.Nil(t, err)
	assert.Nil(t, r)

	tx, err := e.GetTransactionByHash(ctx, &types.HashParams{Hash: txHash(1)})
	require.Nil(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, "0x25", tx.V)

	//没有签名时 v 为 32 字节的 0
	tx, err = e.GetTransactionByHash(ctx, &types.HashParams{Hash: txHash(2)})
	require.Nil(t, err)
	assert.Equal(t, "0x"+strings.Repeat("0", 64), tx.V)
	assert.Equal(t, "0x0", tx.R)

	tx, err = e.GetTransactionByBlockHashAndIndex(ctx, &types.BlockHashIndexParams{Hash: block10, Index: 1})
	require.Nil(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, txHash(2), tx.Hash.Hex())

	tx, err = e.GetTransactionByBlockNumberAndIndex(ctx, &types.BlockNumberIndexParams{Block: "0xc", Index: 0})
	require.Nil(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, txHash(3), tx.Hash.Hex())

	tx, err = e.GetTransactionByBlockNumberAndIndex(ctx, &types.BlockNumberIndexParams{Block: "0xc", Index: 4})
	assert.Nil(t, err)
	assert.Nil(t, tx)
}

func TestGetBlock(t *testing.T) {
	e, _ := newTestHandler(t)
	ctx := context.Background()

	b, err := e.GetBlockByNumber(ctx, &types.BlockNumberParams{Block: "0xa", Full: true})
	require.Nil(t, err)
	require.NotNil(t, b)
	assert.Equal(t, block10, b.Hash.Hex())
	assert.Equal(t, hexutil.Uint64(51000), b.GasUsed)
	require.Equal(t, 2, len(b.Transactions))
	_, ok := b.Transactions[0].(*types.Transaction)
	assert.True(t, ok)

	byHash, err := e.GetBlockByHash(ctx, &types.BlockHashParams{Hash: strings.ToUpper(block10[2:])})
	require.Nil(t, err)
	require.NotNil(t, byHash)
	assert.Equal(t, b.Hash, byHash.Hash)

	//没有收据的区块使用状态增量
	b, err = e.GetBlockByNumber(ctx, &types.BlockNumberParams{Block: "11"})
	require.Nil(t, err)
	assert.Equal(t, delta11, b.Hash.Hex())
	assert.Equal(t, hexutil.Uint64(1600000500), b.Time)
	assert.Equal(t, 0, len(b.Transactions))

	b, err = e.GetBlockByHash(ctx, &types.BlockHashParams{Hash: delta11})
	require.Nil(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "0xb", b.Number.String())

	//既没有收据也没有哈希时使用占位哈希
	b, err = e.GetBlockByNumber(ctx, &types.BlockNumberParams{Block: "0xd"})
	require.Nil(t, err)
	assert.Equal(t, types.PseudoHash(13), b.Hash)

	b, err = e.GetBlockByNumber(ctx, &types.BlockNumberParams{Block: "latest"})
	require.Nil(t, err)
	assert.Equal(t, "0xd", b.Number.String())

	b, err = e.GetBlockByNumber(ctx, &types.BlockNumberParams{Block: "0x64"})
	assert.Nil(t, err)
	assert.Nil(t, b)

	b, err = e.GetBlockByHash(ctx, &types.BlockHashParams{Hash: txHash(7)})
	assert.Nil(t, err)
	assert.Nil(t, b)

	n, err := e.GetBlockTransactionCountByNumber(ctx, &types.BlockParams{Block: "0xa"})
	require.Nil(t, err)
	assert.Equal(t, hexutil.Uint(2), *n)
	n, err = e.GetBlockTransactionCountByHash(ctx, &types.HashParams{Hash: delta11})
	require.Nil(t, err)
	assert.Equal(t, hexutil.Uint(0), *n)
	n, err = e.GetBlockTransactionCountByHash(ctx, &types.HashParams{Hash: txHash(7)})
	assert.Nil(t, err)
	assert.Nil(t, n)
}

func TestGetLogs(t *testing.T) {
	e, _ := newTestHandler(t)
	ctx := context.Background()

	logs, err := e.GetLogs(ctx, &types.LogsParams{Filter: types.FilterQuery{FromBlock: "0x0", ToBlock: "latest"}})
	require.Nil(t, err)
	require.Equal(t, 2, len(logs))
	assert.Equal(t, txHash(1), logs[0].TxHash.Hex())
	assert.Equal(t, hexutil.Uint64(0), logs[0].Index)
	assert.Equal(t, hexutil.Uint64(1), logs[1].Index)

	logs, err = e.GetLogs(ctx, &types.LogsParams{Filter: types.FilterQuery{Addresses: []string{addrA}}})
	require.Nil(t, err)
	assert.Equal(t, 0, len(logs))

	logs, err = e.GetLogs(ctx, &types.LogsParams{Filter: types.FilterQuery{FromBlock: "0x0", Addresses: []string{addrA}}})
	require.Nil(t, err)
	require.Equal(t, 1, len(logs))
	assert.Equal(t, txHash(2), logs[0].TxHash.Hex())

	e.cfg.Search.MaxLogResults = 1
	_, err = e.GetLogs(ctx, &types.LogsParams{Filter: types.FilterQuery{FromBlock: "0x0"}})
	rerr, ok := err.(*rpctypes.Error)
	require.True(t, ok)
	assert.Equal(t, rpctypes.CodeLimitExceeded, rerr.Code)
}

func TestMethodsThroughDispatcher(t *testing.T) {
	e, ledger := newTestHandler(t)
	ledger.On("GetChainID", mock.Anything).Return(uint64(40), nil)
	reg, err := rpc.NewRegistry(e.methods())
	require.Nil(t, err)
	d := rpc.NewDispatcher(reg, e.cfg.RPC, nil, nil)

	reply := d.Handle(context.Background(), rpc.CallInfo{HTTPMethod: "POST", Path: "/"},
		[]byte(`[{"jsonrpc":"2.0","id":1,"method":"eth_chainId"},{"jsonrpc":"2.0","id":2,"method":"eth_getBlockByNumber","params":["0xa"]},{"jsonrpc":"2.0","id":3,"method":"eth_getBalance","params":[]}]`))
	require.Equal(t, 3, len(reply.Batch))
	assert.Equal(t, `"0x28"`, string(reply.Batch[0].Result))

	var block map[string]interface{}
	require.Nil(t, json.Unmarshal(reply.Batch[1].Result, &block))
	assert.Equal(t, block10, block["hash"])
	assert.Equal(t, "0xa", block["number"])

	require.NotNil(t, reply.Batch[2].Error)
	assert.Equal(t, rpctypes.CodeInvalidParams, reply.Batch[2].Error.Code)
}
