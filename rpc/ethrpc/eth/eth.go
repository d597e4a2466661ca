// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package eth eth_* 命名空间, 账本状态类调用转发给账本, 历史数据从收据索引重构
package eth

import (
	"context"
	"math/big"
	"strconv"

	"github.com/33cn/evmgateway/client"
	"github.com/33cn/evmgateway/common/evmerr"
	"github.com/33cn/evmgateway/common/log"
	"github.com/33cn/evmgateway/common/normalize"
	"github.com/33cn/evmgateway/rpc"
	"github.com/33cn/evmgateway/rpc/ethrpc/types"
	rpctypes "github.com/33cn/evmgateway/rpc/types"
	"github.com/33cn/evmgateway/store"
	ctypes "github.com/33cn/evmgateway/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

var (
	elog = log.New("module", "eth")
)

type ethHandler struct {
	ledger  client.Ledger
	backend store.Backend
	cfg     *ctypes.Config
}

// NewEthAPI new eth api
func NewEthAPI(cfg *ctypes.Config, ledger client.Ledger, backend store.Backend) []*rpc.Method {
	e := &ethHandler{ledger: ledger, backend: backend, cfg: cfg}
	return e.methods()
}

func (e *ethHandler) methods() []*rpc.Method {
	return []*rpc.Method{
		{Name: "eth_chainId", Cacheable: true, Handler: rpc.Typed(e.ChainID)},
		{Name: "eth_blockNumber", Handler: rpc.Typed(e.BlockNumber)},
		{Name: "eth_syncing", Handler: rpc.Typed(e.Syncing)},
		{Name: "eth_accounts", Handler: rpc.Typed(e.Accounts)},
		{Name: "eth_gasPrice", Handler: rpc.Typed(e.GasPrice)},
		{Name: "eth_getBalance", Handler: rpc.Typed(e.GetBalance)},
		{Name: "eth_getTransactionCount", Handler: rpc.Typed(e.GetTransactionCount)},
		{Name: "eth_getCode", Handler: rpc.Typed(e.GetCode)},
		{Name: "eth_getStorageAt", Handler: rpc.Typed(e.GetStorageAt)},
		{Name: "eth_estimateGas", Handler: rpc.Typed(e.EstimateGas)},
		{Name: "eth_call", Handler: rpc.Typed(e.Call)},
		{Name: "eth_sendRawTransaction", Handler: rpc.Typed(e.SendRawTransaction)},
		{Name: "eth_sendTransaction", Handler: rpc.Typed(e.SendTransaction)},
		{Name: "eth_getTransactionReceipt", Cacheable: true, Handler: rpc.Typed(e.GetTransactionReceipt)},
		{Name: "eth_getTransactionByHash", Cacheable: true, Handler: rpc.Typed(e.GetTransactionByHash)},
		{Name: "eth_getTransactionByBlockHashAndIndex", Cacheable: true, Handler: rpc.Typed(e.GetTransactionByBlockHashAndIndex)},
		{Name: "eth_getTransactionByBlockNumberAndIndex", Handler: rpc.Typed(e.GetTransactionByBlockNumberAndIndex)},
		{Name: "eth_getBlockByNumber", Handler: rpc.Typed(e.GetBlockByNumber)},
		{Name: "eth_getBlockByHash", Cacheable: true, Handler: rpc.Typed(e.GetBlockByHash)},
		{Name: "eth_getBlockTransactionCountByNumber", Handler: rpc.Typed(e.GetBlockTransactionCountByNumber)},
		{Name: "eth_getBlockTransactionCountByHash", Cacheable: true, Handler: rpc.Typed(e.GetBlockTransactionCountByHash)},
		{Name: "eth_getLogs", Handler: rpc.Typed(e.GetLogs)},
	}
}

// revertError 账本模拟执行的 revert 转换为交易错误, 输出按 Error(string)/Panic(uint256) 解码
func revertError(err error) error {
	var rerr *client.RevertError
	if !errors.As(err, &rerr) {
		return err
	}
	if normalize.Strip0x(rerr.Data) != "" {
		return evmerr.FromOutput(rerr.Data)
	}
	return ctypes.NewTransactionError(rerr.Message, "")
}

func (e *ethHandler) lookup(ctx context.Context) types.SignatureLookup {
	return func(hash string) (string, error) {
		return e.backend.ActionSignature(ctx, hash)
	}
}

func (e *ethHandler) indexHead(ctx context.Context) (uint64, error) {
	head, err := e.backend.Head(ctx)
	if err != nil {
		elog.Error("indexHead", "err", err)
		return 0, err
	}
	return head, nil
}

// ChainID eth_chainId, 配置了 chainID 时不再询问账本
func (e *ethHandler) ChainID(ctx context.Context, _ *rpctypes.NoParams) (hexutil.Uint64, error) {
	id, err := ChainID(ctx, e.cfg, e.ledger)
	return hexutil.Uint64(id), err
}

// ChainID 配置优先, 否则询问账本
func ChainID(ctx context.Context, cfg *ctypes.Config, ledger client.Ledger) (uint64, error) {
	if cfg.Chain.ChainID != 0 {
		return cfg.Chain.ChainID, nil
	}
	return ledger.GetChainID(ctx)
}

// BlockNumber eth_blockNumber 账本的最新区块
func (e *ethHandler) BlockNumber(ctx context.Context, _ *rpctypes.NoParams) (hexutil.Uint64, error) {
	head, err := e.ledger.GetChainHeadBlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	return hexutil.Uint64(head), nil
}

// Syncing eth_syncing 索引落后于账本时返回同步进度, 否则为 false
func (e *ethHandler) Syncing(ctx context.Context, _ *rpctypes.NoParams) (interface{}, error) {
	head, err := e.ledger.GetChainHeadBlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	indexed, err := e.indexHead(ctx)
	if err != nil {
		return nil, err
	}
	if indexed >= head {
		return false, nil
	}
	return &types.SyncStatus{
		CurrentBlock: hexutil.Uint64(indexed),
		HighestBlock: hexutil.Uint64(head),
	}, nil
}

// Accounts eth_accounts 网关不管理私钥
func (e *ethHandler) Accounts(ctx context.Context, _ *rpctypes.NoParams) ([]string, error) {
	return []string{}, nil
}

// GasPrice eth_gasPrice
func (e *ethHandler) GasPrice(ctx context.Context, _ *rpctypes.NoParams) (*hexutil.Big, error) {
	price, err := e.ledger.GetGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	return (*hexutil.Big)(price), nil
}

// GetBalance eth_getBalance, 账本只有当前状态, block 参数只做校验
func (e *ethHandler) GetBalance(ctx context.Context, p *types.AccountParams) (*hexutil.Big, error) {
	acc, err := e.ledger.GetAccount(ctx, p.Address)
	if err != nil {
		return nil, err
	}
	if acc.Balance == nil {
		return (*hexutil.Big)(new(big.Int)), nil
	}
	return (*hexutil.Big)(acc.Balance), nil
}

// GetTransactionCount eth_getTransactionCount
func (e *ethHandler) GetTransactionCount(ctx context.Context, p *types.AccountParams) (hexutil.Uint64, error) {
	acc, err := e.ledger.GetAccount(ctx, p.Address)
	if err != nil {
		return 0, err
	}
	return hexutil.Uint64(acc.Nonce), nil
}

// GetCode eth_getCode
func (e *ethHandler) GetCode(ctx context.Context, p *types.AccountParams) (hexutil.Bytes, error) {
	acc, err := e.ledger.GetAccount(ctx, p.Address)
	if err != nil {
		return nil, err
	}
	if acc.Code == nil {
		return hexutil.Bytes{}, nil
	}
	return acc.Code, nil
}

// GetStorageAt eth_getStorageAt
func (e *ethHandler) GetStorageAt(ctx context.Context, p *types.StorageParams) (string, error) {
	return e.ledger.GetStorageAt(ctx, p.Address, p.Slot)
}

// EstimateGas eth_estimateGas
func (e *ethHandler) EstimateGas(ctx context.Context, p *types.CallParams) (hexutil.Uint64, error) {
	gas, err := e.ledger.EstimateGas(ctx, &p.Args)
	if err != nil {
		elog.Debug("EstimateGas", "from", p.Args.From, "to", p.Args.To, "err", err)
		return 0, revertError(err)
	}
	return hexutil.Uint64(gas), nil
}

// Call eth_call
func (e *ethHandler) Call(ctx context.Context, p *types.CallParams) (hexutil.Bytes, error) {
	out, err := e.ledger.Call(ctx, &p.Args)
	if err != nil {
		elog.Debug("Call", "from", p.Args.From, "to", p.Args.To, "err", err)
		return nil, revertError(err)
	}
	if out == nil {
		return hexutil.Bytes{}, nil
	}
	return out, nil
}

// SendRawTransaction eth_sendRawTransaction 返回签名交易的 keccak256
func (e *ethHandler) SendRawTransaction(ctx context.Context, p *types.RawTxParams) (string, error) {
	raw, err := hexutil.Decode(p.Data)
	if err != nil {
		return "", rpctypes.ErrInvalidParams(err)
	}
	res, err := e.ledger.SubmitRaw(ctx, raw)
	if err != nil {
		return "", revertError(err)
	}
	hash, err := evmerr.ParseConsoleReceipt(res.Console, raw)
	if err != nil {
		elog.Error("SendRawTransaction", "txid", res.TxID, "err", err)
		return "", err
	}
	elog.Info("SendRawTransaction", "hash", hash, "txid", res.TxID)
	return hash, nil
}

// SendTransaction eth_sendTransaction 由账本签名, 交易哈希取账本返回的交易 id
func (e *ethHandler) SendTransaction(ctx context.Context, p *types.CallParams) (string, error) {
	res, err := e.ledger.SendTransaction(ctx, &p.Args)
	if err != nil {
		return "", revertError(err)
	}
	receipt, err := evmerr.ExtractConsoleReceipt(res.Console)
	switch {
	case err == nil && receipt.Status == 0:
		if normalize.Strip0x(receipt.Output) != "" {
			return "", evmerr.FromOutput(receipt.Output)
		}
		if len(receipt.Errors) > 0 {
			return "", ctypes.NewTransactionError(receipt.Errors[0], "")
		}
		return "", ctypes.NewTransactionError("execution reverted", "")
	case err != nil && err != evmerr.ErrNoReceipt:
		return "", err
	}
	if normalize.Strip0x(res.TxID) == "" {
		return "", ctypes.ErrLedgerNoReceipt
	}
	return normalize.Hash(res.TxID).Hex(), nil
}

// GetTransactionReceipt eth_getTransactionReceipt, 未索引时返回 null
func (e *ethHandler) GetTransactionReceipt(ctx context.Context, p *types.HashParams) (*types.Receipt, error) {
	r, err := store.ReceiptByHash(ctx, e.backend, p.Hash)
	if err == ctypes.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return types.NewRPCReceipt(r), nil
}

func (e *ethHandler) transaction(ctx context.Context, r *ctypes.Receipt) (*types.Transaction, error) {
	vrs, err := types.GetVRS(r, e.lookup(ctx))
	if err != nil {
		return nil, err
	}
	return types.NewRPCTransaction(r, vrs), nil
}

// GetTransactionByHash eth_getTransactionByHash
func (e *ethHandler) GetTransactionByHash(ctx context.Context, p *types.HashParams) (*types.Transaction, error) {
	r, err := store.ReceiptByHash(ctx, e.backend, p.Hash)
	if err == ctypes.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e.transaction(ctx, r)
}

// GetTransactionByBlockHashAndIndex eth_getTransactionByBlockHashAndIndex
func (e *ethHandler) GetTransactionByBlockHashAndIndex(ctx context.Context, p *types.BlockHashIndexParams) (*types.Transaction, error) {
	r, err := store.ReceiptAt(ctx, e.backend, store.Terms(store.FieldBlockHash, p.Hash), uint64(p.Index))
	if err == ctypes.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e.transaction(ctx, r)
}

// GetTransactionByBlockNumberAndIndex eth_getTransactionByBlockNumberAndIndex
func (e *ethHandler) GetTransactionByBlockNumberAndIndex(ctx context.Context, p *types.BlockNumberIndexParams) (*types.Transaction, error) {
	head, err := e.indexHead(ctx)
	if err != nil {
		return nil, err
	}
	number, err := p.Block.Resolve(head)
	if err != nil {
		return nil, rpctypes.ErrInvalidParams(err)
	}
	r, err := store.ReceiptAt(ctx, e.backend, store.Terms(store.FieldBlock, strconv.FormatUint(number, 10)), uint64(p.Index))
	if err == ctypes.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e.transaction(ctx, r)
}

// blockByNumber 没有收据时用状态增量或占位哈希构造空区块, 超过已索引高度时返回 nil
func (e *ethHandler) blockByNumber(ctx context.Context, tag types.BlockTag, full bool) (*types.Block, error) {
	head, err := e.indexHead(ctx)
	if err != nil {
		return nil, err
	}
	number, err := tag.Resolve(head)
	if err != nil {
		return nil, rpctypes.ErrInvalidParams(err)
	}
	if number > head {
		return nil, nil
	}
	receipts, err := store.BlockReceipts(ctx, e.backend, number, e.cfg.Search.MaxBlockTxs)
	if err != nil {
		return nil, err
	}
	if len(receipts) > 0 {
		return types.ReconstructBlock(receipts, full, e.cfg.Chain.GasLimit, e.lookup(ctx))
	}
	delta, err := store.DeltaByNumber(ctx, e.backend, number)
	if err != nil {
		return nil, err
	}
	return types.EmptyBlock(number, delta, e.cfg.Chain.GasLimit), nil
}

func (e *ethHandler) blockByHash(ctx context.Context, hash string, full bool) (*types.Block, error) {
	receipts, err := store.BlockReceiptsByHash(ctx, e.backend, hash, e.cfg.Search.MaxBlockTxs)
	if err != nil {
		return nil, err
	}
	if len(receipts) > 0 {
		return types.ReconstructBlock(receipts, full, e.cfg.Chain.GasLimit, e.lookup(ctx))
	}
	delta, err := store.DeltaByHash(ctx, e.backend, hash)
	if err != nil || delta == nil {
		return nil, err
	}
	return types.EmptyBlock(delta.BlockNumber, delta, e.cfg.Chain.GasLimit), nil
}

// GetBlockByNumber eth_getBlockByNumber
func (e *ethHandler) GetBlockByNumber(ctx context.Context, p *types.BlockNumberParams) (*types.Block, error) {
	return e.blockByNumber(ctx, p.Block, p.Full)
}

// GetBlockByHash eth_getBlockByHash, 未知哈希返回 null
func (e *ethHandler) GetBlockByHash(ctx context.Context, p *types.BlockHashParams) (*types.Block, error) {
	return e.blockByHash(ctx, p.Hash, p.Full)
}

// GetBlockTransactionCountByNumber eth_getBlockTransactionCountByNumber
func (e *ethHandler) GetBlockTransactionCountByNumber(ctx context.Context, p *types.BlockParams) (*hexutil.Uint, error) {
	block, err := e.blockByNumber(ctx, p.Block, false)
	if err != nil || block == nil {
		return nil, err
	}
	n := hexutil.Uint(len(block.Transactions))
	return &n, nil
}

// GetBlockTransactionCountByHash eth_getBlockTransactionCountByHash
func (e *ethHandler) GetBlockTransactionCountByHash(ctx context.Context, p *types.HashParams) (*hexutil.Uint, error) {
	receipts, err := store.BlockReceiptsByHash(ctx, e.backend, p.Hash, e.cfg.Search.MaxBlockTxs)
	if err != nil {
		return nil, err
	}
	if len(receipts) == 0 {
		delta, err := store.DeltaByHash(ctx, e.backend, p.Hash)
		if err != nil || delta == nil {
			return nil, err
		}
	}
	n := hexutil.Uint(len(receipts))
	return &n, nil
}

// GetLogs eth_getLogs, 区块标签以已索引的最高区块解析
func (e *ethHandler) GetLogs(ctx context.Context, p *types.LogsParams) ([]*types.EvmLog, error) {
	head, err := e.indexHead(ctx)
	if err != nil {
		return nil, err
	}
	filter, err := types.NewLogFilter(&p.Filter, head)
	if err != nil {
		return nil, rpctypes.ErrInvalidParams(err)
	}
	limit := e.cfg.Search.MaxLogResults
	size := limit
	if limit > 0 {
		size = limit + 1
	}
	receipts, err := e.backend.Receipts(ctx, filter.Query(size))
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(receipts) > limit {
		return nil, rpctypes.ErrLimitExceeded(limit)
	}
	logs := filter.Apply(receipts)
	if limit > 0 && len(logs) > limit {
		return nil, rpctypes.ErrLimitExceeded(limit)
	}
	return logs, nil
}
