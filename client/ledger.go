// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package client 底层账本节点的访问接口
package client

import (
	"context"
	"math/big"

	"github.com/33cn/evmgateway/types"
)

// Account 账户状态, 余额已换算为 wei
type Account struct {
	Balance *big.Int
	Nonce   uint64
	Code    []byte
}

// Ledger 账本节点的只读查询与交易提交
type Ledger interface {
	GetAccount(ctx context.Context, address string) (*Account, error)
	GetStorageAt(ctx context.Context, address, slot string) (string, error)
	GetGasPrice(ctx context.Context) (*big.Int, error)
	// EstimateGas 和 Call 执行失败时返回 *RevertError
	EstimateGas(ctx context.Context, args *types.CallArgs) (uint64, error)
	Call(ctx context.Context, args *types.CallArgs) ([]byte, error)
	SubmitRaw(ctx context.Context, rawTx []byte) (*types.ExecutionResult, error)
	SendTransaction(ctx context.Context, args *types.CallArgs) (*types.ExecutionResult, error)
	GetChainHeadBlockNumber(ctx context.Context) (uint64, error)
	GetChainID(ctx context.Context) (uint64, error)
	GetChainName(ctx context.Context) (string, error)
}

// RevertError 账本模拟执行时 evm revert, Data 为原始输出
type RevertError struct {
	Message string
	Data    string
}

func (e *RevertError) Error() string {
	return e.Message
}
