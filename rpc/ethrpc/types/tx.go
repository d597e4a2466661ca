// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"math/big"

	"github.com/33cn/evmgateway/common/normalize"
	ctypes "github.com/33cn/evmgateway/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	etypes "github.com/ethereum/go-ethereum/core/types"
)

// BloomOf 解析收据中的 bloom, 超长时取最后 256 字节
func BloomOf(s string) etypes.Bloom {
	b := normalize.Bytes(s)
	if len(b) > etypes.BloomByteLength {
		b = b[len(b)-etypes.BloomByteLength:]
	}
	return etypes.BytesToBloom(b)
}

// NewRPCTransaction 由收据构建交易
func NewRPCTransaction(r *ctypes.Receipt, vrs *VRS) *Transaction {
	blockHash := normalize.Hash(r.BlockHash)
	index := hexutil.Uint64(r.TxIndex)
	tx := &Transaction{
		BlockHash:        &blockHash,
		BlockNumber:      (*hexutil.Big)(new(big.Int).SetUint64(r.BlockNumber)),
		From:             normalize.Address(r.From),
		Gas:              hexutil.Uint64(r.GasLimit),
		GasPrice:         (*hexutil.Big)(normalize.Big(r.ChargedGasPrice)),
		Hash:             normalize.Hash(r.Hash),
		Input:            normalize.Bytes(r.Input),
		Nonce:            hexutil.Uint64(r.Nonce),
		To:               normalize.OptionalAddress(r.To),
		TransactionIndex: &index,
		Value:            (*hexutil.Big)(normalize.Big(r.Value)),
		Type:             etypes.LegacyTxType,
	}
	if vrs != nil {
		tx.V, tx.R, tx.S = vrs.V, vrs.R, vrs.S
	}
	return tx
}

// NewRPCLogs 收据中的日志, logIndex 为交易内序号
func NewRPCLogs(r *ctypes.Receipt) []*EvmLog {
	logs := make([]*EvmLog, 0, len(r.Logs))
	for i, l := range r.Logs {
		logs = append(logs, newRPCLog(r, l, uint64(i)))
	}
	return logs
}

func newRPCLog(r *ctypes.Receipt, l *ctypes.ReceiptLog, index uint64) *EvmLog {
	topics := make([]common.Hash, 0, len(l.Topics))
	for _, t := range l.Topics {
		topics = append(topics, normalize.Hash(t))
	}
	return &EvmLog{
		Address:     normalize.Address(l.Address),
		Topics:      topics,
		Data:        normalize.Bytes(l.Data),
		BlockNumber: hexutil.Uint64(r.BlockNumber),
		TxHash:      normalize.Hash(r.Hash),
		TxIndex:     hexutil.Uint64(r.TxIndex),
		BlockHash:   normalize.Hash(r.BlockHash),
		Index:       hexutil.Uint64(index),
	}
}

// NewRPCReceipt 由收据构建 eth receipt
func NewRPCReceipt(r *ctypes.Receipt) *Receipt {
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	return &Receipt{
		Type:              etypes.LegacyTxType,
		Status:            hexutil.Uint64(r.Status),
		CumulativeGasUsed: hexutil.Uint64(r.GasUsedBlock),
		Bloom:             BloomOf(r.LogsBloom),
		Logs:              NewRPCLogs(r),
		TxHash:            normalize.Hash(r.Hash),
		ContractAddress:   normalize.OptionalAddress(r.CreatedAddr),
		GasUsed:           hexutil.Uint64(r.GasUsed),
		EffectiveGasPrice: (*hexutil.Big)(normalize.Big(r.ChargedGasPrice)),
		BlockHash:         normalize.Hash(r.BlockHash),
		BlockNumber:       (*hexutil.Big)(new(big.Int).SetUint64(r.BlockNumber)),
		TransactionIndex:  hexutil.Uint64(r.TxIndex),
		From:              normalize.Address(r.From),
		To:                normalize.OptionalAddress(r.To),
		Output:            normalize.Bytes(r.Output),
		Errors:            errs,
	}
}
