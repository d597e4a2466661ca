// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	etypes "github.com/ethereum/go-ethereum/core/types"
)

//Header block header
type Header struct {
	ParentHash      common.Hash       `json:"parentHash"`
	UncleHash       common.Hash       `json:"sha3Uncles"`
	Coinbase        common.Address    `json:"miner"`
	Root            common.Hash       `json:"stateRoot"`
	TxHash          common.Hash       `json:"transactionsRoot"`
	ReceiptHash     common.Hash       `json:"receiptsRoot"`
	Bloom           etypes.Bloom      `json:"logsBloom"`
	Difficulty      *hexutil.Big      `json:"difficulty"`
	TotalDifficulty *hexutil.Big      `json:"totalDifficulty"`
	Number          *hexutil.Big      `json:"number"`
	GasLimit        hexutil.Uint64    `json:"gasLimit"`
	GasUsed         hexutil.Uint64    `json:"gasUsed"`
	Time            hexutil.Uint64    `json:"timestamp"`
	Extra           hexutil.Bytes     `json:"extraData"`
	MixDigest       common.Hash       `json:"mixHash"`
	Nonce           etypes.BlockNonce `json:"nonce"`
	Size            hexutil.Uint64    `json:"size"`
	Hash            common.Hash       `json:"hash"`
}

//Block 由收据重构的区块, Transactions 为交易哈希或完整交易
type Block struct {
	*Header
	Transactions []interface{} `json:"transactions"`
	Uncles       []common.Hash `json:"uncles"`
}

// Transaction 由收据重构的交易
type Transaction struct {
	BlockHash        *common.Hash    `json:"blockHash"`
	BlockNumber      *hexutil.Big    `json:"blockNumber"`
	From             common.Address  `json:"from"`
	Gas              hexutil.Uint64  `json:"gas"`
	GasPrice         *hexutil.Big    `json:"gasPrice"`
	Hash             common.Hash     `json:"hash"`
	Input            hexutil.Bytes   `json:"input"`
	Nonce            hexutil.Uint64  `json:"nonce"`
	To               *common.Address `json:"to"`
	TransactionIndex *hexutil.Uint64 `json:"transactionIndex"`
	Value            *hexutil.Big    `json:"value"`
	Type             hexutil.Uint64  `json:"type"`
	V                string          `json:"v"`
	R                string          `json:"r"`
	S                string          `json:"s"`
}

//Receipt tx Receipt
type Receipt struct {
	Type              hexutil.Uint64  `json:"type"`
	Status            hexutil.Uint64  `json:"status"`
	CumulativeGasUsed hexutil.Uint64  `json:"cumulativeGasUsed"`
	Bloom             etypes.Bloom    `json:"logsBloom"`
	Logs              []*EvmLog       `json:"logs"`
	TxHash            common.Hash     `json:"transactionHash"`
	ContractAddress   *common.Address `json:"contractAddress"`
	GasUsed           hexutil.Uint64  `json:"gasUsed"`
	EffectiveGasPrice *hexutil.Big    `json:"effectiveGasPrice"`
	BlockHash         common.Hash     `json:"blockHash"`
	BlockNumber       *hexutil.Big    `json:"blockNumber"`
	TransactionIndex  hexutil.Uint64  `json:"transactionIndex"`
	From              common.Address  `json:"from"`
	To                *common.Address `json:"to"`
	// 账本原始输出与错误, 便于客户端排查
	Output hexutil.Bytes `json:"output"`
	Errors []string      `json:"errors"`
}

//EvmLog evm log
type EvmLog struct {
	Address     common.Address `json:"address"`
	Topics      []common.Hash  `json:"topics"`
	Data        hexutil.Bytes  `json:"data"`
	BlockNumber hexutil.Uint64 `json:"blockNumber"`
	TxHash      common.Hash    `json:"transactionHash"`
	TxIndex     hexutil.Uint64 `json:"transactionIndex"`
	BlockHash   common.Hash    `json:"blockHash"`
	Index       hexutil.Uint64 `json:"logIndex"`
	Removed     bool           `json:"removed"`
}

// TraceAction trace action
type TraceAction struct {
	CallType string          `json:"callType"`
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to"`
	Gas      hexutil.Uint64  `json:"gas"`
	Input    hexutil.Bytes   `json:"input"`
	Value    *hexutil.Big    `json:"value"`
}

// TraceResult trace result
type TraceResult struct {
	GasUsed hexutil.Uint64 `json:"gasUsed"`
	Output  hexutil.Bytes  `json:"output"`
}

// Trace parity 风格的调用 trace, 区块与交易信息只在 filter 模式下输出
type Trace struct {
	Action              TraceAction  `json:"action"`
	BlockHash           *common.Hash `json:"blockHash,omitempty"`
	BlockNumber         *uint64      `json:"blockNumber,omitempty"`
	Result              *TraceResult `json:"result"`
	Subtraces           int          `json:"subtraces"`
	TraceAddress        []int        `json:"traceAddress"`
	TransactionHash     *common.Hash `json:"transactionHash,omitempty"`
	TransactionPosition *uint64      `json:"transactionPosition,omitempty"`
	Type                string       `json:"type"`
	Error               string       `json:"error,omitempty"`
}

// AdHocTrace trace_replayTransaction 的返回
type AdHocTrace struct {
	Output    hexutil.Bytes `json:"output"`
	StateDiff interface{}   `json:"stateDiff"`
	Trace     []*Trace      `json:"trace"`
	VMTrace   interface{}   `json:"vmTrace"`
	// 只在 trace_replayBlockTransactions 中输出
	TransactionHash *common.Hash `json:"transactionHash,omitempty"`
}

// SyncStatus eth_syncing 同步中时的返回
type SyncStatus struct {
	StartingBlock hexutil.Uint64 `json:"startingBlock"`
	CurrentBlock  hexutil.Uint64 `json:"currentBlock"`
	HighestBlock  hexutil.Uint64 `json:"highestBlock"`
}
