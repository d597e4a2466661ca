// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

// Receipt 账本执行一笔 evm 交易后索引下来的收据
//
// GasUsedBlock 是上游计算好的区块内累计 gas, 不在网关内重新推导。
type Receipt struct {
	Hash            string          `json:"hash"`
	From            string          `json:"from"`
	To              string          `json:"to,omitempty"`
	Value           string          `json:"value,omitempty"`
	Nonce           uint64          `json:"nonce"`
	GasLimit        uint64          `json:"gas_limit"`
	GasUsed         uint64          `json:"gasused"`
	GasUsedBlock    uint64          `json:"gasusedblock"`
	ChargedGasPrice string          `json:"charged_gas_price,omitempty"`
	Input           string          `json:"input_data,omitempty"`
	Output          string          `json:"output,omitempty"`
	LogsBloom       string          `json:"logsBloom,omitempty"`
	Logs            []*ReceiptLog   `json:"logs,omitempty"`
	Itxs            []*InternalCall `json:"itxs,omitempty"`
	Errors          []string        `json:"errors,omitempty"`
	Status          uint64          `json:"status"`
	BlockNumber     uint64          `json:"block"`
	BlockHash       string          `json:"block_hash"`
	ParentHash      string          `json:"parent_hash,omitempty"`
	TxIndex         uint64          `json:"trx_index"`
	Epoch           int64           `json:"epoch"`
	GlobalSequence  uint64          `json:"global_sequence"`
	CreatedAddr     string          `json:"createdaddr,omitempty"`

	// 旧版索引直接记录 v, r, s
	V string `json:"v,omitempty"`
	R string `json:"r,omitempty"`
	S string `json:"s,omitempty"`
	// 新版索引只记录序列化后的签名
	Signature string `json:"signature,omitempty"`
}

// ReceiptLog 收据中的 evm 事件
type ReceiptLog struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// InternalCall 交易调用树中的一次内部调用
//
// 单独存放在 itx 集合中时, 额外带有所属交易与区块的信息。
type InternalCall struct {
	CallType     string `json:"callType"`
	From         string `json:"from"`
	To           string `json:"to,omitempty"`
	Value        string `json:"value,omitempty"`
	Gas          uint64 `json:"gas"`
	GasUsed      uint64 `json:"gasUsed"`
	Input        string `json:"input,omitempty"`
	Output       string `json:"output,omitempty"`
	Subtraces    int    `json:"subtraces"`
	TraceAddress []int  `json:"traceAddress"`
	Type         string `json:"type,omitempty"`

	TxHash      string `json:"hash,omitempty"`
	BlockNumber uint64 `json:"block,omitempty"`
	BlockHash   string `json:"block_hash,omitempty"`
	TxIndex     uint64 `json:"trx_index,omitempty"`
	// 在所属交易 itxs 中的位置
	ItxIndex uint64 `json:"itx_index,omitempty"`
}

// Delta 账本状态增量, 记录每个区块的存在性
type Delta struct {
	BlockNumber uint64 `json:"block_num"`
	Timestamp   int64  `json:"timestamp"`
	BlockHash   string `json:"block_hash"`
}

// ActionSignature 交易签名附着在承载它的子 action 上时的记录
type ActionSignature struct {
	TxHash    string `json:"hash"`
	Signature string `json:"signature"`
}

// CallArgs eth_call / eth_estimateGas / eth_sendTransaction 的交易参数
type CallArgs struct {
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Gas      string `json:"gas,omitempty"`
	GasPrice string `json:"gasPrice,omitempty"`
	Value    string `json:"value,omitempty"`
	Nonce    string `json:"nonce,omitempty"`
	Data     string `json:"data,omitempty"`
	Input    string `json:"input,omitempty"`
}

// Payload 返回交易数据, 优先 input
func (c *CallArgs) Payload() string {
	if c.Input != "" {
		return c.Input
	}
	return c.Data
}

// ExecutionResult 账本提交交易后的执行输出
type ExecutionResult struct {
	TxID    string `json:"transaction_id,omitempty"`
	Console string `json:"console"`
}
