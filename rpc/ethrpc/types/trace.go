// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"strings"

	"github.com/33cn/evmgateway/common/normalize"
	ctypes "github.com/33cn/evmgateway/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// 内部调用的操作码
var callTypes = map[string]string{
	"f0": "create",
	"f1": "call",
	"f4": "delegatecall",
	"f5": "create2",
	"fa": "staticcall",
	"ff": "selfdestruct",
}

// CallTypeOf 操作码对应的调用类型
func CallTypeOf(code string) string {
	if t, ok := callTypes[strings.ToLower(normalize.Strip0x(code))]; ok {
		return t
	}
	return "unknown"
}

func traceTypeOf(itx *ctypes.InternalCall, callType string) string {
	if itx.Type != "" {
		return itx.Type
	}
	switch callType {
	case "create", "create2":
		return "create"
	case "selfdestruct":
		return "suicide"
	}
	return "call"
}

func link(t *Trace, blockHash string, blockNumber uint64, txHash string, txIndex uint64) {
	bh := normalize.Hash(blockHash)
	th := normalize.Hash(txHash)
	t.BlockHash = &bh
	t.BlockNumber = &blockNumber
	t.TransactionHash = &th
	t.TransactionPosition = &txIndex
}

func newInternalTrace(itx *ctypes.InternalCall) *Trace {
	callType := CallTypeOf(itx.CallType)
	addr := itx.TraceAddress
	if addr == nil {
		addr = []int{}
	}
	return &Trace{
		Action: TraceAction{
			CallType: callType,
			From:     normalize.Address(itx.From),
			To:       normalize.OptionalAddress(itx.To),
			Gas:      hexutil.Uint64(itx.Gas),
			Input:    normalize.Bytes(itx.Input),
			Value:    (*hexutil.Big)(normalize.Big(itx.Value)),
		},
		Result: &TraceResult{
			GasUsed: hexutil.Uint64(itx.GasUsed),
			Output:  normalize.Bytes(itx.Output),
		},
		Subtraces:    itx.Subtraces,
		TraceAddress: addr,
		Type:         traceTypeOf(itx, callType),
	}
}

// BuildTraces 交易的调用 trace, 第一个为顶层调用
//
// withLink 为 true 时带上区块与交易信息(trace_filter/trace_transaction/trace_block)。
func BuildTraces(r *ctypes.Receipt, withLink bool) []*Trace {
	subtraces := 0
	for _, itx := range r.Itxs {
		if len(itx.TraceAddress) == 1 {
			subtraces++
		}
	}
	top := &Trace{
		Action: TraceAction{
			CallType: "call",
			From:     normalize.Address(r.From),
			To:       normalize.OptionalAddress(r.To),
			Gas:      hexutil.Uint64(r.GasLimit),
			Input:    normalize.Bytes(r.Input),
			Value:    (*hexutil.Big)(normalize.Big(r.Value)),
		},
		Result: &TraceResult{
			GasUsed: hexutil.Uint64(r.GasUsed),
			Output:  normalize.Bytes(r.Output),
		},
		Subtraces:    subtraces,
		TraceAddress: []int{},
		Type:         "call",
	}
	if len(r.Errors) > 0 {
		top.Error = r.Errors[0]
	}
	traces := make([]*Trace, 0, len(r.Itxs)+1)
	traces = append(traces, top)
	for _, itx := range r.Itxs {
		traces = append(traces, newInternalTrace(itx))
	}
	if withLink {
		for _, t := range traces {
			link(t, r.BlockHash, r.BlockNumber, r.Hash, r.TxIndex)
		}
	}
	return traces
}

// BuildAdHocTrace trace_replayTransaction 的返回, 不支持 stateDiff 与 vmTrace
func BuildAdHocTrace(r *ctypes.Receipt) *AdHocTrace {
	return &AdHocTrace{
		Output: normalize.Bytes(r.Output),
		Trace:  BuildTraces(r, false),
	}
}

// InternalCallTrace 由内部调用集合中的文档构建 trace
func InternalCallTrace(itx *ctypes.InternalCall) *Trace {
	t := newInternalTrace(itx)
	link(t, itx.BlockHash, itx.BlockNumber, itx.TxHash, itx.TxIndex)
	return t
}
