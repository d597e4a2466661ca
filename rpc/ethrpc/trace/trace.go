// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trace parity 风格的 trace_* 命名空间, 由收据中的内部调用构建
package trace

import (
	"context"

	"github.com/33cn/evmgateway/common/log"
	"github.com/33cn/evmgateway/common/normalize"
	"github.com/33cn/evmgateway/rpc"
	"github.com/33cn/evmgateway/rpc/ethrpc/types"
	rpctypes "github.com/33cn/evmgateway/rpc/types"
	"github.com/33cn/evmgateway/store"
	ctypes "github.com/33cn/evmgateway/types"
)

var (
	tlog = log.New("module", "trace")
)

type traceHandler struct {
	backend store.Backend
	cfg     *ctypes.Config
}

// NewTraceAPI create a trace api
func NewTraceAPI(cfg *ctypes.Config, backend store.Backend) []*rpc.Method {
	t := &traceHandler{backend: backend, cfg: cfg}
	return []*rpc.Method{
		{Name: "trace_filter", Handler: rpc.Typed(t.Filter)},
		{Name: "trace_transaction", Cacheable: true, Handler: rpc.Typed(t.Transaction)},
		{Name: "trace_replayTransaction", Cacheable: true, Handler: rpc.Typed(t.ReplayTransaction)},
		{Name: "trace_replayBlockTransactions", Handler: rpc.Typed(t.ReplayBlockTransactions)},
		{Name: "trace_block", Handler: rpc.Typed(t.Block)},
	}
}

// Filter trace_filter, 每组条件单独查询, 结果按组的顺序拼接
func (t *traceHandler) Filter(ctx context.Context, p *types.TraceFilterParams) ([]*types.Trace, error) {
	head, err := t.backend.Head(ctx)
	if err != nil {
		return nil, err
	}
	traces := []*types.Trace{}
	for _, g := range p.Groups {
		if g.Count != nil && *g.Count == 0 {
			continue
		}
		q, err := g.Query(head, t.cfg.Search.MaxTraceResults)
		if err != nil {
			return nil, rpctypes.ErrInvalidParams(err)
		}
		itxs, err := t.backend.InternalCalls(ctx, q)
		if err != nil {
			tlog.Error("Filter", "from", g.FromBlock, "to", g.ToBlock, "err", err)
			return nil, err
		}
		for _, itx := range itxs {
			traces = append(traces, types.InternalCallTrace(itx))
		}
	}
	return traces, nil
}

func (t *traceHandler) receipt(ctx context.Context, hash string) (*ctypes.Receipt, error) {
	r, err := store.ReceiptByHash(ctx, t.backend, hash)
	if err == ctypes.ErrNotFound {
		return nil, nil
	}
	return r, err
}

// Transaction trace_transaction
func (t *traceHandler) Transaction(ctx context.Context, p *types.HashParams) ([]*types.Trace, error) {
	r, err := t.receipt(ctx, p.Hash)
	if err != nil || r == nil {
		return nil, err
	}
	return types.BuildTraces(r, true), nil
}

// ReplayTransaction trace_replayTransaction, 只有 trace 有内容
func (t *traceHandler) ReplayTransaction(ctx context.Context, p *types.ReplayParams) (*types.AdHocTrace, error) {
	r, err := t.receipt(ctx, p.Hash)
	if err != nil || r == nil {
		return nil, err
	}
	return types.BuildAdHocTrace(r), nil
}

func (t *traceHandler) blockReceipts(ctx context.Context, tag types.BlockTag) ([]*ctypes.Receipt, error) {
	head, err := t.backend.Head(ctx)
	if err != nil {
		return nil, err
	}
	number, err := tag.Resolve(head)
	if err != nil {
		return nil, rpctypes.ErrInvalidParams(err)
	}
	return store.BlockReceipts(ctx, t.backend, number, t.cfg.Search.MaxBlockTxs)
}

// ReplayBlockTransactions trace_replayBlockTransactions
func (t *traceHandler) ReplayBlockTransactions(ctx context.Context, p *types.BlockParams) ([]*types.AdHocTrace, error) {
	receipts, err := t.blockReceipts(ctx, p.Block)
	if err != nil {
		return nil, err
	}
	res := make([]*types.AdHocTrace, 0, len(receipts))
	for _, r := range receipts {
		trace := types.BuildAdHocTrace(r)
		hash := normalize.Hash(r.Hash)
		trace.TransactionHash = &hash
		res = append(res, trace)
	}
	return res, nil
}

// Block trace_block
func (t *traceHandler) Block(ctx context.Context, p *types.BlockParams) ([]*types.Trace, error) {
	receipts, err := t.blockReceipts(ctx, p.Block)
	if err != nil {
		return nil, err
	}
	traces := []*types.Trace{}
	for _, r := range receipts {
		traces = append(traces, types.BuildTraces(r, true)...)
	}
	return traces, nil
}
