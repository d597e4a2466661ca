// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/33cn/evmgateway/common/evmerr"
	"github.com/33cn/evmgateway/common/utils"
	"github.com/33cn/evmgateway/metrics"
	rpctypes "github.com/33cn/evmgateway/rpc/types"
	"github.com/33cn/evmgateway/types"
	"github.com/go-stack/stack"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// CallInfo 一次 http 请求的上下文, 用于缓存键与日志
type CallInfo struct {
	HTTPMethod string
	Path       string
	Identity   string
	RequestID  string
}

// Reply 单个响应, 批量响应, 或者空批量时不响应
type Reply struct {
	Single *rpctypes.Response
	Batch  []*rpctypes.Response
}

// Empty 是否没有响应内容
func (r *Reply) Empty() bool {
	return r == nil || (r.Single == nil && r.Batch == nil)
}

// MarshalJSON 单个响应输出对象, 批量输出数组
func (r *Reply) MarshalJSON() ([]byte, error) {
	if r.Single != nil {
		return json.Marshal(r.Single)
	}
	return json.Marshal(r.Batch)
}

// Dispatcher 解析 jsonrpc 请求并分发到注册的方法
type Dispatcher struct {
	registry *Registry
	cfg      types.RPC
	cache    *utils.ResultCache
	metrics  *metrics.RPCMetrics
}

// NewDispatcher cache 与 m 可以为空
func NewDispatcher(registry *Registry, cfg types.RPC, cache *utils.ResultCache, m *metrics.RPCMetrics) *Dispatcher {
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 1
	}
	if cfg.TransactionErrorCode == 0 {
		cfg.TransactionErrorCode = rpctypes.CodeTransactionError
	}
	return &Dispatcher{registry: registry, cfg: cfg, cache: cache, metrics: m}
}

// Handle 处理一个 http 请求体
func (d *Dispatcher) Handle(ctx context.Context, info CallInfo, body []byte) *Reply {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || !json.Valid(body) {
		return &Reply{Single: rpctypes.NewErrorResponse(nil, rpctypes.ErrParse("invalid json"))}
	}
	if body[0] != '[' {
		return &Reply{Single: d.handleOne(ctx, info, body)}
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(body, &elems); err != nil {
		return &Reply{Single: rpctypes.NewErrorResponse(nil, rpctypes.ErrParse(err.Error()))}
	}
	if len(elems) == 0 {
		return &Reply{}
	}
	if d.cfg.MaxBatchSize > 0 && len(elems) > d.cfg.MaxBatchSize {
		return &Reply{Single: rpctypes.NewErrorResponse(nil,
			rpctypes.ErrInvalidRequest(fmt.Sprintf("batch size %d exceeds %d", len(elems), d.cfg.MaxBatchSize)))}
	}
	d.metrics.ObserveBatch(len(elems))

	resps := make([]*rpctypes.Response, len(elems))
	var g errgroup.Group
	g.SetLimit(d.cfg.BatchConcurrency)
	for i, elem := range elems {
		i, elem := i, elem
		g.Go(func() error {
			resps[i] = d.handleOne(ctx, info, elem)
			return nil
		})
	}
	_ = g.Wait()
	return &Reply{Batch: resps}
}

func (d *Dispatcher) handleOne(ctx context.Context, info CallInfo, raw json.RawMessage) *rpctypes.Response {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return rpctypes.NewErrorResponse(nil, rpctypes.ErrInvalidRequest("not an object"))
	}
	var req rpctypes.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return rpctypes.NewErrorResponse(nil, rpctypes.ErrInvalidRequest(err.Error()))
	}
	if rerr := req.CheckVersion(); rerr != nil {
		return rpctypes.NewErrorResponse(req.ID, rerr)
	}
	if req.Method == "" {
		return rpctypes.NewErrorResponse(req.ID, rpctypes.ErrInvalidRequest("missing method"))
	}

	start := time.Now()
	result, rerr := d.call(ctx, info, &req)
	code := 0
	if rerr != nil {
		code = rerr.Code
	}
	d.metrics.ObserveCall(req.Method, time.Since(start), code)

	resp := &rpctypes.Response{JSONRPC: rpctypes.Version, ID: req.ID, Result: result, Error: rerr}
	if rerr != nil {
		log.Debug("jsonrpc", "id", info.RequestID, "caller", info.Identity, "method", req.Method,
			"params", truncate(req.Params, d.cfg.LogBodyLimit), "code", rerr.Code, "err", rerr.Message, "cost", time.Since(start))
	} else {
		log.Debug("jsonrpc", "id", info.RequestID, "caller", info.Identity, "method", req.Method,
			"params", truncate(req.Params, d.cfg.LogBodyLimit), "result", truncate(result, d.cfg.LogBodyLimit), "cost", time.Since(start))
	}
	return resp
}

func (d *Dispatcher) call(ctx context.Context, info CallInfo, req *rpctypes.Request) (json.RawMessage, *rpctypes.Error) {
	method, ok := d.registry.Lookup(req.Method)
	if !ok {
		return nil, rpctypes.ErrMethodNotFound(req.Method)
	}
	params, err := req.PositionalParams()
	if err != nil {
		return nil, rpctypes.ErrInvalidParams(err)
	}

	var sig uint64
	cacheable := method.Cacheable && d.cache != nil
	if cacheable {
		sig = utils.Signature(info.HTTPMethod, info.Path, req.Method, compact(req.Params))
		if cached, ok := d.cache.Get(sig); ok {
			d.metrics.ObserveCache(true)
			return cached, nil
		}
		d.metrics.ObserveCache(false)
	}

	result, err := d.invoke(ctx, method, params)
	if err != nil {
		return nil, d.toRPCError(err)
	}
	data, err := json.Marshal(result)
	if err != nil {
		log.Error("jsonrpc", "method", req.Method, "marshal result err", err)
		return nil, rpctypes.ErrInternal(err.Error())
	}
	if cacheable {
		d.cache.Put(sig, data)
	}
	return data, nil
}

func (d *Dispatcher) invoke(ctx context.Context, method *Method, params []json.RawMessage) (result interface{}, err error) {
	if d.cfg.RequestTimeout.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.RequestTimeout.Duration)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("jsonrpc panic", "method", method.Name, "err", r, "stack", fmt.Sprintf("%+v", stack.Trace().TrimRuntime()))
			err = rpctypes.ErrInternal(fmt.Sprintf("method handler crashed: %v", r))
		}
	}()
	result, err = method.Handler(ctx, params)
	if err == nil && ctx.Err() == context.DeadlineExceeded {
		err = ctx.Err()
	}
	return result, err
}

// toRPCError 把处理函数返回的错误转换为 jsonrpc error
func (d *Dispatcher) toRPCError(err error) *rpctypes.Error {
	return ToRPCError(err, d.cfg.TransactionErrorCode)
}

// ToRPCError 错误分类: jsonrpc 错误原样返回, evm 执行失败使用 txCode, 其余为 InternalError
func ToRPCError(err error, txCode int) *rpctypes.Error {
	var rerr *rpctypes.Error
	if errors.As(err, &rerr) {
		return rerr
	}
	var terr *types.TransactionError
	if errors.As(err, &terr) {
		e := rpctypes.NewError(txCode, terr.Message)
		if terr.Data != "" {
			e.Data = terr.Data
		}
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return rpctypes.ErrInternal("request timed out")
	}
	msg := err.Error()
	if reason, ok := evmerr.StripAssertion(msg); ok {
		return rpctypes.NewError(txCode, reason)
	}
	return rpctypes.ErrInternal(msg)
}

func compact(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func truncate(raw []byte, limit int) string {
	if limit <= 0 || len(raw) <= limit {
		return string(raw)
	}
	return string(raw[:limit]) + "..."
}
