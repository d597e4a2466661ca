// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store 收据索引的查询接口
//
// 索引中有四个集合: 收据(receipts), 内部调用(itx), 账本状态增量(deltas) 以及
// 子 action 上的交易签名(signatures)。网关只读, 数据由 Loader 或外部索引程序写入。
package store

import (
	"context"

	"github.com/33cn/evmgateway/types"
)

// 可查询的字段
const (
	FieldHash       = "hash"
	FieldBlock      = "block"
	FieldBlockHash  = "block_hash"
	FieldFrom       = "from"
	FieldTo         = "to"
	FieldTxIndex    = "trx_index"
	FieldGlobalSeq  = "global_sequence"
	FieldLogAddress = "log_address"
	FieldLogTopic   = "log_topics"
	FieldItxFrom    = "itx_from"
	FieldItxTo      = "itx_to"
	FieldBlockNum   = "block_num"
	FieldItxIndex   = "itx_index"
)

// Cond 单个过滤条件: Terms 非空时为任一匹配, 否则为闭区间 [Min, Max]
type Cond struct {
	Field string
	Terms []string
	Min   *uint64
	Max   *uint64
}

// Terms 任一匹配
func Terms(field string, values ...string) Cond {
	return Cond{Field: field, Terms: values}
}

// Range 闭区间
func Range(field string, from, to uint64) Cond {
	return Cond{Field: field, Min: &from, Max: &to}
}

// Query 所有条件同时满足; Sort 为字段名, 以 '-' 开头表示降序
type Query struct {
	Must []Cond
	Sort []string
	Size int
}

// Backend 收据索引的只读查询
type Backend interface {
	Receipts(ctx context.Context, q *Query) ([]*types.Receipt, error)
	InternalCalls(ctx context.Context, q *Query) ([]*types.InternalCall, error)
	Deltas(ctx context.Context, q *Query) ([]*types.Delta, error)
	// ActionSignature 未找到时返回 types.ErrNotFound
	ActionSignature(ctx context.Context, txHash string) (string, error)
	// Head 已索引的最高区块
	Head(ctx context.Context) (uint64, error)
}

// Indexer 写入索引
type Indexer interface {
	IndexReceipts(receipts []*types.Receipt) error
	IndexDeltas(deltas []*types.Delta) error
	IndexSignatures(sigs []*types.ActionSignature) error
}
