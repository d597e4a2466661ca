// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"strconv"

	"github.com/33cn/evmgateway/types"
)

// ReceiptByHash 按交易哈希查询收据, 不存在时返回 types.ErrNotFound
func ReceiptByHash(ctx context.Context, b Backend, hash string) (*types.Receipt, error) {
	receipts, err := b.Receipts(ctx, &Query{Must: []Cond{Terms(FieldHash, hash)}, Size: 1})
	if err != nil {
		return nil, err
	}
	if len(receipts) == 0 {
		return nil, types.ErrNotFound
	}
	return receipts[0], nil
}

// BlockReceipts 查询区块内的收据, 按交易位置升序
func BlockReceipts(ctx context.Context, b Backend, number uint64, size int) ([]*types.Receipt, error) {
	return b.Receipts(ctx, &Query{
		Must: []Cond{Terms(FieldBlock, strconv.FormatUint(number, 10))},
		Sort: []string{FieldTxIndex},
		Size: size,
	})
}

// BlockReceiptsByHash 按区块哈希查询收据
func BlockReceiptsByHash(ctx context.Context, b Backend, hash string, size int) ([]*types.Receipt, error) {
	return b.Receipts(ctx, &Query{
		Must: []Cond{Terms(FieldBlockHash, hash)},
		Sort: []string{FieldTxIndex},
		Size: size,
	})
}

// ReceiptAt 区块内指定位置的收据, 不存在时返回 types.ErrNotFound
func ReceiptAt(ctx context.Context, b Backend, block Cond, index uint64) (*types.Receipt, error) {
	receipts, err := b.Receipts(ctx, &Query{
		Must: []Cond{block, Terms(FieldTxIndex, strconv.FormatUint(index, 10))},
		Size: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(receipts) == 0 {
		return nil, types.ErrNotFound
	}
	return receipts[0], nil
}

// DeltaByNumber 区块的状态增量, 不存在时返回 nil
func DeltaByNumber(ctx context.Context, b Backend, number uint64) (*types.Delta, error) {
	return firstDelta(ctx, b, Terms(FieldBlockNum, strconv.FormatUint(number, 10)))
}

// DeltaByHash 按区块哈希查询状态增量, 不存在时返回 nil
func DeltaByHash(ctx context.Context, b Backend, hash string) (*types.Delta, error) {
	return firstDelta(ctx, b, Terms(FieldBlockHash, hash))
}

func firstDelta(ctx context.Context, b Backend, c Cond) (*types.Delta, error) {
	deltas, err := b.Deltas(ctx, &Query{Must: []Cond{c}, Size: 1})
	if err != nil || len(deltas) == 0 {
		return nil, err
	}
	return deltas[0], nil
}
