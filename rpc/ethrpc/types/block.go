// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"encoding/binary"
	"math/big"
	"sort"

	"github.com/33cn/evmgateway/common/normalize"
	ctypes "github.com/33cn/evmgateway/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	etypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// PseudoHash 没有索引活动的区块的占位哈希: keccak256(大端 uint64 高度)
func PseudoHash(number uint64) common.Hash {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], number)
	return crypto.Keccak256Hash(buf[:])
}

func parentOf(number uint64, carried string) common.Hash {
	if normalize.Strip0x(carried) != "" {
		return normalize.Hash(carried)
	}
	if number == 0 {
		return common.Hash{}
	}
	return PseudoHash(number - 1)
}

func newHeader(number uint64, gasLimit uint64) *Header {
	return &Header{
		UncleHash:       etypes.EmptyUncleHash,
		Root:            etypes.EmptyRootHash,
		TxHash:          etypes.EmptyRootHash,
		ReceiptHash:     etypes.EmptyRootHash,
		Difficulty:      (*hexutil.Big)(new(big.Int)),
		TotalDifficulty: (*hexutil.Big)(new(big.Int)),
		Number:          (*hexutil.Big)(new(big.Int).SetUint64(number)),
		GasLimit:        hexutil.Uint64(gasLimit),
		Extra:           hexutil.Bytes{},
	}
}

// ReconstructBlock 由同一区块的所有收据重构区块
//
// gasUsed 取各收据 gasusedblock 的最大值, logsBloom 为各收据 bloom 按位或。
// full 为 true 时 transactions 为完整交易, 签名通过 lookup 补查。
func ReconstructBlock(receipts []*ctypes.Receipt, full bool, gasLimit uint64, lookup SignatureLookup) (*Block, error) {
	if len(receipts) == 0 {
		return nil, ctypes.ErrNotFound
	}
	sorted := make([]*ctypes.Receipt, len(receipts))
	copy(sorted, receipts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TxIndex < sorted[j].TxIndex })

	first := sorted[0]
	header := newHeader(first.BlockNumber, gasLimit)
	header.Hash = normalize.Hash(first.BlockHash)
	header.ParentHash = parentOf(first.BlockNumber, first.ParentHash)
	header.Time = hexutil.Uint64(first.Epoch)

	var (
		gasUsed uint64
		bloom   etypes.Bloom
	)
	txs := make([]interface{}, 0, len(sorted))
	for _, r := range sorted {
		if r.GasUsedBlock > gasUsed {
			gasUsed = r.GasUsedBlock
		}
		if normalize.Strip0x(r.LogsBloom) != "" {
			b := BloomOf(r.LogsBloom)
			for i := range bloom {
				bloom[i] |= b[i]
			}
		}
		if !full {
			txs = append(txs, normalize.Hash(r.Hash))
			continue
		}
		vrs, err := GetVRS(r, lookup)
		if err != nil {
			return nil, err
		}
		txs = append(txs, NewRPCTransaction(r, vrs))
	}
	header.GasUsed = hexutil.Uint64(gasUsed)
	header.Bloom = bloom
	return &Block{Header: header, Transactions: txs, Uncles: []common.Hash{}}, nil
}

// EmptyBlock 没有收据的区块
//
// delta 不为空时使用其时间戳与哈希, 否则使用高度的占位哈希。
func EmptyBlock(number uint64, delta *ctypes.Delta, gasLimit uint64) *Block {
	header := newHeader(number, gasLimit)
	header.ParentHash = parentOf(number, "")
	if delta != nil && normalize.Strip0x(delta.BlockHash) != "" {
		header.Hash = normalize.Hash(delta.BlockHash)
		header.Time = hexutil.Uint64(delta.Timestamp)
	} else {
		header.Hash = PseudoHash(number)
		if delta != nil {
			header.Time = hexutil.Uint64(delta.Timestamp)
		}
	}
	return &Block{Header: header, Transactions: []interface{}{}, Uncles: []common.Hash{}}
}
