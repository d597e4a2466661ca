// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/33cn/evmgateway/common/normalize"
	rpctypes "github.com/33cn/evmgateway/rpc/types"
	ctypes "github.com/33cn/evmgateway/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// BlockTag 区块参数, 可以是标签, 十六进制或十进制高度
type BlockTag string

// UnmarshalJSON 同时接受字符串与数字
func (b *BlockTag) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n uint64
		if err := json.Unmarshal(data, &n); err != nil {
			return errors.Errorf("invalid block %s", string(data))
		}
		s = strconv.FormatUint(n, 10)
	}
	if _, err := ResolveBlock(s, 0); err != nil {
		return err
	}
	*b = BlockTag(s)
	return nil
}

// Resolve 以 head 解析标签
func (b BlockTag) Resolve(head uint64) (uint64, error) {
	return ResolveBlock(string(b), head)
}

func checkHex(name, s string) error {
	h := normalize.Strip0x(s)
	if h == "" {
		return errors.Errorf("empty %s", name)
	}
	for _, c := range h {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return errors.Errorf("invalid %s %s", name, s)
		}
	}
	return nil
}

// AccountParams eth_getBalance/eth_getCode/eth_getTransactionCount
type AccountParams struct {
	Address string
	Block   BlockTag
}

// DecodeParams address [, block]
func (p *AccountParams) DecodeParams(raw []json.RawMessage) error {
	if err := rpctypes.CheckLen(raw, 1, 2); err != nil {
		return err
	}
	if err := rpctypes.Required(raw, 0, &p.Address); err != nil {
		return err
	}
	if _, err := rpctypes.Optional(raw, 1, &p.Block); err != nil {
		return err
	}
	return checkHex("address", p.Address)
}

// StorageParams eth_getStorageAt
type StorageParams struct {
	Address string
	Slot    string
	Block   BlockTag
}

// DecodeParams address, slot [, block]
func (p *StorageParams) DecodeParams(raw []json.RawMessage) error {
	if err := rpctypes.CheckLen(raw, 2, 3); err != nil {
		return err
	}
	if err := rpctypes.Required(raw, 0, &p.Address); err != nil {
		return err
	}
	if err := rpctypes.Required(raw, 1, &p.Slot); err != nil {
		return err
	}
	if _, err := rpctypes.Optional(raw, 2, &p.Block); err != nil {
		return err
	}
	if err := checkHex("address", p.Address); err != nil {
		return err
	}
	return checkHex("slot", p.Slot)
}

// CallParams eth_call/eth_estimateGas/eth_sendTransaction
type CallParams struct {
	Args  ctypes.CallArgs
	Block BlockTag
}

// DecodeParams tx [, block]
func (p *CallParams) DecodeParams(raw []json.RawMessage) error {
	if err := rpctypes.CheckLen(raw, 1, 2); err != nil {
		return err
	}
	if err := rpctypes.Required(raw, 0, &p.Args); err != nil {
		return err
	}
	_, err := rpctypes.Optional(raw, 1, &p.Block)
	return err
}

// RawTxParams eth_sendRawTransaction
type RawTxParams struct {
	Data string
}

// DecodeParams signed tx
func (p *RawTxParams) DecodeParams(raw []json.RawMessage) error {
	if err := rpctypes.CheckLen(raw, 1, 1); err != nil {
		return err
	}
	if err := rpctypes.Required(raw, 0, &p.Data); err != nil {
		return err
	}
	if _, err := hexutil.Decode(p.Data); err != nil {
		return errors.Wrap(err, "raw transaction")
	}
	return nil
}

// DataParams web3_sha3, 参数为 0x 前缀的十六进制数据
type DataParams = RawTxParams

// HashParams 以交易或区块哈希为唯一参数
type HashParams struct {
	Hash string
}

// DecodeParams hash
func (p *HashParams) DecodeParams(raw []json.RawMessage) error {
	if err := rpctypes.CheckLen(raw, 1, 1); err != nil {
		return err
	}
	if err := rpctypes.Required(raw, 0, &p.Hash); err != nil {
		return err
	}
	return checkHex("hash", p.Hash)
}

// ReplayParams trace_replayTransaction, 始终只返回 trace, traceTypes 不影响结果
type ReplayParams struct {
	Hash       string
	TraceTypes []string
}

// DecodeParams hash [, traceTypes]
func (p *ReplayParams) DecodeParams(raw []json.RawMessage) error {
	if err := rpctypes.CheckLen(raw, 1, 2); err != nil {
		return err
	}
	if err := rpctypes.Required(raw, 0, &p.Hash); err != nil {
		return err
	}
	if _, err := rpctypes.Optional(raw, 1, &p.TraceTypes); err != nil {
		return err
	}
	return checkHex("hash", p.Hash)
}

// BlockParams 以区块高度为唯一参数, trace_replayBlockTransactions 的第二个参数被忽略
type BlockParams struct {
	Block BlockTag
}

// DecodeParams block
func (p *BlockParams) DecodeParams(raw []json.RawMessage) error {
	if err := rpctypes.CheckLen(raw, 1, 2); err != nil {
		return err
	}
	return rpctypes.Required(raw, 0, &p.Block)
}

// BlockNumberParams eth_getBlockByNumber
type BlockNumberParams struct {
	Block BlockTag
	Full  bool
}

// DecodeParams block [, full]
func (p *BlockNumberParams) DecodeParams(raw []json.RawMessage) error {
	if err := rpctypes.CheckLen(raw, 1, 2); err != nil {
		return err
	}
	if err := rpctypes.Required(raw, 0, &p.Block); err != nil {
		return err
	}
	_, err := rpctypes.Optional(raw, 1, &p.Full)
	return err
}

// BlockHashParams eth_getBlockByHash
type BlockHashParams struct {
	Hash string
	Full bool
}

// DecodeParams hash [, full]
func (p *BlockHashParams) DecodeParams(raw []json.RawMessage) error {
	if err := rpctypes.CheckLen(raw, 1, 2); err != nil {
		return err
	}
	if err := rpctypes.Required(raw, 0, &p.Hash); err != nil {
		return err
	}
	if _, err := rpctypes.Optional(raw, 1, &p.Full); err != nil {
		return err
	}
	return checkHex("hash", p.Hash)
}

// BlockHashIndexParams eth_getTransactionByBlockHashAndIndex
type BlockHashIndexParams struct {
	Hash  string
	Index hexutil.Uint64
}

// DecodeParams hash, index
func (p *BlockHashIndexParams) DecodeParams(raw []json.RawMessage) error {
	if err := rpctypes.CheckLen(raw, 2, 2); err != nil {
		return err
	}
	if err := rpctypes.Required(raw, 0, &p.Hash); err != nil {
		return err
	}
	if err := rpctypes.Required(raw, 1, &p.Index); err != nil {
		return err
	}
	return checkHex("hash", p.Hash)
}

// BlockNumberIndexParams eth_getTransactionByBlockNumberAndIndex
type BlockNumberIndexParams struct {
	Block BlockTag
	Index hexutil.Uint64
}

// DecodeParams block, index
func (p *BlockNumberIndexParams) DecodeParams(raw []json.RawMessage) error {
	if err := rpctypes.CheckLen(raw, 2, 2); err != nil {
		return err
	}
	if err := rpctypes.Required(raw, 0, &p.Block); err != nil {
		return err
	}
	return rpctypes.Required(raw, 1, &p.Index)
}

// LogsParams eth_getLogs
type LogsParams struct {
	Filter FilterQuery
}

// DecodeParams filter
func (p *LogsParams) DecodeParams(raw []json.RawMessage) error {
	if err := rpctypes.CheckLen(raw, 1, 1); err != nil {
		return err
	}
	return rpctypes.Required(raw, 0, &p.Filter)
}

// TraceFilterParams trace_filter, 每个参数是一组条件, 也可以是条件的列表
type TraceFilterParams struct {
	Groups []*TraceFilterGroup
}

// DecodeParams group...
func (p *TraceFilterParams) DecodeParams(raw []json.RawMessage) error {
	if err := rpctypes.CheckLen(raw, 1, -1); err != nil {
		return err
	}
	for i, r := range raw {
		s := strings.TrimSpace(string(r))
		if strings.HasPrefix(s, "[") {
			var groups []*TraceFilterGroup
			if err := json.Unmarshal(r, &groups); err != nil {
				return errors.Wrapf(err, "invalid argument %d", i)
			}
			p.Groups = append(p.Groups, groups...)
			continue
		}
		g := new(TraceFilterGroup)
		if err := rpctypes.Required(raw, i, g); err != nil {
			return err
		}
		p.Groups = append(p.Groups, g)
	}
	return nil
}
