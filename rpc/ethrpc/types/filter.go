// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/33cn/evmgateway/common/normalize"
	"github.com/33cn/evmgateway/store"
	ctypes "github.com/33cn/evmgateway/types"
	"github.com/pkg/errors"
)

// 区块标签
const (
	BlockLatest    = "latest"
	BlockPending   = "pending"
	BlockEarliest  = "earliest"
	BlockSafe      = "safe"
	BlockFinalized = "finalized"
)

// ResolveBlock 解析区块参数, 空值与 latest/pending 取已索引的最高区块
func ResolveBlock(tag string, head uint64) (uint64, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "", BlockLatest, BlockPending, BlockSafe, BlockFinalized:
		return head, nil
	case BlockEarliest:
		return 0, nil
	}
	n, err := normalize.ParseUint64(tag)
	if err != nil {
		return 0, errors.Wrapf(ctypes.ErrInvalidParam, "block %s", tag)
	}
	return n, nil
}

// FilterQuery eth_getLogs 的过滤条件
//
// Topics 按位置匹配, 某个位置为 nil 表示任意值。
type FilterQuery struct {
	BlockHash string
	FromBlock string
	ToBlock   string
	Addresses []string
	Topics    [][]string
}

type filterQueryJSON struct {
	BlockHash *string           `json:"blockHash"`
	FromBlock *string           `json:"fromBlock"`
	ToBlock   *string           `json:"toBlock"`
	Address   json.RawMessage   `json:"address"`
	Topics    []json.RawMessage `json:"topics"`
}

// UnmarshalJSON address 与每个 topic 位置都可以是单个值或者列表
func (q *FilterQuery) UnmarshalJSON(data []byte) error {
	var raw filterQueryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.BlockHash != nil && (raw.FromBlock != nil || raw.ToBlock != nil) {
		return ctypes.ErrBlockHashRange
	}
	if raw.BlockHash != nil {
		q.BlockHash = *raw.BlockHash
	}
	if raw.FromBlock != nil {
		q.FromBlock = *raw.FromBlock
	}
	if raw.ToBlock != nil {
		q.ToBlock = *raw.ToBlock
	}
	addrs, err := stringOrList(raw.Address)
	if err != nil {
		return errors.Wrap(err, "address")
	}
	q.Addresses = addrs
	q.Topics = make([][]string, len(raw.Topics))
	for i, t := range raw.Topics {
		if q.Topics[i], err = stringOrList(t); err != nil {
			return errors.Wrapf(err, "topics[%d]", i)
		}
	}
	return nil
}

func stringOrList(raw json.RawMessage) ([]string, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil, nil
	}
	if s[0] == '[' {
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []string{one}, nil
}

// LogFilter 解析后的日志过滤器, 地址与 topic 均为 normalize.Key 形式
type LogFilter struct {
	blockHash string
	from, to  uint64
	addresses []string
	topics    [][]string
}

// NewLogFilter 以已索引的最高区块解析区块范围
func NewLogFilter(q *FilterQuery, head uint64) (*LogFilter, error) {
	if q.BlockHash != "" && (q.FromBlock != "" || q.ToBlock != "") {
		return nil, ctypes.ErrBlockHashRange
	}
	f := &LogFilter{}
	if q.BlockHash != "" {
		f.blockHash = normalize.HashKey(q.BlockHash)
	} else {
		var err error
		if f.from, err = ResolveBlock(q.FromBlock, head); err != nil {
			return nil, err
		}
		if f.to, err = ResolveBlock(q.ToBlock, head); err != nil {
			return nil, err
		}
	}
	for _, a := range q.Addresses {
		f.addresses = append(f.addresses, normalize.Key(a))
	}
	f.topics = make([][]string, len(q.Topics))
	for i, pos := range q.Topics {
		if pos == nil {
			continue
		}
		keys := make([]string, 0, len(pos))
		for _, t := range pos {
			keys = append(keys, normalize.Key(t))
		}
		f.topics[i] = keys
	}
	return f, nil
}

// Query 下推到索引的条件: 区块范围或区块哈希, 以及日志地址
func (f *LogFilter) Query(size int) *store.Query {
	q := &store.Query{Sort: []string{store.FieldGlobalSeq}, Size: size}
	if f.blockHash != "" {
		q.Must = append(q.Must, store.Terms(store.FieldBlockHash, f.blockHash))
	} else {
		q.Must = append(q.Must, store.Range(store.FieldBlock, f.from, f.to))
	}
	if len(f.addresses) > 0 {
		q.Must = append(q.Must, store.Terms(store.FieldLogAddress, f.addresses...))
	}
	return q
}

// MatchBlock 区块是否在过滤范围内
func (f *LogFilter) MatchBlock(number uint64, hash string) bool {
	if f.blockHash != "" {
		return normalize.HashKey(hash) == f.blockHash
	}
	return number >= f.from && number <= f.to
}

// MatchLog 地址与 topic 是否匹配
//
// topic 比较去掉前导零, 过滤值与日志值相等或者是日志值的子串都算匹配。
// 过滤条件的位置数多于日志 topic 数时不匹配。
func (f *LogFilter) MatchLog(l *ctypes.ReceiptLog) bool {
	if len(f.addresses) > 0 && !contains(f.addresses, normalize.Key(l.Address)) {
		return false
	}
	if len(f.topics) > len(l.Topics) {
		return false
	}
	for i, pos := range f.topics {
		if pos == nil {
			continue
		}
		lk := normalize.Key(l.Topics[i])
		match := false
		for _, fk := range pos {
			if lk == fk || strings.Contains(lk, fk) {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	return true
}

// Apply 按全局序号升序输出匹配的日志, logIndex 为区块内按结果顺序编号
func (f *LogFilter) Apply(receipts []*ctypes.Receipt) []*EvmLog {
	sorted := make([]*ctypes.Receipt, len(receipts))
	copy(sorted, receipts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].GlobalSequence < sorted[j].GlobalSequence })

	logs := []*EvmLog{}
	index := make(map[uint64]uint64)
	for _, r := range sorted {
		if !f.MatchBlock(r.BlockNumber, r.BlockHash) {
			continue
		}
		for _, l := range r.Logs {
			if !f.MatchLog(l) {
				continue
			}
			logs = append(logs, newRPCLog(r, l, index[r.BlockNumber]))
			index[r.BlockNumber]++
		}
	}
	return logs
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// TraceFilterGroup trace_filter 的一组条件, After 只解析不生效
type TraceFilterGroup struct {
	FromBlock   string   `json:"fromBlock,omitempty"`
	ToBlock     string   `json:"toBlock,omitempty"`
	FromAddress []string `json:"fromAddress,omitempty"`
	ToAddress   []string `json:"toAddress,omitempty"`
	After       *uint64  `json:"after,omitempty"`
	Count       *uint64  `json:"count,omitempty"`
}

// Query 转换为内部调用集合上的查询, 按区块、交易位置、调用位置升序, 条数取 count 与 max 的较小值
func (g *TraceFilterGroup) Query(head uint64, max int) (*store.Query, error) {
	from, err := ResolveBlock(g.FromBlock, head)
	if err != nil {
		return nil, err
	}
	to, err := ResolveBlock(g.ToBlock, head)
	if err != nil {
		return nil, err
	}
	q := &store.Query{
		Must: []store.Cond{store.Range(store.FieldBlock, from, to)},
		Sort: []string{store.FieldBlock, store.FieldTxIndex, store.FieldItxIndex},
		Size: max,
	}
	if keys := addressKeys(g.FromAddress); len(keys) > 0 {
		q.Must = append(q.Must, store.Terms(store.FieldFrom, keys...))
	}
	if keys := addressKeys(g.ToAddress); len(keys) > 0 {
		q.Must = append(q.Must, store.Terms(store.FieldTo, keys...))
	}
	if g.Count != nil && (max <= 0 || *g.Count < uint64(max)) {
		q.Size = int(*g.Count)
	}
	return q, nil
}

func addressKeys(addrs []string) []string {
	keys := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if normalize.Strip0x(strings.TrimSpace(a)) == "" {
			continue
		}
		keys = append(keys, normalize.Key(a))
	}
	return keys
}
