// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strconv"

	"github.com/33cn/evmgateway/common/log"
	"github.com/33cn/evmgateway/common/normalize"
	"github.com/33cn/evmgateway/types"
	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/mapping"
	"github.com/blevesearch/bleve/search/query"
	"github.com/pkg/errors"
)

const (
	collReceipts   = "receipts"
	collItxs       = "itxs"
	collDeltas     = "deltas"
	collSignatures = "signatures"

	// 原始 json 文档, 只存储不索引
	fieldSource = "source"

	defaultSize = 1000
)

var (
	slog = log.New("module", "store")

	// ErrUnknownField 查询了集合中没有索引的字段
	ErrUnknownField = errors.New("ErrUnknownField")
)

type fieldKind int

const (
	kindHash fieldKind = iota
	kindAddress
	kindNumber
)

// 索引写入与查询两边使用同样的规范化
func (k fieldKind) normalize(v string) string {
	switch k {
	case kindHash:
		return normalize.HashKey(v)
	case kindAddress:
		return normalize.Key(v)
	}
	return v
}

var collections = map[string]map[string]fieldKind{
	collReceipts: {
		FieldHash:       kindHash,
		FieldBlock:      kindNumber,
		FieldBlockHash:  kindHash,
		FieldFrom:       kindAddress,
		FieldTo:         kindAddress,
		FieldTxIndex:    kindNumber,
		FieldGlobalSeq:  kindNumber,
		FieldLogAddress: kindAddress,
		FieldLogTopic:   kindAddress,
		FieldItxFrom:    kindAddress,
		FieldItxTo:      kindAddress,
	},
	collItxs: {
		FieldHash:      kindHash,
		FieldBlock:     kindNumber,
		FieldBlockHash: kindHash,
		FieldFrom:      kindAddress,
		FieldTo:        kindAddress,
		FieldTxIndex:   kindNumber,
		FieldItxIndex:  kindNumber,
	},
	collDeltas: {
		FieldBlockNum:  kindNumber,
		FieldBlockHash: kindHash,
	},
	collSignatures: {
		FieldHash: kindHash,
	},
}

func newMapping(fields map[string]fieldKind) mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()
	doc.Dynamic = false
	for name, kind := range fields {
		var fm *mapping.FieldMapping
		if kind == kindNumber {
			fm = bleve.NewNumericFieldMapping()
			fm.DocValues = true
		} else {
			fm = bleve.NewTextFieldMapping()
			fm.Analyzer = keyword.Name
		}
		fm.Store = false
		fm.IncludeInAll = false
		doc.AddFieldMappingsAt(name, fm)
	}
	src := bleve.NewTextFieldMapping()
	src.Index = false
	src.Store = true
	src.IncludeInAll = false
	src.IncludeTermVectors = false
	doc.AddFieldMappingsAt(fieldSource, src)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = keyword.Name
	return im
}

// BleveBackend 基于 bleve 的收据索引, 每个集合一个 bleve index
type BleveBackend struct {
	indexes map[string]bleve.Index
}

// NewBleveBackend 打开 dataDir 下的索引, 不存在时创建
func NewBleveBackend(dataDir string) (*BleveBackend, error) {
	b := &BleveBackend{indexes: make(map[string]bleve.Index)}
	for coll, fields := range collections {
		path := filepath.Join(dataDir, coll+".bleve")
		idx, err := bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			slog.Info("NewBleveBackend create index", "path", path)
			idx, err = bleve.New(path, newMapping(fields))
		}
		if err != nil {
			b.Close()
			return nil, errors.Wrapf(err, "open index %s", path)
		}
		b.indexes[coll] = idx
	}
	return b, nil
}

// NewMemBackend 内存索引, 用于测试和临时数据
func NewMemBackend() (*BleveBackend, error) {
	b := &BleveBackend{indexes: make(map[string]bleve.Index)}
	for coll, fields := range collections {
		idx, err := bleve.NewMemOnly(newMapping(fields))
		if err != nil {
			b.Close()
			return nil, errors.Wrapf(err, "new mem index %s", coll)
		}
		b.indexes[coll] = idx
	}
	return b, nil
}

// Close close all indexes
func (b *BleveBackend) Close() error {
	var first error
	for coll, idx := range b.indexes {
		if err := idx.Close(); err != nil && first == nil {
			first = errors.Wrapf(err, "close index %s", coll)
		}
	}
	return first
}

func (b *BleveBackend) request(coll string, q *Query) (*bleve.SearchRequest, error) {
	fields := collections[coll]
	var conj []query.Query
	for _, c := range q.Must {
		kind, ok := fields[c.Field]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownField, "%s.%s", coll, c.Field)
		}
		switch {
		case len(c.Terms) > 0:
			dis := make([]query.Query, 0, len(c.Terms))
			for _, t := range c.Terms {
				if kind == kindNumber {
					n, err := normalize.ParseUint64(t)
					if err != nil {
						return nil, errors.Wrapf(types.ErrInvalidParam, "%s=%s", c.Field, t)
					}
					dis = append(dis, numericRange(c.Field, &n, &n))
					continue
				}
				tq := bleve.NewTermQuery(kind.normalize(t))
				tq.SetField(c.Field)
				dis = append(dis, tq)
			}
			conj = append(conj, bleve.NewDisjunctionQuery(dis...))
		case c.Min != nil || c.Max != nil:
			conj = append(conj, numericRange(c.Field, c.Min, c.Max))
		}
	}
	var qq query.Query = bleve.NewMatchAllQuery()
	if len(conj) > 0 {
		qq = bleve.NewConjunctionQuery(conj...)
	}
	size := q.Size
	if size <= 0 {
		size = defaultSize
	}
	req := bleve.NewSearchRequestOptions(qq, size, 0, false)
	req.Fields = []string{fieldSource}
	if len(q.Sort) > 0 {
		req.SortBy(q.Sort)
	}
	return req, nil
}

func numericRange(field string, min, max *uint64) query.Query {
	var fmin, fmax *float64
	if min != nil {
		v := float64(*min)
		fmin = &v
	}
	if max != nil {
		v := float64(*max)
		fmax = &v
	}
	inclusive := true
	rq := bleve.NewNumericRangeInclusiveQuery(fmin, fmax, &inclusive, &inclusive)
	rq.SetField(field)
	return rq
}

func (b *BleveBackend) search(ctx context.Context, coll string, q *Query, fn func(src []byte) error) error {
	req, err := b.request(coll, q)
	if err != nil {
		return err
	}
	res, err := b.indexes[coll].SearchInContext(ctx, req)
	if err != nil {
		return errors.Wrapf(err, "search %s", coll)
	}
	for _, hit := range res.Hits {
		src, ok := hit.Fields[fieldSource].(string)
		if !ok {
			slog.Error("search", "collection", coll, "id", hit.ID, "err", "document without source")
			continue
		}
		if err := fn([]byte(src)); err != nil {
			return errors.Wrapf(err, "decode %s/%s", coll, hit.ID)
		}
	}
	return nil
}

// Receipts 查询收据
func (b *BleveBackend) Receipts(ctx context.Context, q *Query) ([]*types.Receipt, error) {
	var receipts []*types.Receipt
	err := b.search(ctx, collReceipts, q, func(src []byte) error {
		var r types.Receipt
		if err := json.Unmarshal(src, &r); err != nil {
			return err
		}
		receipts = append(receipts, &r)
		return nil
	})
	return receipts, err
}

// InternalCalls 查询内部调用
func (b *BleveBackend) InternalCalls(ctx context.Context, q *Query) ([]*types.InternalCall, error) {
	var itxs []*types.InternalCall
	err := b.search(ctx, collItxs, q, func(src []byte) error {
		var itx types.InternalCall
		if err := json.Unmarshal(src, &itx); err != nil {
			return err
		}
		itxs = append(itxs, &itx)
		return nil
	})
	return itxs, err
}

// Deltas 查询账本状态增量
func (b *BleveBackend) Deltas(ctx context.Context, q *Query) ([]*types.Delta, error) {
	var deltas []*types.Delta
	err := b.search(ctx, collDeltas, q, func(src []byte) error {
		var d types.Delta
		if err := json.Unmarshal(src, &d); err != nil {
			return err
		}
		deltas = append(deltas, &d)
		return nil
	})
	return deltas, err
}

// ActionSignature 查询附着在子 action 上的交易签名
func (b *BleveBackend) ActionSignature(ctx context.Context, txHash string) (string, error) {
	var sig string
	q := &Query{Must: []Cond{Terms(FieldHash, txHash)}, Size: 1}
	err := b.search(ctx, collSignatures, q, func(src []byte) error {
		var s types.ActionSignature
		if err := json.Unmarshal(src, &s); err != nil {
			return err
		}
		sig = s.Signature
		return nil
	})
	if err != nil {
		return "", err
	}
	if sig == "" {
		return "", types.ErrNotFound
	}
	return sig, nil
}

// Head 收据与状态增量中最高的区块
func (b *BleveBackend) Head(ctx context.Context) (uint64, error) {
	var head uint64
	receipts, err := b.Receipts(ctx, &Query{Sort: []string{"-" + FieldBlock}, Size: 1})
	if err != nil {
		return 0, err
	}
	if len(receipts) > 0 {
		head = receipts[0].BlockNumber
	}
	deltas, err := b.Deltas(ctx, &Query{Sort: []string{"-" + FieldBlockNum}, Size: 1})
	if err != nil {
		return 0, err
	}
	if len(deltas) > 0 && deltas[0].BlockNumber > head {
		head = deltas[0].BlockNumber
	}
	return head, nil
}

func receiptDoc(r *types.Receipt) (map[string]interface{}, error) {
	src, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	doc := map[string]interface{}{
		FieldHash:      normalize.HashKey(r.Hash),
		FieldBlock:     float64(r.BlockNumber),
		FieldBlockHash: normalize.HashKey(r.BlockHash),
		FieldFrom:      normalize.Key(r.From),
		FieldTxIndex:   float64(r.TxIndex),
		FieldGlobalSeq: float64(r.GlobalSequence),
		fieldSource:    string(src),
	}
	if r.To != "" {
		doc[FieldTo] = normalize.Key(r.To)
	}
	var addrs, topics, itxFrom, itxTo []string
	for _, l := range r.Logs {
		addrs = append(addrs, normalize.Key(l.Address))
		for _, t := range l.Topics {
			topics = append(topics, normalize.Key(t))
		}
	}
	for _, itx := range r.Itxs {
		itxFrom = append(itxFrom, normalize.Key(itx.From))
		if itx.To != "" {
			itxTo = append(itxTo, normalize.Key(itx.To))
		}
	}
	setList(doc, FieldLogAddress, addrs)
	setList(doc, FieldLogTopic, topics)
	setList(doc, FieldItxFrom, itxFrom)
	setList(doc, FieldItxTo, itxTo)
	return doc, nil
}

func setList(doc map[string]interface{}, field string, values []string) {
	if len(values) > 0 {
		doc[field] = values
	}
}

func itxDoc(itx *types.InternalCall) (map[string]interface{}, error) {
	src, err := json.Marshal(itx)
	if err != nil {
		return nil, err
	}
	doc := map[string]interface{}{
		FieldHash:      normalize.HashKey(itx.TxHash),
		FieldBlock:     float64(itx.BlockNumber),
		FieldBlockHash: normalize.HashKey(itx.BlockHash),
		FieldFrom:      normalize.Key(itx.From),
		FieldTxIndex:   float64(itx.TxIndex),
		FieldItxIndex:  float64(itx.ItxIndex),
		fieldSource:    string(src),
	}
	if itx.To != "" {
		doc[FieldTo] = normalize.Key(itx.To)
	}
	return doc, nil
}

// IndexReceipts 写入收据, 同时把内部调用带上所属交易信息写入 itx 集合
func (b *BleveBackend) IndexReceipts(receipts []*types.Receipt) error {
	rbatch := b.indexes[collReceipts].NewBatch()
	ibatch := b.indexes[collItxs].NewBatch()
	for _, r := range receipts {
		doc, err := receiptDoc(r)
		if err != nil {
			return errors.Wrapf(err, "receipt %s", r.Hash)
		}
		id := normalize.HashKey(r.Hash)
		if err := rbatch.Index(id, doc); err != nil {
			return err
		}
		for i, itx := range r.Itxs {
			linked := *itx
			linked.TxHash = r.Hash
			linked.BlockNumber = r.BlockNumber
			linked.BlockHash = r.BlockHash
			linked.TxIndex = r.TxIndex
			linked.ItxIndex = uint64(i)
			idoc, err := itxDoc(&linked)
			if err != nil {
				return errors.Wrapf(err, "itx %s/%d", r.Hash, i)
			}
			if err := ibatch.Index(id+"-"+strconv.Itoa(i), idoc); err != nil {
				return err
			}
		}
	}
	if err := b.indexes[collReceipts].Batch(rbatch); err != nil {
		return errors.Wrap(err, "index receipts")
	}
	return errors.Wrap(b.indexes[collItxs].Batch(ibatch), "index itxs")
}

// IndexDeltas 写入账本状态增量
func (b *BleveBackend) IndexDeltas(deltas []*types.Delta) error {
	batch := b.indexes[collDeltas].NewBatch()
	for _, d := range deltas {
		src, err := json.Marshal(d)
		if err != nil {
			return err
		}
		doc := map[string]interface{}{
			FieldBlockNum:  float64(d.BlockNumber),
			FieldBlockHash: normalize.HashKey(d.BlockHash),
			fieldSource:    string(src),
		}
		if err := batch.Index(strconv.FormatUint(d.BlockNumber, 10), doc); err != nil {
			return err
		}
	}
	return errors.Wrap(b.indexes[collDeltas].Batch(batch), "index deltas")
}

// IndexSignatures 写入子 action 上的交易签名
func (b *BleveBackend) IndexSignatures(sigs []*types.ActionSignature) error {
	batch := b.indexes[collSignatures].NewBatch()
	for _, s := range sigs {
		src, err := json.Marshal(s)
		if err != nil {
			return err
		}
		id := normalize.HashKey(s.TxHash)
		doc := map[string]interface{}{
			FieldHash:   id,
			fieldSource: string(src),
		}
		if err := batch.Index(id, doc); err != nil {
			return err
		}
	}
	return errors.Wrap(b.indexes[collSignatures].Batch(batch), "index signatures")
}
