// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"github.com/33cn/evmgateway/types"
	"github.com/pkg/errors"
)

// 可导入的集合
const (
	CollectionReceipts   = collReceipts
	CollectionDeltas     = collDeltas
	CollectionSignatures = collSignatures
)

// ErrUnknownCollection 不支持导入的集合
var ErrUnknownCollection = errors.New("ErrUnknownCollection")

// Loader 把 json lines 格式的导出文件批量写入索引
type Loader struct {
	indexer   Indexer
	batchSize int
	// 每写入一批后回调, 参数为本批条数
	Progress func(n int)
}

// NewLoader new loader
func NewLoader(indexer Indexer, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Loader{indexer: indexer, batchSize: batchSize}
}

// Load 读取 r 中的每一行并写入 collection, 返回写入条数
func (l *Loader) Load(collection string, r io.Reader) (int, error) {
	var flush func(lines [][]byte) error
	switch collection {
	case CollectionReceipts:
		flush = func(lines [][]byte) error {
			items := make([]*types.Receipt, 0, len(lines))
			if err := decodeLines(lines, func() interface{} {
				item := new(types.Receipt)
				items = append(items, item)
				return item
			}); err != nil {
				return err
			}
			return l.indexer.IndexReceipts(items)
		}
	case CollectionDeltas:
		flush = func(lines [][]byte) error {
			items := make([]*types.Delta, 0, len(lines))
			if err := decodeLines(lines, func() interface{} {
				item := new(types.Delta)
				items = append(items, item)
				return item
			}); err != nil {
				return err
			}
			return l.indexer.IndexDeltas(items)
		}
	case CollectionSignatures:
		flush = func(lines [][]byte) error {
			items := make([]*types.ActionSignature, 0, len(lines))
			if err := decodeLines(lines, func() interface{} {
				item := new(types.ActionSignature)
				items = append(items, item)
				return item
			}); err != nil {
				return err
			}
			return l.indexer.IndexSignatures(items)
		}
	default:
		return 0, errors.Wrap(ErrUnknownCollection, collection)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var (
		total int
		lines [][]byte
	)
	commit := func() error {
		if len(lines) == 0 {
			return nil
		}
		if err := flush(lines); err != nil {
			return err
		}
		total += len(lines)
		if l.Progress != nil {
			l.Progress(len(lines))
		}
		lines = lines[:0]
		return nil
	}
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), line...))
		if len(lines) >= l.batchSize {
			if err := commit(); err != nil {
				return total, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return total, errors.Wrap(err, "read dump")
	}
	return total, commit()
}

func decodeLines(lines [][]byte, next func() interface{}) error {
	for i, line := range lines {
		if err := json.Unmarshal(line, next()); err != nil {
			return errors.Wrapf(err, "line %d", i)
		}
	}
	return nil
}
