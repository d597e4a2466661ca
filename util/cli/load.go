// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/33cn/evmgateway/store"
	"github.com/pkg/errors"
	"github.com/qianlnk/pgbar"
	"github.com/spf13/cobra"
)

// LoadCmd 把 json lines 导出文件写入本地索引
func LoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load a json lines dump into the search index",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("conf")
			collection, _ := cmd.Flags().GetString("collection")
			file, _ := cmd.Flags().GetString("file")
			batch, _ := cmd.Flags().GetInt("batch")
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			backend, err := store.NewBleveBackend(cfg.Search.DataDir)
			if err != nil {
				return err
			}
			defer backend.Close()
			n, err := LoadFile(backend, collection, file, batch)
			fmt.Println("loaded", n, collection)
			return err
		},
	}
	cmd.Flags().StringP("conf", "f", "evmgateway.toml", "configfile")
	cmd.Flags().StringP("collection", "c", store.CollectionReceipts, "receipts, deltas or signatures")
	cmd.Flags().String("file", "", "json lines dump")
	cmd.Flags().Int("batch", 500, "documents per index batch")
	cmd.MarkFlagRequired("file")
	return cmd
}

// LoadFile 先数出行数作为进度条总量, 再分批写入
func LoadFile(indexer store.Indexer, collection, path string, batch int) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open dump")
	}
	defer f.Close()
	total, err := countLines(f)
	if err != nil {
		return 0, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	bar := pgbar.NewBar(0, collection, total)
	loader := store.NewLoader(indexer, batch)
	loader.Progress = func(n int) { bar.Add(n) }
	return loader.Load(collection, f)
}

func countLines(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	n := 0
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) > 0 {
			n++
		}
	}
	return n, errors.Wrap(scanner.Err(), "count lines")
}
