// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"context"
	"net/http"
	_ "net/http/pprof" //
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/33cn/evmgateway/client"
	"github.com/33cn/evmgateway/common/limits"
	clog "github.com/33cn/evmgateway/common/log"
	"github.com/33cn/evmgateway/common/version"
	"github.com/33cn/evmgateway/rpc/ethrpc"
	"github.com/33cn/evmgateway/store"
	"github.com/33cn/evmgateway/types"
	"github.com/spf13/cobra"
)

var log = clog.New("module", "cli")

// StartCmd 启动网关
func StartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the jsonrpc gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("conf")
			pprof, _ := cmd.Flags().GetString("pprof")
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return RunGateway(cfg, pprof)
		},
	}
	cmd.Flags().StringP("conf", "f", "evmgateway.toml", "configfile")
	cmd.Flags().String("pprof", "", "pprof listen addr, empty to disable")
	return cmd
}

func loadConfig(path string) (*types.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Warn("config file not found, use default", "path", path)
		return types.DefaultConfig(), nil
	}
	return types.InitCfg(path)
}

//RunGateway : 加载账本客户端与收据索引, 启动 jsonrpc 服务, 收到退出信号后关闭
func RunGateway(cfg *types.Config, pprof string) error {
	clog.SetFileLog(&cfg.Log)
	if _, err := limits.SetLimits(cfg.RPC.MaxConnections); err != nil {
		return err
	}
	log.Info(cfg.Title + " evmgateway:" + version.GetVersion())

	//set watching
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()
	go func() {
		for range t.C {
			watching()
		}
	}()
	if pprof != "" {
		go func() {
			if err := http.ListenAndServe(pprof, nil); err != nil {
				log.Info("ListenAndServe", "listen addr", pprof, "err", err)
			}
		}()
	}

	log.Info("loading ledger client", "endpoint", cfg.Ledger.Endpoint)
	ledger, err := client.NewRPCLedger(&cfg.Ledger)
	if err != nil {
		return err
	}
	defer ledger.Close()

	log.Info("loading search backend", "datadir", cfg.Search.DataDir)
	backend, err := store.NewBleveBackend(cfg.Search.DataDir)
	if err != nil {
		return err
	}
	defer backend.Close()

	log.Info("loading rpc module")
	server, err := ethrpc.NewEthRPCServer(cfg, ledger, backend)
	if err != nil {
		return err
	}
	if _, err := server.Listen(); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("begin close rpc module")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RPC.RequestTimeout.Duration+time.Second)
	defer cancel()
	return server.Close(ctx)
}

func watching() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	log.Info("info:", "NumGoroutine:", runtime.NumGoroutine())
	log.Info("info:", "Mem:", m.Sys/(1024*1024))
	log.Info("info:", "HeapAlloc:", m.HeapAlloc/(1024*1024))
}
