// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ethrpc 组装 eth/net/web3/trace 命名空间并创建 jsonrpc 服务
package ethrpc

import (
	"context"

	"github.com/33cn/evmgateway/client"
	"github.com/33cn/evmgateway/common/log"
	"github.com/33cn/evmgateway/common/utils"
	"github.com/33cn/evmgateway/metrics"
	"github.com/33cn/evmgateway/rpc"
	"github.com/33cn/evmgateway/rpc/ethrpc/eth"
	rpcNet "github.com/33cn/evmgateway/rpc/ethrpc/net"
	"github.com/33cn/evmgateway/rpc/ethrpc/trace"
	"github.com/33cn/evmgateway/store"
	ctypes "github.com/33cn/evmgateway/types"
)

// 命名空间
const (
	EthNameSpace   = "eth"
	NetNameSpace   = "net"
	Web3NameSpace  = "web3"
	TraceNameSpace = "trace"
)

var (
	rlog = log.New("module", "eth_rpc")
)

// Health /health 的返回
type Health struct {
	LedgerHead uint64 `json:"ledgerHead"`
	IndexHead  uint64 `json:"indexHead"`
	ChainID    uint64 `json:"chainId"`
}

// InitRegistry 注册所有命名空间的方法
func InitRegistry(cfg *ctypes.Config, ledger client.Ledger, backend store.Backend) (*rpc.Registry, error) {
	return rpc.NewRegistry(
		eth.NewEthAPI(cfg, ledger, backend),
		rpcNet.NewNetAPI(cfg, ledger),
		NewWeb3(cfg).Methods(),
		trace.NewTraceAPI(cfg, backend),
	)
}

// HealthCheck 账本与索引的最新区块
func HealthCheck(cfg *ctypes.Config, ledger client.Ledger, backend store.Backend) rpc.HealthFunc {
	return func(ctx context.Context) (interface{}, error) {
		var h Health
		var err error
		if h.LedgerHead, err = ledger.GetChainHeadBlockNumber(ctx); err != nil {
			return nil, err
		}
		if h.IndexHead, err = backend.Head(ctx); err != nil {
			return nil, err
		}
		if h.ChainID, err = eth.ChainID(ctx, cfg, ledger); err != nil {
			return nil, err
		}
		return &h, nil
	}
}

// EthRPCServer eth jsonrpc server
type EthRPCServer struct {
	*rpc.Server
	Registry *rpc.Registry
	Metrics  *metrics.Server
}

// NewEthRPCServer eth json rpcserver object, 结果缓存与指标按配置开启
func NewEthRPCServer(cfg *ctypes.Config, ledger client.Ledger, backend store.Backend) (*EthRPCServer, error) {
	registry, err := InitRegistry(cfg, ledger, backend)
	if err != nil {
		return nil, err
	}
	var cache *utils.ResultCache
	if cfg.Cache.Enable {
		cache = utils.NewResultCache(cfg.Cache.Capacity, cfg.Cache.MaxBytes, cfg.Cache.TTL.Duration)
	}
	ms := metrics.StartMetrics(cfg.Metrics)
	m := metrics.NewRPCMetrics(ms.GoMetrics())
	if ms.Enabled() {
		if err := ms.Register(m); err != nil {
			return nil, err
		}
	}
	d := rpc.NewDispatcher(registry, cfg.RPC, cache, m)
	s := rpc.NewServer(cfg.RPC, d, m)
	s.SetMetrics(ms)
	s.SetHealth(HealthCheck(cfg, ledger, backend))
	rlog.Info("NewEthRPCServer", "methods", len(registry.Names()), "cache", cfg.Cache.Enable, "metrics", cfg.Metrics.Enable)
	return &EthRPCServer{Server: s, Registry: registry, Metrics: ms}, nil
}
