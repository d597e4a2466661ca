// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package net

import (
	"context"
	"strconv"

	"github.com/33cn/evmgateway/client"
	"github.com/33cn/evmgateway/rpc"
	"github.com/33cn/evmgateway/rpc/ethrpc/eth"
	rpctypes "github.com/33cn/evmgateway/rpc/types"
	ctypes "github.com/33cn/evmgateway/types"
)

type netHandler struct {
	ledger client.Ledger
	cfg    *ctypes.Config
}

// NewNetAPI create a net api
func NewNetAPI(cfg *ctypes.Config, ledger client.Ledger) []*rpc.Method {
	n := &netHandler{ledger: ledger, cfg: cfg}
	return []*rpc.Method{
		{Name: "net_version", Cacheable: true, Handler: rpc.Typed(n.Version)},
		{Name: "net_listening", Handler: rpc.Typed(n.Listening)},
	}
}

// Listening net_listening
func (n *netHandler) Listening(ctx context.Context, _ *rpctypes.NoParams) (bool, error) {
	return true, nil
}

// Version net_version 十进制的 chainID
func (n *netHandler) Version(ctx context.Context, _ *rpctypes.NoParams) (string, error) {
	id, err := eth.ChainID(ctx, n.cfg, n.ledger)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(id, 10), nil
}
