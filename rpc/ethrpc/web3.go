// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ethrpc

import (
	"context"

	"github.com/33cn/evmgateway/common/version"
	"github.com/33cn/evmgateway/rpc"
	"github.com/33cn/evmgateway/rpc/ethrpc/types"
	rpctypes "github.com/33cn/evmgateway/rpc/types"
	ctypes "github.com/33cn/evmgateway/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Web3 web3_* 命名空间
type Web3 struct {
	cfg *ctypes.Config
}

// NewWeb3 new web3 api
func NewWeb3(cfg *ctypes.Config) *Web3 {
	return &Web3{cfg: cfg}
}

// Methods web3 方法表
func (w *Web3) Methods() []*rpc.Method {
	return []*rpc.Method{
		{Name: "web3_clientVersion", Cacheable: true, Handler: rpc.Typed(w.ClientVersion)},
		{Name: "web3_sha3", Cacheable: true, Handler: rpc.Typed(w.Sha3)},
	}
}

// ClientVersion web3_clientVersion
func (w *Web3) ClientVersion(ctx context.Context, _ *rpctypes.NoParams) (string, error) {
	return version.ClientVersion(w.cfg.Chain.ClientVersion), nil
}

// Sha3 web3_sha3
// Returns Keccak-256 (not the standardized SHA3-256) of the given data.
func (w *Web3) Sha3(ctx context.Context, p *types.DataParams) (string, error) {
	data, err := hexutil.Decode(p.Data)
	if err != nil {
		return "", rpctypes.ErrInvalidParams(err)
	}
	return hexutil.Encode(crypto.Keccak256(data)), nil
}
