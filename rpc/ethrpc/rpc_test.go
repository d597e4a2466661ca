// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ethrpc

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/33cn/evmgateway/client/mocks"
	"github.com/33cn/evmgateway/rpc/ethrpc/types"
	"github.com/33cn/evmgateway/store"
	ctypes "github.com/33cn/evmgateway/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *store.BleveBackend {
	b, err := store.NewMemBackend()
	require.Nil(t, err)
	t.Cleanup(func() { b.Close() })
	require.Nil(t, b.IndexDeltas([]*ctypes.Delta{{BlockNumber: 7}}))
	return b
}

func TestInitRegistry(t *testing.T) {
	reg, err := InitRegistry(ctypes.DefaultConfig(), &mocks.Ledger{}, newTestBackend(t))
	require.Nil(t, err)
	names := reg.Names()
	for _, name := range []string{
		"eth_chainId", "eth_blockNumber", "eth_getLogs", "eth_sendRawTransaction", "eth_getBlockByNumber",
		"net_version", "net_listening", "web3_clientVersion", "web3_sha3",
		"trace_filter", "trace_transaction", "trace_replayTransaction", "trace_replayBlockTransactions", "trace_block",
	} {
		assert.Contains(t, names, name)
	}
	m, ok := reg.Lookup("eth_getTransactionReceipt")
	require.True(t, ok)
	assert.True(t, m.Cacheable)
	m, ok = reg.Lookup("eth_blockNumber")
	require.True(t, ok)
	assert.False(t, m.Cacheable)
}

func TestWeb3(t *testing.T) {
	w := NewWeb3(ctypes.DefaultConfig())
	v, err := w.ClientVersion(context.Background(), nil)
	require.Nil(t, err)
	assert.True(t, strings.HasPrefix(v, "evmgateway/v"))

	h, err := w.Sha3(context.Background(), &types.DataParams{Data: "0x68656c6c6f20776f726c64"})
	require.Nil(t, err)
	assert.Equal(t, "0x47173285a8d7341e5e972fc677286384f802f8ef42a5ec5f03bbfa254cb01fad", h)
}

func TestEthRPCServer(t *testing.T) {
	cfg := ctypes.DefaultConfig()
	cfg.Metrics.Enable = true
	ledger := &mocks.Ledger{}
	ledger.On("GetChainID", mock.Anything).Return(uint64(40), nil)
	ledger.On("GetChainHeadBlockNumber", mock.Anything).Return(uint64(9), nil)

	s, err := NewEthRPCServer(cfg, ledger, newTestBackend(t))
	require.Nil(t, err)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/evm", "application/json",
		strings.NewReader(`[{"jsonrpc":"2.0","id":1,"method":"net_version"},{"jsonrpc":"2.0","id":2,"method":"eth_blockNumber"}]`))
	require.Nil(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.JSONEq(t, `[{"jsonrpc":"2.0","id":1,"result":"40"},{"jsonrpc":"2.0","id":2,"result":"0x9"}]`, string(body))

	resp, err = http.Get(ts.URL + "/health")
	require.Nil(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.JSONEq(t, `{"ledgerHead":9,"indexHead":7,"chainId":40}`, string(body))

	resp, err = http.Get(ts.URL + "/metrics")
	require.Nil(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `method="net_version"`)
}
