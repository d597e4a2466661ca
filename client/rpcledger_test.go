// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/33cn/evmgateway/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const revertData = "0x08c379a0" +
	"0000000000000000000000000000000000000000000000000000000000000020" +
	"0000000000000000000000000000000000000000000000000000000000000004" +
	"6e6f706500000000000000000000000000000000000000000000000000000000"

type revertErr struct{}

func (e *revertErr) Error() string          { return "execution reverted" }
func (e *revertErr) ErrorCode() int         { return 3 }
func (e *revertErr) ErrorData() interface{} { return revertData }

type ledgerService struct{}

func (s *ledgerService) GetAccount(address string) (*ledgerAccount, error) {
	if address == "0000000000000000000000000000000000000001" {
		return &ledgerAccount{Balance: "1.5000 TLOS", Nonce: 7, Code: "0x6080"}, nil
	}
	return nil, nil
}

func (s *ledgerService) GetStorageAt(address, slot string) (string, error) {
	return "0x2a", nil
}

func (s *ledgerService) GetGasPrice() (string, error) {
	return "0x7a3d3c2e0", nil
}

func (s *ledgerService) EstimateGas(args types.CallArgs) (string, error) {
	if args.To == "" {
		return "", errors.New("assertion failure with message: missing to")
	}
	return "0x5208", nil
}

func (s *ledgerService) Call(args types.CallArgs) (string, error) {
	if args.Payload() == "0xbad0" {
		return "", &revertErr{}
	}
	return "0x01", nil
}

func (s *ledgerService) SubmitRaw(raw string) (*types.ExecutionResult, error) {
	return &types.ExecutionResult{TxID: "abc", Console: raw}, nil
}

func (s *ledgerService) GetHeadBlockNumber() (uint64, error) { return 1024, nil }
func (s *ledgerService) GetChainId() (uint64, error)         { return 41, nil }
func (s *ledgerService) GetChainName() (string, error)       { return "telos-testnet", nil }

func newTestLedger(t *testing.T) *RPCLedger {
	server := rpc.NewServer()
	require.Nil(t, server.RegisterName("ledger", &ledgerService{}))
	ts := httptest.NewServer(server)
	t.Cleanup(func() {
		ts.Close()
		server.Stop()
	})
	l, err := NewRPCLedger(&types.Ledger{Endpoint: ts.URL, Timeout: types.Duration{Duration: 5 * time.Second}, BalanceDecimals: 18, MethodPrefix: "ledger_"})
	require.Nil(t, err)
	t.Cleanup(l.Close)
	return l
}

func TestRPCLedgerAccount(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	acc, err := l.GetAccount(ctx, "0x0000000000000000000000000000000000000001")
	require.Nil(t, err)
	assert.Equal(t, "1500000000000000000", acc.Balance.String())
	assert.Equal(t, uint64(7), acc.Nonce)
	assert.Equal(t, []byte{0x60, 0x80}, acc.Code)

	acc, err = l.GetAccount(ctx, "0x0000000000000000000000000000000000000002")
	require.Nil(t, err)
	assert.Equal(t, int64(0), acc.Balance.Int64())
	assert.Equal(t, uint64(0), acc.Nonce)

	word, err := l.GetStorageAt(ctx, "0x01", "0x0")
	require.Nil(t, err)
	assert.Equal(t, 66, len(word))
	assert.Equal(t, "0x000000000000000000000000000000000000000000000000000000000000002a", word)
}

func TestRPCLedgerExecution(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	price, err := l.GetGasPrice(ctx)
	require.Nil(t, err)
	assert.Equal(t, "0x7a3d3c2e0", "0x"+price.Text(16))

	gas, err := l.EstimateGas(ctx, &types.CallArgs{To: "0x01"})
	require.Nil(t, err)
	assert.Equal(t, uint64(21000), gas)
	_, err = l.EstimateGas(ctx, &types.CallArgs{})
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "assertion failure with message: missing to")

	out, err := l.Call(ctx, &types.CallArgs{To: "0x01", Data: "0x00"})
	require.Nil(t, err)
	assert.Equal(t, []byte{1}, out)
	_, err = l.Call(ctx, &types.CallArgs{To: "0x01", Input: "0xbad0"})
	var rerr *RevertError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, revertData, rerr.Data)

	res, err := l.SubmitRaw(ctx, []byte{0xf8, 0x01})
	require.Nil(t, err)
	assert.Equal(t, "0xf801", res.Console)

	head, err := l.GetChainHeadBlockNumber(ctx)
	require.Nil(t, err)
	assert.Equal(t, uint64(1024), head)
	id, err := l.GetChainID(ctx)
	require.Nil(t, err)
	assert.Equal(t, uint64(41), id)
	name, err := l.GetChainName(ctx)
	require.Nil(t, err)
	assert.Equal(t, "telos-testnet", name)
}

func TestToWei(t *testing.T) {
	v, err := ToWei("0.0001 TLOS", 18)
	require.Nil(t, err)
	assert.Equal(t, "100000000000000", v.String())
	v, err = ToWei("0x10", 18)
	require.Nil(t, err)
	assert.Equal(t, int64(16), v.Int64())
	v, err = ToWei("", 18)
	require.Nil(t, err)
	assert.Equal(t, int64(0), v.Int64())
	_, err = ToWei("abc TLOS", 18)
	assert.NotNil(t, err)
}
