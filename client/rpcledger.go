// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/33cn/evmgateway/common/log"
	"github.com/33cn/evmgateway/common/normalize"
	"github.com/33cn/evmgateway/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var clog = log.New("module", "ledger")

// RPCLedger 通过 jsonrpc 访问账本节点
type RPCLedger struct {
	c        *rpc.Client
	prefix   string
	decimals int32
}

// NewRPCLedger new ledger client
func NewRPCLedger(cfg *types.Ledger) (*RPCLedger, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout.Duration}
	c, err := rpc.DialHTTPWithClient(cfg.Endpoint, httpClient)
	if err != nil {
		return nil, errors.Wrapf(err, "dial ledger %s", cfg.Endpoint)
	}
	return &RPCLedger{c: c, prefix: cfg.MethodPrefix, decimals: cfg.BalanceDecimals}, nil
}

// Close close
func (l *RPCLedger) Close() {
	l.c.Close()
}

func (l *RPCLedger) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	err := l.c.CallContext(ctx, result, l.prefix+method, args...)
	if err == nil {
		return nil
	}
	var derr rpc.DataError
	if errors.As(err, &derr) && derr.ErrorData() != nil {
		return &RevertError{Message: err.Error(), Data: errorData(derr.ErrorData())}
	}
	clog.Debug("call", "method", method, "err", err)
	return errors.Wrap(err, method)
}

func errorData(v interface{}) string {
	if s, ok := v.(string); ok {
		return normalize.Hex(s)
	}
	return fmt.Sprint(v)
}

type ledgerAccount struct {
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
	Code    string `json:"code"`
}

// GetAccount 账户不存在时返回零值账户
func (l *RPCLedger) GetAccount(ctx context.Context, address string) (*Account, error) {
	var acc *ledgerAccount
	if err := l.call(ctx, &acc, "getAccount", normalize.Strip0x(strings.ToLower(address))); err != nil {
		return nil, err
	}
	if acc == nil {
		return &Account{Balance: new(big.Int)}, nil
	}
	balance, err := ToWei(acc.Balance, l.decimals)
	if err != nil {
		return nil, err
	}
	return &Account{Balance: balance, Nonce: acc.Nonce, Code: normalize.Bytes(acc.Code)}, nil
}

// ToWei 把账本余额 "1.5000 TLOS" 按小数位换算为 wei
func ToWei(balance string, decimals int32) (*big.Int, error) {
	fields := strings.Fields(balance)
	if len(fields) == 0 {
		return new(big.Int), nil
	}
	if strings.HasPrefix(fields[0], "0x") {
		v, ok := normalize.ParseBig(fields[0])
		if !ok {
			return nil, errors.Wrapf(types.ErrInvalidParam, "balance %s", balance)
		}
		return v, nil
	}
	d, err := decimal.NewFromString(fields[0])
	if err != nil {
		return nil, errors.Wrapf(err, "balance %s", balance)
	}
	return d.Shift(decimals).BigInt(), nil
}

// GetStorageAt 返回 32 字节的存储值
func (l *RPCLedger) GetStorageAt(ctx context.Context, address, slot string) (string, error) {
	var word string
	if err := l.call(ctx, &word, "getStorageAt", normalize.Strip0x(strings.ToLower(address)), normalize.Hex(slot)); err != nil {
		return "", err
	}
	return normalize.PadHex(word, 64), nil
}

// GetGasPrice gas price
func (l *RPCLedger) GetGasPrice(ctx context.Context) (*big.Int, error) {
	var price string
	if err := l.call(ctx, &price, "getGasPrice"); err != nil {
		return nil, err
	}
	v, ok := normalize.ParseBig(price)
	if !ok {
		return nil, errors.Wrapf(types.ErrInvalidParam, "gas price %s", price)
	}
	return v, nil
}

// EstimateGas estimate gas
func (l *RPCLedger) EstimateGas(ctx context.Context, args *types.CallArgs) (uint64, error) {
	var gas string
	if err := l.call(ctx, &gas, "estimateGas", args); err != nil {
		return 0, err
	}
	return normalize.ParseUint64(normalize.Hex(gas))
}

// Call 只读调用, 返回 evm 输出
func (l *RPCLedger) Call(ctx context.Context, args *types.CallArgs) ([]byte, error) {
	var out string
	if err := l.call(ctx, &out, "call", args); err != nil {
		return nil, err
	}
	return normalize.Bytes(out), nil
}

// SubmitRaw 提交已签名交易
func (l *RPCLedger) SubmitRaw(ctx context.Context, rawTx []byte) (*types.ExecutionResult, error) {
	var res types.ExecutionResult
	if err := l.call(ctx, &res, "submitRaw", hexutil.Encode(rawTx)); err != nil {
		return nil, err
	}
	return &res, nil
}

// SendTransaction 由账本签名并提交
func (l *RPCLedger) SendTransaction(ctx context.Context, args *types.CallArgs) (*types.ExecutionResult, error) {
	var res types.ExecutionResult
	if err := l.call(ctx, &res, "sendTransaction", args); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetChainHeadBlockNumber 账本最新区块
func (l *RPCLedger) GetChainHeadBlockNumber(ctx context.Context) (uint64, error) {
	var head uint64
	err := l.call(ctx, &head, "getHeadBlockNumber")
	return head, err
}

// GetChainID chain id
func (l *RPCLedger) GetChainID(ctx context.Context) (uint64, error) {
	var id uint64
	err := l.call(ctx, &id, "getChainId")
	return id, err
}

// GetChainName chain name
func (l *RPCLedger) GetChainName(ctx context.Context) (string, error) {
	var name string
	err := l.call(ctx, &name, "getChainName")
	return name, err
}
