// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mocks testify mock of client.Ledger
package mocks

import (
	"context"
	"math/big"

	"github.com/33cn/evmgateway/client"
	"github.com/33cn/evmgateway/types"
	"github.com/stretchr/testify/mock"
)

// Ledger is a mock type for the Ledger type
type Ledger struct {
	mock.Mock
}

var _ client.Ledger = (*Ledger)(nil)

// GetAccount provides a mock function with given fields: ctx, address
func (_m *Ledger) GetAccount(ctx context.Context, address string) (*client.Account, error) {
	ret := _m.Called(ctx, address)
	var r0 *client.Account
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*client.Account)
	}
	return r0, ret.Error(1)
}

// GetStorageAt provides a mock function with given fields: ctx, address, slot
func (_m *Ledger) GetStorageAt(ctx context.Context, address, slot string) (string, error) {
	ret := _m.Called(ctx, address, slot)
	return ret.String(0), ret.Error(1)
}

// GetGasPrice provides a mock function with given fields: ctx
func (_m *Ledger) GetGasPrice(ctx context.Context) (*big.Int, error) {
	ret := _m.Called(ctx)
	var r0 *big.Int
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*big.Int)
	}
	return r0, ret.Error(1)
}

// EstimateGas provides a mock function with given fields: ctx, args
func (_m *Ledger) EstimateGas(ctx context.Context, args *types.CallArgs) (uint64, error) {
	ret := _m.Called(ctx, args)
	return ret.Get(0).(uint64), ret.Error(1)
}

// Call provides a mock function with given fields: ctx, args
func (_m *Ledger) Call(ctx context.Context, args *types.CallArgs) ([]byte, error) {
	ret := _m.Called(ctx, args)
	var r0 []byte
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]byte)
	}
	return r0, ret.Error(1)
}

// SubmitRaw provides a mock function with given fields: ctx, rawTx
func (_m *Ledger) SubmitRaw(ctx context.Context, rawTx []byte) (*types.ExecutionResult, error) {
	ret := _m.Called(ctx, rawTx)
	var r0 *types.ExecutionResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*types.ExecutionResult)
	}
	return r0, ret.Error(1)
}

// SendTransaction provides a mock function with given fields: ctx, args
func (_m *Ledger) SendTransaction(ctx context.Context, args *types.CallArgs) (*types.ExecutionResult, error) {
	ret := _m.Called(ctx, args)
	var r0 *types.ExecutionResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*types.ExecutionResult)
	}
	return r0, ret.Error(1)
}

// GetChainHeadBlockNumber provides a mock function with given fields: ctx
func (_m *Ledger) GetChainHeadBlockNumber(ctx context.Context) (uint64, error) {
	ret := _m.Called(ctx)
	return ret.Get(0).(uint64), ret.Error(1)
}

// GetChainID provides a mock function with given fields: ctx
func (_m *Ledger) GetChainID(ctx context.Context) (uint64, error) {
	ret := _m.Called(ctx)
	return ret.Get(0).(uint64), ret.Error(1)
}

// GetChainName provides a mock function with given fields: ctx
func (_m *Ledger) GetChainName(ctx context.Context) (string, error) {
	ret := _m.Called(ctx)
	return ret.String(0), ret.Error(1)
}
