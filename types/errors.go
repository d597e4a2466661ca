// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import "errors"

// errors
var (
	ErrNotFound        = errors.New("ErrNotFound")
	ErrInvalidConfig   = errors.New("ErrInvalidConfig")
	ErrInvalidParam    = errors.New("ErrInvalidParam")
	ErrBlockHashRange  = errors.New("blockHash cannot be combined with fromBlock/toBlock")
	ErrLedgerNoReceipt = errors.New("ErrLedgerNoReceipt")
)

// TransactionError evm 执行失败, Data 为未解码的原始输出
type TransactionError struct {
	Message string
	Data    string
}

func (e *TransactionError) Error() string {
	return e.Message
}

// NewTransactionError new TransactionError
func NewTransactionError(msg, data string) *TransactionError {
	return &TransactionError{Message: msg, Data: data}
}
