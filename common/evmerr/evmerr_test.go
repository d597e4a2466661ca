// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evmerr

import (
	"strings"
	"testing"

	"github.com/33cn/evmgateway/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Error("execution failed")
const executionFailed = "0x08c379a0" +
	"0000000000000000000000000000000000000000000000000000000000000020" +
	"0000000000000000000000000000000000000000000000000000000000000010" +
	"657865637574696f6e206661696c656400000000000000000000000000000000"

func TestDecodeRevert(t *testing.T) {
	assert.Equal(t, "execution failed", DecodeRevert(executionFailed))
	//没有0x前缀
	assert.Equal(t, "execution failed", DecodeRevert(executionFailed[2:]))
	//少于138个字符
	assert.Equal(t, "", DecodeRevert(executionFailed[:137]))
	assert.Equal(t, "", DecodeRevert("0x08c379a0"))
	//长度字非法时去掉尾部补齐的零
	broken := executionFailed[:74] + strings.Repeat("f", 64) + executionFailed[138:]
	assert.Equal(t, "execution failed", DecodeRevert(broken))
}

func TestDecodePanic(t *testing.T) {
	overflow := "0x4e487b71" + strings.Repeat("0", 62) + "11"
	assert.Equal(t, panicReasons[0x11], DecodePanic(overflow))
	assert.Contains(t, DecodePanic(overflow), "overflow")
	assert.Equal(t, UnknownPanic, DecodePanic("0x4e487b71"+strings.Repeat("0", 62)+"99"))
	assert.Equal(t, UnknownPanic, DecodePanic(""))
	assert.Equal(t, UnknownPanic, DecodePanic("0xzz"))
	for code := range panicReasons {
		payload := "0x4e487b71" + strings.Repeat("0", 62) + hexutil.Encode([]byte{code})[2:]
		assert.Equal(t, panicReasons[code], DecodePanic(payload))
	}
}

func TestDecodeOutput(t *testing.T) {
	msg, ok := DecodeOutput(executionFailed)
	assert.True(t, ok)
	assert.Equal(t, "execution failed", msg)

	msg, ok = DecodeOutput("0x4E487B71" + strings.Repeat("0", 62) + "12")
	assert.True(t, ok)
	assert.Equal(t, panicReasons[0x12], msg)

	_, ok = DecodeOutput("0xdeadbeef")
	assert.False(t, ok)

	terr := FromOutput(executionFailed)
	assert.Equal(t, "execution reverted: execution failed", terr.Message)
	assert.Equal(t, executionFailed, terr.Data)
	assert.Equal(t, "execution reverted", FromOutput("0xdeadbeef").Message)
}

func TestParseConsoleReceipt(t *testing.T) {
	raw := []byte{0xf8, 0x6b, 0x01}
	console := `contract log... RECEIPT_LOG_START{"status":1,"output":"","gasused":"5208"}RECEIPT_LOG_END trailing`
	hash, err := ParseConsoleReceipt(console, raw)
	require.Nil(t, err)
	assert.Equal(t, hexutil.Encode(crypto.Keccak256(raw)), hash)

	console = `RECEIPT_LOG_START {"status":0,"output":"` + executionFailed + `"} RECEIPT_LOG_END`
	_, err = ParseConsoleReceipt(console, raw)
	require.NotNil(t, err)
	terr, ok := err.(*types.TransactionError)
	require.True(t, ok)
	assert.Equal(t, "execution reverted: execution failed", terr.Message)
	assert.Equal(t, executionFailed, terr.Data)

	console = `RECEIPT_LOG_START{"status":0,"errors":["insufficient funds"]}RECEIPT_LOG_END`
	_, err = ParseConsoleReceipt(console, raw)
	assert.Equal(t, "insufficient funds", err.Error())

	_, err = ParseConsoleReceipt("no markers here", raw)
	assert.Equal(t, ErrNoReceipt, err)
	_, err = ParseConsoleReceipt("RECEIPT_LOG_START{bad json}RECEIPT_LOG_END", raw)
	assert.NotNil(t, err)
}

func TestStripAssertion(t *testing.T) {
	msg, ok := StripAssertion("assertion failure with message: incorrect nonce")
	assert.True(t, ok)
	assert.Equal(t, "incorrect nonce", msg)
	msg, ok = StripAssertion("other failure")
	assert.False(t, ok)
	assert.Equal(t, "other failure", msg)
}
