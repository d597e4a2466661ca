// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package evmerr 解析 evm 执行失败时返回的 abi 编码数据
package evmerr

import (
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/33cn/evmgateway/common/normalize"
	"github.com/33cn/evmgateway/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

const (
	// RevertSelector Error(string)
	RevertSelector = "08c379a0"
	// PanicSelector Panic(uint256)
	PanicSelector = "4e487b71"

	// 0x + 4字节selector + offset与length两个32字节字
	revertHeadLen = 2 + 8 + 64 + 64

	// console 中嵌入的执行收据的起止标记
	receiptStart = "RECEIPT_LOG_START"
	receiptEnd   = "RECEIPT_LOG_END"

	// AssertionPrefix 账本断言失败的消息前缀
	AssertionPrefix = "assertion failure with message: "
)

var panicReasons = map[byte]string{
	0x01: "Assert evaluates to false",
	0x11: "arithmetic operation overflowed outside of an unchecked block",
	0x12: "division or modulo by zero",
	0x21: "tried to convert a value into an enum, but the value was too big or negative",
	0x31: ".pop() was called on an empty array",
	0x32: "array index is out of bounds",
	0x41: "too much memory was allocated, or an array was created that is too large",
	0x51: "called a zero-initialized variable of internal function type",
}

// UnknownPanic 不在已知列表中的 panic code
const UnknownPanic = "unknown panic code"

// ErrNoReceipt console 中没有执行收据
var ErrNoReceipt = errors.New("ErrNoReceipt")

// DecodeRevert 解析 Error(string) 的 revert 原因, 数据不足时返回空串
func DecodeRevert(output string) string {
	output = "0x" + normalize.Strip0x(output)
	if len(output) < revertHeadLen {
		return ""
	}
	payload := output[revertHeadLen:]
	buf := make([]byte, 0, len(payload)/2)
	for i := 0; i+1 < len(payload); i += 2 {
		b, err := strconv.ParseUint(payload[i:i+2], 16, 8)
		if err != nil {
			break
		}
		buf = append(buf, byte(b))
	}
	// 长度字合法时按 abi 长度截断, 否则去掉尾部的补齐零
	if n, err := strconv.ParseUint(output[revertHeadLen-64:revertHeadLen], 16, 32); err == nil && int(n) <= len(buf) {
		buf = buf[:n]
	} else {
		buf = []byte(strings.TrimRight(string(buf), "\x00"))
	}
	if !utf8.Valid(buf) {
		return strings.ToValidUTF8(string(buf), "")
	}
	return string(buf)
}

// DecodePanic 根据最后一个字节解析 Panic(uint256)
func DecodePanic(output string) string {
	raw := normalize.Strip0x(output)
	if len(raw) < 2 {
		return UnknownPanic
	}
	code, err := hex.DecodeString(raw[len(raw)-2:])
	if err != nil {
		return UnknownPanic
	}
	if reason, ok := panicReasons[code[0]]; ok {
		return reason
	}
	return UnknownPanic
}

// DecodeOutput 根据 selector 选择解析方式, ok 表示识别出了失败数据
func DecodeOutput(output string) (msg string, ok bool) {
	raw := strings.ToLower(normalize.Strip0x(output))
	switch {
	case strings.HasPrefix(raw, RevertSelector):
		return DecodeRevert(raw), true
	case strings.HasPrefix(raw, PanicSelector):
		return DecodePanic(raw), true
	}
	return "", false
}

// FromOutput 把 evm 的失败输出转换为交易错误
func FromOutput(output string) *types.TransactionError {
	data := normalize.Hex(output)
	msg, ok := DecodeOutput(output)
	switch {
	case !ok:
		return types.NewTransactionError("execution reverted", data)
	case strings.HasPrefix(strings.ToLower(normalize.Strip0x(output)), PanicSelector):
		return types.NewTransactionError("execution reverted: panic: "+msg, data)
	case msg == "":
		return types.NewTransactionError("execution reverted", data)
	}
	return types.NewTransactionError("execution reverted: "+msg, data)
}

// ConsoleReceipt 账本 console 输出中嵌入的执行收据
type ConsoleReceipt struct {
	Status  int      `json:"status"`
	Output  string   `json:"output"`
	Errors  []string `json:"errors"`
	GasUsed string   `json:"gasused"`
}

// ExtractConsoleReceipt 取出起止标记之间的收据
func ExtractConsoleReceipt(console string) (*ConsoleReceipt, error) {
	start := strings.Index(console, receiptStart)
	if start < 0 {
		return nil, ErrNoReceipt
	}
	body := console[start+len(receiptStart):]
	end := strings.Index(body, receiptEnd)
	if end < 0 {
		return nil, ErrNoReceipt
	}
	var receipt ConsoleReceipt
	if err := json.Unmarshal([]byte(strings.TrimSpace(body[:end])), &receipt); err != nil {
		return nil, errors.Wrap(err, "decode console receipt")
	}
	return &receipt, nil
}

// ParseConsoleReceipt 解析提交交易后的执行结果
//
// status 为 0 时返回 *types.TransactionError; 成功时返回原始签名交易的 keccak256 作为交易哈希。
func ParseConsoleReceipt(console string, rawTx []byte) (string, error) {
	receipt, err := ExtractConsoleReceipt(console)
	if err != nil {
		return "", err
	}
	if receipt.Status == 0 {
		if normalize.Strip0x(receipt.Output) != "" {
			return "", FromOutput(receipt.Output)
		}
		if len(receipt.Errors) > 0 {
			return "", types.NewTransactionError(receipt.Errors[0], "")
		}
		return "", types.NewTransactionError("execution reverted", "")
	}
	return hexutil.Encode(crypto.Keccak256(rawTx)), nil
}

// StripAssertion 去掉账本断言失败的前缀, ok 表示匹配到了前缀
func StripAssertion(msg string) (string, bool) {
	i := strings.Index(msg, AssertionPrefix)
	if i < 0 {
		return msg, false
	}
	return msg[i+len(AssertionPrefix):], true
}
