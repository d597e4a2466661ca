// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package types jsonrpc 2.0 的请求、响应与错误定义
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Version jsonrpc 版本
const Version = "2.0"

// 错误码
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	// CodeLimitExceeded 查询结果超过上限
	CodeLimitExceeded = -32005
	// CodeTransactionError evm 执行失败的默认错误码, 可配置
	CodeTransactionError = 3
)

// Error jsonrpc error 对象
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// NewError new error
func NewError(code int, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// ErrParse 请求体不是合法的 json
func ErrParse(msg string) *Error { return NewError(CodeParseError, "Parse error: "+msg) }

// ErrInvalidRequest 不合法的请求对象
func ErrInvalidRequest(msg string) *Error { return NewError(CodeInvalidRequest, "Invalid request: "+msg) }

// ErrMethodNotFound 方法不存在
func ErrMethodNotFound(method string) *Error {
	return NewError(CodeMethodNotFound, "Method not found: "+method)
}

// ErrInvalidParams 参数错误
func ErrInvalidParams(err error) *Error { return NewError(CodeInvalidParams, "Invalid params: "+err.Error()) }

// ErrLimitExceeded 查询结果超过上限
func ErrLimitExceeded(limit int) *Error {
	return NewError(CodeLimitExceeded, fmt.Sprintf("query returned more than %d results", limit))
}

// ErrInternal 未分类的内部错误
func ErrInternal(msg string) *Error { return NewError(CodeInternalError, msg) }

// Request jsonrpc 请求, JSONRPC 为 nil 表示没有该字段
type Request struct {
	JSONRPC *string         `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// HasVersion 请求中是否显式带有 jsonrpc 字段, 空串也算
func (r *Request) HasVersion() bool {
	return r.JSONRPC != nil
}

// CheckVersion 缺省时视为 2.0, 显式给出时必须为 2.0
func (r *Request) CheckVersion() *Error {
	if r.HasVersion() && *r.JSONRPC != Version {
		return ErrInvalidRequest(fmt.Sprintf("unsupported jsonrpc version %q", *r.JSONRPC))
	}
	return nil
}

// PositionalParams 把 params 解析为位置参数, 缺省或 null 视为空
func (r *Request) PositionalParams() ([]json.RawMessage, error) {
	raw := bytes.TrimSpace(r.Params)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] != '[' {
		return nil, fmt.Errorf("params must be an array")
	}
	var params []json.RawMessage
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return params, nil
}

// Response jsonrpc 响应, Error 非空时不输出 result
type Response struct {
	JSONRPC string
	ID      json.RawMessage
	Result  json.RawMessage
	Error   *Error
}

// NewErrorResponse new error response
func NewErrorResponse(id json.RawMessage, err *Error) *Response {
	return &Response{JSONRPC: Version, ID: id, Error: err}
}

var null = json.RawMessage("null")

// MarshalJSON result 与 error 二选一, 空 id 输出为 null
func (r *Response) MarshalJSON() ([]byte, error) {
	id := r.ID
	if len(id) == 0 {
		id = null
	}
	if r.Error != nil {
		return json.Marshal(struct {
			JSONRPC string          `json:"jsonrpc"`
			ID      json.RawMessage `json:"id"`
			Error   *Error          `json:"error"`
		}{r.JSONRPC, id, r.Error})
	}
	result := r.Result
	if len(result) == 0 {
		result = null
	}
	return json.Marshal(struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  json.RawMessage `json:"result"`
	}{r.JSONRPC, id, result})
}

// UnmarshalJSON 客户端解析响应
func (r *Response) UnmarshalJSON(data []byte) error {
	var v struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  json.RawMessage `json:"result"`
		Error   *Error          `json:"error"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	r.JSONRPC, r.ID, r.Result, r.Error = v.JSONRPC, v.ID, v.Result, v.Error
	return nil
}
