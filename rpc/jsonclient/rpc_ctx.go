// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsonclient

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/33cn/evmgateway/common/evmerr"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// RpcCtx 一次命令行 rpc 调用: 发送请求, 按需转换结果后输出
type RpcCtx struct {
	Addr   string
	Method string
	Params []interface{}
	Res    interface{}
	// 输出位置, 默认 os.Stdout; 错误写到 os.Stderr
	Out io.Writer
	cb  Callback
}

// Callback 对结果做转换
type Callback func(res interface{}) (interface{}, error)

// NewRpcCtx produce a object of rpcctx
func NewRpcCtx(laddr, method string, params []interface{}, res interface{}) *RpcCtx {
	return &RpcCtx{
		Addr:   laddr,
		Method: method,
		Params: params,
		Res:    res,
		Out:    os.Stdout,
	}
}

// SetResultCb rpcctx callback
func (c *RpcCtx) SetResultCb(cb Callback) {
	c.cb = cb
}

// RunResult 调用并返回转换后的结果
func (c *RpcCtx) RunResult() (interface{}, error) {
	client, err := NewJSONClient(c.Addr)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.Call(c.Method, c.Params, c.Res); err != nil {
		return nil, err
	}
	if c.cb == nil {
		return c.Res, nil
	}
	return c.cb(c.Res)
}

// Run 结果以缩进的 json 输出, 错误带上 jsonrpc 错误码与解码后的 revert 原因
func (c *RpcCtx) Run() {
	result, err := c.RunResult()
	if err != nil {
		fmt.Fprintln(os.Stderr, FormatError(err))
		return
	}
	data, err := json.MarshalIndent(result, "", "    ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Fprintln(c.Out, string(data))
}

// FormatError jsonrpc 错误格式化为 "code: message", data 为 revert 输出时附上原因
func FormatError(err error) string {
	rerr, ok := err.(rpc.Error)
	if !ok {
		return err.Error()
	}
	msg := fmt.Sprintf("%d: %s", rerr.ErrorCode(), rerr.Error())
	derr, ok := err.(rpc.DataError)
	if !ok || derr.ErrorData() == nil {
		return msg
	}
	data, ok := derr.ErrorData().(string)
	if !ok {
		raw, _ := json.Marshal(derr.ErrorData())
		return msg + " data: " + string(raw)
	}
	if decoded := evmerr.FromOutput(data); decoded != nil && decoded.Error() != rerr.Error() {
		return msg + " (" + decoded.Error() + ")"
	}
	return msg + " data: " + data
}

// QuantityResult 把十六进制数量结果(如 eth_blockNumber)转换为十进制
func QuantityResult(res interface{}) (interface{}, error) {
	var s string
	switch v := res.(type) {
	case *string:
		s = *v
	case string:
		s = v
	case *interface{}:
		str, ok := (*v).(string)
		if !ok {
			return res, nil
		}
		s = str
	default:
		return res, nil
	}
	n, err := hexutil.DecodeBig(s)
	if err != nil {
		return nil, err
	}
	return n.String(), nil
}
