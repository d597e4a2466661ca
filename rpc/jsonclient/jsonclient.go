// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jsonclient 命令行使用的 jsonrpc 客户端
package jsonclient

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

// DefaultTimeout 单次调用的超时
const DefaultTimeout = 30 * time.Second

// JSONClient jsonrpc 2.0 client
type JSONClient struct {
	url string
	c   *rpc.Client
}

// NewJSONClient produce a json rpc client
func NewJSONClient(url string) (*JSONClient, error) {
	c, err := rpc.DialHTTPWithClient(url, &http.Client{Timeout: DefaultTimeout})
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", url)
	}
	return &JSONClient{url: url, c: c}, nil
}

// Call 位置参数调用, 结果写入 result
func (client *JSONClient) Call(method string, params []interface{}, result interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	return client.c.CallContext(ctx, result, method, params...)
}

// Close close
func (client *JSONClient) Close() {
	client.c.Close()
}

// ParseParams 命令行中的参数, 合法的 json 原样传递, 否则作为字符串
func ParseParams(args []string) []interface{} {
	params := make([]interface{}, 0, len(args))
	for _, a := range args {
		var raw json.RawMessage
		if json.Valid([]byte(a)) {
			raw = json.RawMessage(a)
			params = append(params, raw)
			continue
		}
		params = append(params, a)
	}
	return params
}
