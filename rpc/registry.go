// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"encoding/json"
	"sort"

	rpctypes "github.com/33cn/evmgateway/rpc/types"
	"github.com/pkg/errors"
)

// errors
var (
	ErrDuplicateMethod = errors.New("ErrDuplicateMethod")
	ErrInvalidMethod   = errors.New("ErrInvalidMethod")
)

// Handler 处理一次调用, 参数为位置参数
type Handler func(ctx context.Context, params []json.RawMessage) (interface{}, error)

// Method 注册的 rpc 方法
type Method struct {
	Name string
	// 结果只依赖参数与链上已确定的状态, 可以缓存
	Cacheable bool
	Handler   Handler
}

// Typed 把带类型参数的处理函数转换为 Handler, 参数解析失败返回 InvalidParams
func Typed[P any, PP interface {
	*P
	rpctypes.Params
}, R any](fn func(ctx context.Context, params PP) (R, error)) Handler {
	return func(ctx context.Context, raw []json.RawMessage) (interface{}, error) {
		params := PP(new(P))
		if err := params.DecodeParams(raw); err != nil {
			return nil, rpctypes.ErrInvalidParams(err)
		}
		return fn(ctx, params)
	}
}

// Registry 方法表, 创建后只读
type Registry struct {
	methods map[string]*Method
}

// NewRegistry 方法名重复时返回错误
func NewRegistry(methods ...[]*Method) (*Registry, error) {
	r := &Registry{methods: make(map[string]*Method)}
	for _, list := range methods {
		for _, m := range list {
			if m == nil || m.Name == "" || m.Handler == nil {
				return nil, ErrInvalidMethod
			}
			if _, ok := r.methods[m.Name]; ok {
				return nil, errors.Wrap(ErrDuplicateMethod, m.Name)
			}
			r.methods[m.Name] = m
		}
	}
	return r, nil
}

// Lookup 查找方法
func (r *Registry) Lookup(name string) (*Method, bool) {
	m, ok := r.methods[name]
	return m, ok
}

// Names 所有方法名, 按字典序
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
