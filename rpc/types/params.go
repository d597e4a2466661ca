// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Params 方法参数, 在边界处完成位置参数的解析与校验
type Params interface {
	DecodeParams(raw []json.RawMessage) error
}

// NoParams 无参数的方法
type NoParams struct{}

// DecodeParams 多余的参数被忽略
func (p *NoParams) DecodeParams(raw []json.RawMessage) error {
	return nil
}

// CheckLen 校验参数个数
func CheckLen(raw []json.RawMessage, min, max int) error {
	if len(raw) < min {
		return errors.Errorf("missing value for required argument %d", len(raw))
	}
	if max >= 0 && len(raw) > max {
		return errors.Errorf("too many arguments, want at most %d", max)
	}
	return nil
}

// Required 解析第 i 个必填参数
func Required(raw []json.RawMessage, i int, v interface{}) error {
	if i >= len(raw) || isNull(raw[i]) {
		return errors.Errorf("missing value for required argument %d", i)
	}
	return errors.Wrapf(json.Unmarshal(raw[i], v), "invalid argument %d", i)
}

// Optional 解析第 i 个可选参数, 缺省或 null 时返回 false
func Optional(raw []json.RawMessage, i int, v interface{}) (bool, error) {
	if i >= len(raw) || isNull(raw[i]) {
		return false, nil
	}
	if err := json.Unmarshal(raw[i], v); err != nil {
		return false, errors.Wrapf(err, "invalid argument %d", i)
	}
	return true, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
