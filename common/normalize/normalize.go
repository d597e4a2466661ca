// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package normalize 地址、哈希与数值的统一格式化
//
// 重构区块与日志过滤共用这里的规则, 两边比较地址和topic时必须得到相同的结果。
package normalize

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Strip0x 去掉 0x/0X 前缀
func Strip0x(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// StripZeros 去掉前缀以及左侧所有的 '0' 字符, 全零返回 "0"
func StripZeros(s string) string {
	s = strings.TrimLeft(Strip0x(s), "0")
	if s == "" {
		return "0"
	}
	return s
}

// Key 比较用的规范形式: 小写, 无前缀, 无前导零
func Key(s string) string {
	return strings.ToLower(StripZeros(s))
}

// HashKey 哈希的索引形式: 小写, 无前缀, 保留前导零
func HashKey(s string) string {
	return strings.ToLower(Strip0x(strings.TrimSpace(s)))
}

// PadHex 左侧补零到 width 个十六进制字符并加上 0x 前缀, 超长时保留右侧
func PadHex(s string, width int) string {
	s = Strip0x(s)
	if len(s) > width {
		s = s[len(s)-width:]
	}
	return "0x" + strings.Repeat("0", width-len(s)) + strings.ToLower(s)
}

// Hash 转换为 32 字节哈希
func Hash(s string) common.Hash {
	return common.HexToHash(PadHex(s, 2*common.HashLength))
}

// Address 转换为 20 字节地址, 超长时取最后 20 字节
func Address(s string) common.Address {
	return common.HexToAddress(PadHex(s, 2*common.AddressLength))
}

// OptionalAddress 空字符串返回 nil
func OptionalAddress(s string) *common.Address {
	if strings.TrimSpace(Strip0x(s)) == "" {
		return nil
	}
	addr := Address(s)
	return &addr
}

// Checksum EIP-55 大小写校验格式
func Checksum(s string) string {
	return Address(s).Hex()
}

// Bytes 十六进制转字节, 奇数长度左侧补零
func Bytes(s string) hexutil.Bytes {
	return common.FromHex(s)
}

// Hex 统一为小写带前缀的十六进制, 空值为 "0x"
func Hex(s string) string {
	return "0x" + strings.ToLower(Strip0x(s))
}

// Big 解析 0x 前缀的十六进制或十进制数值, 非法输入返回 0
func Big(s string) *big.Int {
	v, ok := ParseBig(s)
	if !ok {
		return new(big.Int)
	}
	return v
}

// ParseBig 解析 0x 前缀的十六进制或十进制数值
func ParseBig(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), true
	}
	base := 10
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s, base = s[2:], 16
		if s == "" {
			return new(big.Int), true
		}
	}
	return new(big.Int).SetString(s, base)
}

// ParseUint64 解析 0x 前缀的十六进制或十进制数值
func ParseUint64(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// Quantity 数值型字段的十六进制表示
func Quantity(v uint64) string {
	return hexutil.EncodeUint64(v)
}
