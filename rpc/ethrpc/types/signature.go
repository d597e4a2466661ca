// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"fmt"

	"github.com/33cn/evmgateway/common/log"
	"github.com/33cn/evmgateway/common/normalize"
	ctypes "github.com/33cn/evmgateway/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

var tlog = log.New("module", "ethrpc.types")

// SignatureLookup 查询附着在子 action 上的交易签名, 不存在时返回 ctypes.ErrNotFound
type SignatureLookup func(txHash string) (string, error)

// VRS 交易签名的三个分量, 均为 0x 前缀的十六进制
type VRS struct {
	V string
	R string
	S string
}

// GetVRS 从收据中恢复签名
//
// 旧版索引直接带有 v, r, s; 新版只有序列化的签名, 收据上也没有时再查一次签名集合。
func GetVRS(r *ctypes.Receipt, lookup SignatureLookup) (*VRS, error) {
	if r.V != "" && r.R != "" && r.S != "" {
		return &VRS{V: normalize.Hex(r.V), R: normalize.Hex(r.R), S: normalize.Hex(r.S)}, nil
	}
	sig := r.Signature
	if sig == "" && lookup != nil {
		var err error
		sig, err = lookup(r.Hash)
		if err != nil && errors.Cause(err) != ctypes.ErrNotFound {
			return nil, err
		}
	}
	if normalize.Strip0x(sig) == "" {
		tlog.Debug("GetVRS", "hash", r.Hash, "err", "no signature")
		return &VRS{V: normalize.PadHex("0", 64), R: "0x0", S: "0x0"}, nil
	}
	rb, sb, v, err := DecodeSignature(normalize.Bytes(sig))
	if err != nil {
		tlog.Error("GetVRS", "hash", r.Hash, "decode signature err", err)
		return nil, err
	}
	return &VRS{
		V: normalize.PadHex(fmt.Sprintf("%x", v), 64),
		R: hexutil.Encode(rb),
		S: hexutil.Encode(sb),
	}, nil
}

// DecodeSignature 拆分序列化的签名
//
// 支持 65 字节 r||s||v, 64 字节 EIP-2098 紧凑格式, 以及 DER 编码(此时 v 固定为 27)。
func DecodeSignature(sig []byte) (r, s []byte, v byte, err error) {
	switch len(sig) {
	case 65:
		r, s, v = sig[:32], sig[32:64], sig[64]
		if v < 27 {
			v += 27
		}
		return r, s, v, nil
	case 64:
		r = sig[:32]
		s = append([]byte(nil), sig[32:64]...)
		parity := s[0] >> 7
		s[0] &= 0x7f
		return r, s, 27 + parity, nil
	}
	rb, sb, err := paraseDERCode(sig)
	if err != nil {
		return nil, nil, 0, err
	}
	r = make([]byte, 32)
	s = make([]byte, 32)
	copy(r[32-len(rb):], rb)
	copy(s[32-len(sb):], sb)
	return r, s, 27, nil
}

func paraseDERCode(sig []byte) (r, s []byte, err error) {
	//0x30 [total-length] 0x02 [R-length] [R] 0x02 [S-length] [S]
	if len(sig) < 8 || len(sig) > 72 || sig[0] != 0x30 || sig[2] != 0x02 {
		return nil, nil, errors.Errorf("wrong sig data size:%v or not der encoded", len(sig))
	}
	rlen := int(sig[3])
	if 4+rlen+2 > len(sig) || sig[4+rlen] != 0x02 {
		return nil, nil, errors.New("wrong der r length")
	}
	slen := int(sig[5+rlen])
	if 6+rlen+slen > len(sig) {
		return nil, nil, errors.New("wrong der s length")
	}
	r = trimDERInt(sig[4 : 4+rlen])
	s = trimDERInt(sig[6+rlen : 6+rlen+slen])
	if len(r) > 32 || len(s) > 32 {
		return nil, nil, errors.New("der integer too long")
	}
	return r, s, nil
}

// der 编码的正整数最高位为1时前面补了一个0
func trimDERInt(b []byte) []byte {
	for len(b) > 1 && b[0] == 0x0 {
		b = b[1:]
	}
	return b
}
