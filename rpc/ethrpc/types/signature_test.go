// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"errors"
	"testing"

	ctypes "github.com/33cn/evmgateway/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSig65 = "0xfbf8d4a3728b44b677f6f7e7f59673faaa4141e01072f43b8bc5faa6b92ffa195a2b3c47110f15ad7bebfa25d60a31de190ff49276cce148f70c1bcacec45c6d01"
	testSigR  = "0xfbf8d4a3728b44b677f6f7e7f59673faaa4141e01072f43b8bc5faa6b92ffa19"
	testSigS  = "0x5a2b3c47110f15ad7bebfa25d60a31de190ff49276cce148f70c1bcacec45c6d"
	testDER   = "0x3045022100af5778b81ae8817c6ae29fad8c1113d501e521c885a65c2c4d71763c4963984b022020687b73f5c90243dc16c99427d6593a711c52c8bf09ca6331cdd42c66edee74"
)

func TestGetVRSLegacy(t *testing.T) {
	r := &ctypes.Receipt{Hash: "0x01", V: "0x1B", R: "0xAB", S: "0xcd"}
	vrs, err := GetVRS(r, func(string) (string, error) {
		t.Fatal("lookup should not be called")
		return "", nil
	})
	require.Nil(t, err)
	assert.Equal(t, &VRS{V: "0x1b", R: "0xab", S: "0xcd"}, vrs)
}

func TestGetVRSSerialized(t *testing.T) {
	vrs, err := GetVRS(&ctypes.Receipt{Hash: "0x01", Signature: testSig65}, nil)
	require.Nil(t, err)
	assert.Equal(t, testSigR, vrs.R)
	assert.Equal(t, testSigS, vrs.S)
	assert.Equal(t, 66, len(vrs.V))
	assert.Equal(t, "1c", vrs.V[len(vrs.V)-2:])
	assert.Equal(t, "0x", vrs.V[:2])

	vrs, err = GetVRS(&ctypes.Receipt{Hash: "0x01", Signature: testDER}, nil)
	require.Nil(t, err)
	assert.Equal(t, "0xaf5778b81ae8817c6ae29fad8c1113d501e521c885a65c2c4d71763c4963984b", vrs.R)
	assert.Equal(t, "0x20687b73f5c90243dc16c99427d6593a711c52c8bf09ca6331cdd42c66edee74", vrs.S)
	assert.Equal(t, "1b", vrs.V[len(vrs.V)-2:])
}

func TestGetVRSLookup(t *testing.T) {
	calls := 0
	lookup := func(hash string) (string, error) {
		calls++
		assert.Equal(t, "0x02", hash)
		return testSig65, nil
	}
	vrs, err := GetVRS(&ctypes.Receipt{Hash: "0x02"}, lookup)
	require.Nil(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, testSigR, vrs.R)

	//签名集合中也没有
	vrs, err = GetVRS(&ctypes.Receipt{Hash: "0x03"}, func(string) (string, error) { return "", ctypes.ErrNotFound })
	require.Nil(t, err)
	assert.Equal(t, "0x0", vrs.R)
	assert.Equal(t, common.Hash{}.Hex(), vrs.V)

	_, err = GetVRS(&ctypes.Receipt{Hash: "0x03"}, func(string) (string, error) { return "", errors.New("backend down") })
	assert.NotNil(t, err)
}

func TestDecodeSignature(t *testing.T) {
	compact := make([]byte, 64)
	compact[0] = 0x11
	compact[32] = 0x80 | 0x22
	r, s, v, err := DecodeSignature(compact)
	require.Nil(t, err)
	assert.Equal(t, byte(28), v)
	assert.Equal(t, byte(0x11), r[0])
	assert.Equal(t, byte(0x22), s[0])
	//不修改输入
	assert.Equal(t, byte(0xa2), compact[32])

	_, _, _, err = DecodeSignature([]byte{0x30, 0x01})
	assert.NotNil(t, err)
	_, _, _, err = DecodeSignature([]byte{0x30, 0x06, 0x02, 0x10, 0x01, 0x02, 0x02, 0x01})
	assert.NotNil(t, err)
	_, _, _, err = DecodeSignature(make([]byte, 70))
	assert.NotNil(t, err)
}
