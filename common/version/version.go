// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package version 网关版本信息
package version

// 编译时通过 -ldflags "-X" 覆盖
var (
	version   = "1.0.0"
	GitCommit string
)

// GetVersion 版本号, 带上 git commit
func GetVersion() string {
	if GitCommit != "" {
		return version + "-" + GitCommit
	}
	return version
}

// ClientVersion web3_clientVersion 的返回值
func ClientVersion(name string) string {
	if name == "" {
		name = "evmgateway"
	}
	return name + "/v" + GetVersion()
}
