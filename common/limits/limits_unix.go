// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !windows && !plan9
// +build !windows,!plan9

// Package limits 按 rpc 最大连接数调整进程可打开的文件数
package limits

import (
	"syscall"

	"github.com/33cn/evmgateway/common/log"
	"github.com/pkg/errors"
)

var llog = log.New("module", "limits")

const (
	fileLimitMin = 1024
	// 索引文件, 日志文件以及到账本的连接
	fileReserve = 256
)

// ErrFileLimit 硬限制低于最低要求
var ErrFileLimit = errors.New("ErrFileLimit")

// Want 需要的文件数: 最大连接数加保留部分, 不低于 fileLimitMin
func Want(maxConnections int) uint64 {
	want := uint64(fileReserve)
	if maxConnections > 0 {
		want += uint64(maxConnections)
	}
	if want < fileLimitMin {
		want = fileLimitMin
	}
	return want
}

// SetLimits 把 RLIMIT_NOFILE 的软限制提高到 Want(maxConnections), 受硬限制约束, 返回生效的软限制
func SetLimits(maxConnections int) (uint64, error) {
	want := Want(maxConnections)
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, errors.Wrap(err, "getrlimit")
	}
	if rLimit.Cur >= want {
		llog.Debug("SetLimits", "cur", rLimit.Cur, "want", want)
		return rLimit.Cur, nil
	}
	if rLimit.Max < fileLimitMin {
		return rLimit.Cur, errors.Wrapf(ErrFileLimit, "hard limit %d, need at least %d", rLimit.Max, fileLimitMin)
	}
	old := rLimit.Cur
	rLimit.Cur = want
	if rLimit.Max < want {
		llog.Warn("SetLimits", "hard limit below rpc maxConnections", rLimit.Max, "want", want)
		rLimit.Cur = rLimit.Max
	}
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return old, errors.Wrap(err, "setrlimit")
	}
	llog.Info("SetLimits", "from", old, "to", rLimit.Cur)
	return rLimit.Cur, nil
}
