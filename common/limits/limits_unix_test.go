// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !windows && !plan9
// +build !windows,!plan9

package limits

import (
	"syscall"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWant(t *testing.T) {
	assert.Equal(t, uint64(fileLimitMin), Want(0))
	assert.Equal(t, uint64(fileLimitMin), Want(-1))
	assert.Equal(t, uint64(fileLimitMin), Want(500))
	assert.Equal(t, uint64(2000+fileReserve), Want(2000))
}

func TestSetLimits(t *testing.T) {
	var before syscall.Rlimit
	require.Nil(t, syscall.Getrlimit(syscall.RLIMIT_NOFILE, &before))

	cur, err := SetLimits(1000)
	if before.Max < fileLimitMin {
		assert.Equal(t, ErrFileLimit, errors.Cause(err))
		return
	}
	require.Nil(t, err)
	assert.True(t, cur >= fileLimitMin)
	assert.True(t, cur <= before.Max)

	var after syscall.Rlimit
	require.Nil(t, syscall.Getrlimit(syscall.RLIMIT_NOFILE, &after))
	assert.Equal(t, cur, after.Cur)

	//已经足够时不降低
	again, err := SetLimits(0)
	require.Nil(t, err)
	assert.Equal(t, cur, again)
}
