// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metrics

import (
	"testing"
	"time"

	"github.com/33cn/evmgateway/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	go_metrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRPCMetrics(t *testing.T) {
	s := StartMetrics(types.Metrics{Enable: true})
	assert.True(t, s.Enabled())
	m := NewRPCMetrics(s.GoMetrics())
	assert.Equal(t, 6, len(m.Metrics()))
	require.Nil(t, s.Register(m))

	m.ObserveCall("eth_chainId", time.Millisecond, 0)
	m.ObserveCall("eth_chainId", time.Millisecond, -32602)
	m.ObserveCall("eth_call", time.Millisecond, 3)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Requests.WithLabelValues("eth_chainId", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Requests.WithLabelValues("eth_chainId", "-32602")))

	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheMisses))

	m.ObserveRateLimited()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RateLimited))

	timer, ok := s.GoMetrics().Get("rpc/eth_chainId").(go_metrics.Timer)
	require.True(t, ok)
	assert.Equal(t, int64(2), timer.Count())
	meter, ok := s.GoMetrics().Get("rpc/eth_chainId/errors").(go_metrics.Meter)
	require.True(t, ok)
	assert.Equal(t, int64(1), meter.Count())

	//重复注册报错
	assert.NotNil(t, s.Register(m))
}

func TestNilRPCMetrics(t *testing.T) {
	var m *RPCMetrics
	m.ObserveCall("eth_chainId", time.Millisecond, 0)
	m.ObserveBatch(3)
	m.ObserveCache(true)
	m.ObserveRateLimited()

	s := StartMetrics(types.Metrics{})
	assert.False(t, s.Enabled())
	m = NewRPCMetrics(nil)
	m.ObserveCall("eth_chainId", time.Millisecond, 3)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Requests.WithLabelValues("eth_chainId", "3")))
}
