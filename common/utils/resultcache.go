// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package utils

import (
	"sync"
	"time"

	farm "github.com/dgryski/go-farm"
	"github.com/golang/snappy"
	lru "github.com/hashicorp/golang-lru"
)

// ResultCache rpc 结果缓存, lru 淘汰并控制占用空间大小
//
// 缓存的都是可以重新推导的链上状态快照, 并发未命中时后写者覆盖。
type ResultCache struct {
	capacity int
	maxSize  int
	currSize int
	ttl      time.Duration
	data     *lru.Cache
	lock     sync.Mutex
	now      func() time.Time
}

type cacheEntry struct {
	value  []byte
	size   int
	expire time.Time
}

// Signature 请求签名, 由 http 方法、路径、rpc 方法以及参数组成
func Signature(parts ...string) uint64 {
	n := 0
	for _, p := range parts {
		n += len(p) + 1
	}
	buf := make([]byte, 0, n)
	for _, p := range parts {
		buf = append(buf, p...)
		buf = append(buf, 0)
	}
	return farm.Fingerprint64(buf)
}

// NewResultCache new result cache, ttl 为 0 时不过期
func NewResultCache(num, maxByteSize int, ttl time.Duration) *ResultCache {
	cache := &ResultCache{capacity: num, maxSize: maxByteSize, ttl: ttl, now: time.Now}
	var err error
	//不使用 lru 的淘汰回调, 占用大小在每个删除点自行扣减
	cache.data, err = lru.New(num)
	if err != nil {
		panic(err)
	}
	return cache
}

// 调用方持有 c.lock
func (c *ResultCache) remove(sig uint64) {
	v, ok := c.data.Peek(sig)
	if !ok {
		return
	}
	c.currSize -= v.(*cacheEntry).size
	c.data.Remove(sig)
}

// Put 缓存结果, 单个值超过最大大小时不缓存
func (c *ResultCache) Put(sig uint64, val []byte) bool {
	encoded := snappy.Encode(nil, val)
	size := len(encoded)

	c.lock.Lock()
	defer c.lock.Unlock()

	//如果存在先删除
	c.remove(sig)
	if size > c.maxSize {
		return false
	}
	c.currSize += size

	//超过最大大小, 移除最早的值
	for c.currSize > c.maxSize || c.data.Len() >= c.capacity {
		_, v, ok := c.data.RemoveOldest()
		if !ok {
			break
		}
		c.currSize -= v.(*cacheEntry).size
	}

	entry := &cacheEntry{value: encoded, size: size}
	if c.ttl > 0 {
		entry.expire = c.now().Add(c.ttl)
	}
	c.data.Add(sig, entry)
	return true
}

// Get 读取缓存, 过期的值视为未命中
func (c *ResultCache) Get(sig uint64) ([]byte, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	v, ok := c.data.Get(sig)
	if !ok {
		return nil, false
	}
	entry := v.(*cacheEntry)
	if !entry.expire.IsZero() && c.now().After(entry.expire) {
		c.remove(sig)
		return nil, false
	}
	val, err := snappy.Decode(nil, entry.value)
	if err != nil {
		c.remove(sig)
		return nil, false
	}
	return val, true
}

// Len 缓存条目数
func (c *ResultCache) Len() int {
	return c.data.Len()
}

// Size 当前占用的字节数(压缩后)
func (c *ResultCache) Size() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.currSize
}
