// Package store 提供 core.KeyValueStore 的实现：MemoryStore（测试/单机）与 RedisStore（生产）。
//
// 接口定义在 core 包：
//
//	var kv core.KeyValueStore = store.NewMemoryStore()
package store

import (
	"context"
	"fmt"

	"github.com/rushteam/playrec/core"
)

// Open 按地址选择后端：addr 为空时返回 MemoryStore，否则连接 Redis。
func Open(ctx context.Context, addr string, db int) (core.KeyValueStore, error) {
	if addr == "" {
		return NewMemoryStore(), nil
	}
	rs, err := NewRedisStore(ctx, addr, db)
	if err != nil {
		return nil, fmt.Errorf("store: connect redis %s: %w", addr, err)
	}
	return rs, nil
}
