package core

import "context"

// Store 是外部存储的领域接口，定义在 core，由 store 包实现（MemoryStore / RedisStore）。
//
// 推荐引擎本身只在内存快照上计算；Store 只用于把热度统计导出给
// 外部图表协作方，以及供 recall.Hot 读取热门列表。
type Store interface {
	// Name 返回存储后端名称（用于日志）
	Name() string

	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value，ttl 单位为秒
	Set(ctx context.Context, key string, value []byte, ttl ...int) error

	Delete(ctx context.Context, key string) error

	Close() error
}

// KeyValueStore 是 Store 的扩展接口，支持有序集合与哈希表。

type KeyValueStore interface {
	Store

	// ZAdd 向有序集合添加成员
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZRange 按分数降序获取有序集合成员（start/stop 为闭区间下标）
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// ZScore 获取成员的分数
	ZScore(ctx context.Context, key string, member string) (float64, error)

	// HSet 写入 Hash 字段
	HSet(ctx context.Context, key, field string, value []byte) error

	// HGetAll 读取整个 Hash
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)
}

// ErrStoreNotFound 表示 key 不存在
var ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

// IsStoreNotFound 检查错误是否为 key 不存在
func IsStoreNotFound(err error) bool {
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Module == ModuleStore && domainErr.Code == ErrorCodeNotFound
}
