package core

import (
	"context"
	"errors"
)

// ErrStoreNotFound 表示 key 不存在（或已过期）。
var ErrStoreNotFound = errors.New("store: key not found")

// Store 是存储的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store 包）实现
//   - 领域层不依赖任何具体存储后端
//
// 使用场景：
//   - 趋势描述缓存（按批次指纹 + TTL）
//   - 客户画像特征缓存
//
// 实现：
//   - store.MemoryStore（测试/开发）
//   - store.RedisStore（生产）
type Store interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// Get 读取单个 key 的值；不存在返回 ErrStoreNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value；ttl 为秒，省略或 <=0 表示不过期
	Set(ctx context.Context, key string, value []byte, ttl ...int) error

	// Delete 删除单个 key
	Delete(ctx context.Context, key string) error

	// BatchGet 批量读取；缺失的 key 不出现在结果 map 中
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)

	// Close 关闭连接/释放资源
	Close() error
}
