package core

import "time"

// Config 是管线的显式配置对象，由调用方构造后注入各组件，不做任何全局查找。
// 字段与配置文件里的 snake_case 键一一对应（见 pipeline 包的加载器）。
type Config struct {
	// MaxPosts 过滤排序后保留的内容条数上限
	MaxPosts int

	// MaxRetries 可重试失败的最大重试次数（不含首次调用）
	MaxRetries int

	// InitialDelay 第一次重试前的等待时间
	InitialDelay time.Duration

	// BackoffMultiplier 每次重试等待时间的几何倍率
	BackoffMultiplier float64

	// FailFast 为 true 时首个终态失败会中止尚未开始的工作（在途任务允许跑完）
	FailFast bool

	// WorkerPoolSize 并发服务调用的有界工作池大小
	WorkerPoolSize int

	// TrendCacheTTL 趋势描述缓存的有效期；0 表示不缓存
	TrendCacheTTL time.Duration
}

// DefaultConfig 返回一组生产可用的默认值。
func DefaultConfig() *Config {
	return &Config{
		MaxPosts:          50,
		MaxRetries:        3,
		InitialDelay:      time.Second,
		BackoffMultiplier: 2,
		FailFast:          false,
		WorkerPoolSize:    4,
		TrendCacheTTL:     6 * time.Hour,
	}
}
