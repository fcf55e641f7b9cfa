// Package retry 提供统一的指数退避重试执行器（ResilientCaller）。
// 所有网络类阶段（趋势抽取、图像增强、远程预测）共用同一套重试协议，
// 只是各自注入不同的可重试判定规则。
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/vibeylab/trendkit/core"
)

// Caller 按指数退避策略执行一个可失败操作。
//
// 协议：
//   - 先执行一次；成功立即返回
//   - 失败时由 Retryable 判定：可重试则退避后重试，否则立即上抛
//   - 第 n 次（0 起）重试前等待 InitialDelay * BackoffMultiplier^n
//   - 累计 MaxRetries 次可重试失败后，返回最后一次的错误
//   - 每次 sleep 前检查 ctx，取消信号产生 CodeCancelled 错误，不再重试
//
// Caller 只挂起当前调用流，不影响其它并发任务。
type Caller struct {
	// MaxRetries 可重试失败的最大重试次数（不含首次调用）
	MaxRetries int

	// InitialDelay 第一次重试前的等待时间
	InitialDelay time.Duration

	// BackoffMultiplier 等待时间的几何倍率
	BackoffMultiplier float64

	// Jitter 为 true 时在每次退避上叠加 [0, delay/2) 的均匀随机抖动，
	// 用于避免多实例同时恢复造成的惊群。默认关闭，关闭时退避序列
	// 严格等于 InitialDelay * BackoffMultiplier^n。
	Jitter bool

	// Retryable 判定错误是否可重试；为 nil 时使用 core.IsTransient
	Retryable func(error) bool

	// sleep 可注入（测试用），默认基于 time.Timer 且响应 ctx 取消
	sleep func(ctx context.Context, d time.Duration) error
}

// Option Caller 配置选项。
type Option func(*Caller)

// WithMaxRetries 设置最大重试次数。
func WithMaxRetries(n int) Option {
	return func(c *Caller) { c.MaxRetries = n }
}

// WithInitialDelay 设置首次退避时间。
func WithInitialDelay(d time.Duration) Option {
	return func(c *Caller) { c.InitialDelay = d }
}

// WithBackoffMultiplier 设置退避倍率。
func WithBackoffMultiplier(m float64) Option {
	return func(c *Caller) { c.BackoffMultiplier = m }
}

// WithJitter 开启退避抖动。
func WithJitter() Option {
	return func(c *Caller) { c.Jitter = true }
}

// WithRetryable 设置可重试判定规则（按阶段定制）。
func WithRetryable(fn func(error) bool) Option {
	return func(c *Caller) { c.Retryable = fn }
}

// WithSleep 注入 sleep 实现，测试专用。
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Caller) { c.sleep = fn }
}

// NewCaller 创建一个 Caller，默认 3 次重试、1s 起步、2 倍退避。
func NewCaller(opts ...Option) *Caller {
	c := &Caller{
		MaxRetries:        3,
		InitialDelay:      time.Second,
		BackoffMultiplier: 2,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Retryable == nil {
		c.Retryable = core.IsTransient
	}
	if c.sleep == nil {
		c.sleep = sleepWithContext
	}
	return c
}

// NewCallerFromConfig 按管线配置构造 Caller。
func NewCallerFromConfig(cfg *core.Config, opts ...Option) *Caller {
	base := []Option{
		WithMaxRetries(cfg.MaxRetries),
		WithInitialDelay(cfg.InitialDelay),
		WithBackoffMultiplier(cfg.BackoffMultiplier),
	}
	return NewCaller(append(base, opts...)...)
}

// Execute 执行 op，按协议处理失败。stage 用于错误归因。
func (c *Caller) Execute(ctx context.Context, stage string, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return core.WrapError(stage, core.CodeCancelled, "run cancelled", err)
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !c.Retryable(lastErr) {
			return lastErr
		}
		if attempt >= c.MaxRetries {
			return lastErr
		}

		delay := c.delayFor(attempt)
		if err := c.sleep(ctx, delay); err != nil {
			return core.WrapError(stage, core.CodeCancelled, "run cancelled during backoff", err)
		}
	}
}

// Do 是 Execute 的泛型版本：执行返回值的操作。
func Do[T any](ctx context.Context, c *Caller, stage string, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := c.Execute(ctx, stage, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// delayFor 计算第 attempt 次（0 起）重试前的等待时间。
func (c *Caller) delayFor(attempt int) time.Duration {
	delay := float64(c.InitialDelay)
	for i := 0; i < attempt; i++ {
		delay *= c.BackoffMultiplier
	}
	d := time.Duration(delay)
	if c.Jitter && d > 0 {
		d += time.Duration(rand.Int63n(int64(d)/2 + 1))
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
