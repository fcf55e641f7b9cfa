// Package feature 把客户的原始购买流水变换为定宽数值特征向量。
// 向量形状（长度与字段顺序）由 Builder 的 Schema 固定，是下游预测能力
// 依赖的契约：历史长短不同的客户产出完全相同形状的向量。
package feature

import (
	"context"
	"math"
	"time"

	"github.com/vibeylab/trendkit/core"
)

// 基础特征名，顺序即向量前缀的字段顺序。
var baseFeatureNames = []string{
	"event_count",                   // 购买次数
	"recency_days",                  // 距最近一次购买的天数
	"interval_mean_days",            // 相邻购买间隔均值
	"interval_var_days",             // 相邻购买间隔方差
	"interval_last_days",            // 最近一次间隔
	"category_repeat_ratio",         // 重复品类购买占比
	"category_transition_diversity", // 相邻品类转移的多样性
	"price_mean",                    // 价格均值
	"price_var",                     // 价格方差
	"price_last_delta",              // 最近一次价格变化
	"brand_loyalty",                 // 重复品牌购买占比
}

// Builder 是特征构建器。
// 向量布局：基础特征（baseFeatureNames 顺序）→ 品类 one-hot 块 → 画像特征块。
type Builder struct {
	encoder *CategoryEncoder
	profile ProfileLoader
	now     func() time.Time

	// recencySentinelDays 是空历史时 recency_days 的哨兵值（“从未购买”）
	recencySentinelDays float64

	names []string // Schema 缓存，构造时固定
}

// BuilderOption Builder 配置选项。
type BuilderOption func(*Builder)

// WithCategories 设置合法品类集合（one-hot 维度）；未命中的品类落入 Other 桶。
func WithCategories(categories []string) BuilderOption {
	return func(b *Builder) { b.encoder = NewCategoryEncoder(categories) }
}

// WithProfileLoader 挂载远程画像特征加载器（可选）。
// 加载失败不会让构建失败：对应维度退化为零值，保证向量形状不变。
func WithProfileLoader(loader ProfileLoader) BuilderOption {
	return func(b *Builder) { b.profile = loader }
}

// WithNow 注入时钟，测试用。
func WithNow(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// WithRecencySentinel 设置空历史的 recency 哨兵值（天）。
func WithRecencySentinel(days float64) BuilderOption {
	return func(b *Builder) { b.recencySentinelDays = days }
}

// NewBuilder 创建特征构建器。
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		now:                 time.Now,
		recencySentinelDays: defaultRecencySentinelDays,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.encoder == nil {
		b.encoder = NewCategoryEncoder(nil)
	}

	b.names = append(b.names, baseFeatureNames...)
	b.names = append(b.names, b.encoder.Names()...)
	if b.profile != nil {
		for _, n := range b.profile.Names() {
			b.names = append(b.names, "profile_"+n)
		}
	}
	return b
}

// Schema 返回向量的字段名序列；对同一个 Builder 永远不变。
func (b *Builder) Schema() []string {
	return append([]string(nil), b.names...)
}

// Build 把一个客户的时间序购买流水变换为特征向量。
//
// 输入约束（违反返回 INVALID_INPUT）：
//   - events 必须按时间非递减排列（排序是调用方责任）
//   - 价格不得为负
//
// 0 或 1 条流水不是错误：时间/价格统计退化为文档化的默认值（见 fallback.go）。
func (b *Builder) Build(ctx context.Context, customerID string, events []*core.PurchaseEvent) (*core.FeatureVector, error) {
	if err := validateEvents(events); err != nil {
		return nil, err
	}

	values := make([]float64, 0, len(b.names))
	values = append(values, b.baseValues(events)...)

	lastCategory := ""
	if len(events) > 0 {
		lastCategory = events[len(events)-1].Category
	}
	values = append(values, b.encoder.Encode(lastCategory)...)

	if b.profile != nil {
		values = append(values, b.profileValues(ctx, customerID)...)
	}

	return &core.FeatureVector{
		CustomerID: customerID,
		Names:      b.Schema(),
		Values:     values,
	}, nil
}

func (b *Builder) baseValues(events []*core.PurchaseEvent) []float64 {
	n := len(events)
	if n == 0 {
		return emptyHistoryValues(b.recencySentinelDays)
	}

	recency := b.now().Sub(events[n-1].Timestamp).Hours() / 24

	// 时间间隔统计；单事件历史没有间隔，全部取默认值
	var intervalMean, intervalVar, intervalLast float64
	if n >= 2 {
		intervals := make([]float64, 0, n-1)
		for i := 1; i < n; i++ {
			intervals = append(intervals, events[i].Timestamp.Sub(events[i-1].Timestamp).Hours()/24)
		}
		intervalMean, intervalVar = meanVariance(intervals)
		intervalLast = intervals[len(intervals)-1]
	}

	// 品类特征
	seen := make(map[string]int, n)
	repeats := 0
	for _, e := range events {
		if seen[e.Category] > 0 {
			repeats++
		}
		seen[e.Category]++
	}
	repeatRatio := float64(repeats) / float64(n)

	transitionDiversity := 0.0
	if n >= 2 {
		transitions := make(map[[2]string]struct{}, n-1)
		for i := 1; i < n; i++ {
			transitions[[2]string{events[i-1].Category, events[i].Category}] = struct{}{}
		}
		transitionDiversity = float64(len(transitions)) / float64(n-1)
	}

	// 价格特征
	prices := make([]float64, n)
	for i, e := range events {
		prices[i] = e.Price
	}
	priceMean, priceVar := meanVariance(prices)
	priceLastDelta := 0.0
	if n >= 2 {
		priceLastDelta = prices[n-1] - prices[n-2]
	}

	// 品牌忠诚度：重复品牌购买占比
	brands := make(map[string]int, n)
	brandRepeats := 0
	for _, e := range events {
		if brands[e.Brand] > 0 {
			brandRepeats++
		}
		brands[e.Brand]++
	}
	brandLoyalty := float64(brandRepeats) / float64(n)

	return []float64{
		float64(n),
		recency,
		intervalMean,
		intervalVar,
		intervalLast,
		repeatRatio,
		transitionDiversity,
		priceMean,
		priceVar,
		priceLastDelta,
		brandLoyalty,
	}
}

func (b *Builder) profileValues(ctx context.Context, customerID string) []float64 {
	names := b.profile.Names()
	values := make([]float64, len(names))

	loaded, err := b.profile.Load(ctx, customerID)
	if err != nil {
		// 画像服务不可用只影响增益特征，维度保持、取零值
		return values
	}
	for i, n := range names {
		if v, ok := loaded[n]; ok && !math.IsNaN(v) {
			values[i] = v
		}
	}
	return values
}

func validateEvents(events []*core.PurchaseEvent) error {
	for i, e := range events {
		if e == nil {
			return core.NewError("feature", core.CodeInvalidInput, "nil purchase event")
		}
		if e.Price < 0 {
			return core.NewError("feature", core.CodeInvalidInput, "negative price in purchase history")
		}
		if i > 0 && e.Timestamp.Before(events[i-1].Timestamp) {
			return core.NewError("feature", core.CodeInvalidInput, "purchase events not sorted by timestamp")
		}
	}
	return nil
}

// meanVariance 返回总体均值与方差。
func meanVariance(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return mean, sq / float64(len(xs))
}
