package pipeline

import (
	"github.com/vibeylab/trendkit/core"
	"github.com/vibeylab/trendkit/stream"
)

// State 标记一次运行所处的阶段，用于观测与结果上报。
type State string

const (
	StateCollecting         State = "collecting"          // 等待内容源
	StateFiltering          State = "filtering"           // 过滤与排序
	StateTrendAnalysis      State = "trend_analysis"      // 趋势分支
	StatePurchasePrediction State = "purchase_prediction" // 预测分支
	StateEnhancing          State = "enhancing"           // 图像增强（汇合点）
	StateDone               State = "done"                // 正常终态
	StateFailed             State = "failed"              // 失败终态，FailedStage 记录出错阶段
)

// ProductImage 是一张待增强的商品图。
type ProductImage struct {
	ImageRef string // 原图引用
	MaskRef  string // 掩膜引用（可选）
	Category string // 商品品类，拼入提示词
}

// RunInput 是一次完整运行的输入：内容流、按客户分组的购买历史、商品图。
// 购买历史必须已按时间升序排好（上游采集器的契约）。
type RunInput struct {
	Content   stream.ContentSource
	Purchases map[string][]*core.PurchaseEvent
	Images    []ProductImage
}

// CustomerResult 单个客户的预测结果或失败记录。
type CustomerResult struct {
	CustomerID string
	Prediction *core.PredictionResult // 失败时为 nil
	Err        error
}

// ImageResult 单张商品图的增强结果或失败记录。
type ImageResult struct {
	ImageRef    string // 原图引用
	EnhancedRef string // 增强后图像引用，失败时为空
	Prompt      string // 实际使用的提示词
	Err         error
}

// RunResult 一次运行的汇总：逐客户的预测结果 + 单次趋势结果 + 逐图增强结果。
// 单条坏记录或单次（重试预算内的）外部调用失败不会让整次运行崩掉。
type RunResult struct {
	State       State
	FailedStage string // State == StateFailed 时记录出错阶段

	Batch *core.FilteredBatch

	Trend    *core.TrendDescriptor
	TrendErr error // 趋势抽取终态失败时的原始错误（此时 Trend 为兜底描述）

	Customers []*CustomerResult
	Images    []*ImageResult
}

// TrendFallbackUsed 报告趋势结果是否来自兜底描述。
func (r *RunResult) TrendFallbackUsed() bool {
	return r.Trend != nil && r.Trend.FallbackUsed
}

// PredictionStats 返回预测分支的成功/失败计数。
func (r *RunResult) PredictionStats() (succeeded, failed int) {
	for _, c := range r.Customers {
		if c.Err != nil {
			failed++
		} else {
			succeeded++
		}
	}
	return succeeded, failed
}
