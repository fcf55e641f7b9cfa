// Package trendkit 是一个时尚趋势增强管线工具包（Trend Kit）。
//
// 设计要点：
// - Coordinator-first: 一次运行按状态机推进（过滤 → 趋势∥预测 → 增强）
// - 显式错误分类: 只有瞬时错误会被重试，解析/输入错误立即上抛
// - 能力注入: 预测/趋势抽取/图像增强都是领域接口，实现可插拔（REST、OpenAI 协议等）
package trendkit

import "github.com/vibeylab/trendkit/pipeline"

// 轻量 facade：便于用户直接 import "trendkit" 使用核心抽象。
type Coordinator = pipeline.Coordinator
type Stages = pipeline.Stages
type RunInput = pipeline.RunInput
type RunResult = pipeline.RunResult
type State = pipeline.State

const (
	StateCollecting         = pipeline.StateCollecting
	StateFiltering          = pipeline.StateFiltering
	StateTrendAnalysis      = pipeline.StateTrendAnalysis
	StatePurchasePrediction = pipeline.StatePurchasePrediction
	StateEnhancing          = pipeline.StateEnhancing
	StateDone               = pipeline.StateDone
	StateFailed             = pipeline.StateFailed
)
