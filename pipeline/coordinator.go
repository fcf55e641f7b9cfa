package pipeline

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vibeylab/trendkit/core"
	"github.com/vibeylab/trendkit/enhance"
	"github.com/vibeylab/trendkit/feature"
	"github.com/vibeylab/trendkit/pkg/logging"
	"github.com/vibeylab/trendkit/pkg/utils"
	"github.com/vibeylab/trendkit/predict"
	"github.com/vibeylab/trendkit/stream"
	"github.com/vibeylab/trendkit/trend"
)

// Stages 汇集协调器依赖的各阶段实现。
type Stages struct {
	Ranker      *stream.Ranker
	Features    *feature.Builder
	Prediction  *predict.Stage
	Trend       *trend.Stage
	Enhancement *enhance.Stage
}

// Coordinator 按状态机推进一次完整运行：
//
//	Collecting → Filtering → {TrendAnalysis ∥ PurchasePrediction} → Enhancing → Done
//
// 任一阶段可进入 Failed 终态。趋势分支与预测分支相互独立、并发执行，
// 增强阶段是汇合点，等两个分支都结束后才开始。
//
// 失败策略：
//   - 单个客户的预测失败只记录在该客户的结果里，不影响其他客户与趋势分支
//   - 趋势分支终态失败时换用兜底描述继续增强，必须记日志且打 FallbackUsed 标
//   - FailFast 开启时，首个失败会中止尚未开始的工作；在途任务允许跑完
type Coordinator struct {
	cfg    *core.Config
	stages Stages
	logger *logrus.Entry
}

// Option 协调器可选参数
type Option func(*Coordinator)

// WithLogger 注入 logger
func WithLogger(logger *logrus.Entry) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// NewCoordinator 构造管线协调器。五个阶段都是必需依赖。
func NewCoordinator(cfg *core.Config, stages Stages, opts ...Option) (*Coordinator, error) {
	if stages.Ranker == nil || stages.Features == nil || stages.Prediction == nil ||
		stages.Trend == nil || stages.Enhancement == nil {
		return nil, core.NewError("pipeline", core.CodeInvalidInput, "all pipeline stages are required")
	}
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	c := &Coordinator{
		cfg:    cfg,
		stages: stages,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewWithStage("pipeline")
	}
	return c, nil
}

// Run 执行一次完整运行。
// 协调器不向外抛单条记录或单次调用的失败：它们都收敛进 RunResult；
// 返回非 nil error 仅发生在运行级失败（过滤阶段出错、取消、FailFast 中止）。
func (c *Coordinator) Run(ctx context.Context, input *RunInput) (*RunResult, error) {
	result := &RunResult{State: StateCollecting}
	if input == nil || input.Content == nil {
		return c.fail(result, StateCollecting, core.NewError("pipeline", core.CodeInvalidInput, "content source is required"))
	}

	result.State = StateFiltering
	batch, err := c.stages.Ranker.Ingest(ctx, input.Content)
	if err != nil {
		return c.fail(result, StateFiltering, err)
	}
	result.Batch = batch
	c.logger.WithField("records", batch.Len()).Info("content batch filtered")

	// 两个分支只写 result 的不同字段，汇合后才读
	var aborted atomic.Bool
	var firstErr error
	var errOnce sync.Once
	recordErr := func(err error) {
		errOnce.Do(func() { firstErr = err })
		if c.cfg.FailFast {
			aborted.Store(true)
		}
	}

	var g errgroup.Group
	g.Go(func() error {
		c.runTrendBranch(ctx, batch, result)
		return nil
	})
	g.Go(func() error {
		result.Customers = c.runPredictionBranch(ctx, input.Purchases, &aborted, recordErr)
		return nil
	})
	g.Wait()

	if err := ctx.Err(); err != nil {
		return c.fail(result, StatePurchasePrediction, core.WrapError("pipeline", core.CodeCancelled, "run cancelled", err))
	}
	if aborted.Load() {
		result.State = StateFailed
		result.FailedStage = string(StatePurchasePrediction)
		return result, firstErr
	}

	// 降级标透传到每个预测结果，下游消费方能看到这次运行的趋势是兜底值
	if result.TrendFallbackUsed() {
		for _, c := range result.Customers {
			if c.Prediction != nil {
				c.Prediction.PutLabel("trend_fallback", utils.Label{Value: "true", Source: "pipeline"})
			}
		}
	}

	result.State = StateEnhancing
	result.Images = c.runEnhancement(ctx, input.Images, result.Trend, &aborted, recordErr)

	if err := ctx.Err(); err != nil {
		return c.fail(result, StateEnhancing, core.WrapError("pipeline", core.CodeCancelled, "run cancelled", err))
	}
	if aborted.Load() {
		result.State = StateFailed
		result.FailedStage = string(StateEnhancing)
		return result, firstErr
	}

	result.State = StateDone
	succeeded, failed := result.PredictionStats()
	c.logger.WithFields(logging.Fields{
		"predictions_ok":     succeeded,
		"predictions_failed": failed,
		"trend_fallback":     result.TrendFallbackUsed(),
		"images":             len(result.Images),
	}).Info("pipeline run completed")
	return result, nil
}

// runTrendBranch 执行趋势分支。终态失败换用兜底描述，绝不让整次运行卡死。
func (c *Coordinator) runTrendBranch(ctx context.Context, batch *core.FilteredBatch, result *RunResult) {
	c.logger.WithField("state", StateTrendAnalysis).Debug("trend branch started")
	descriptor, err := c.stages.Trend.Analyze(ctx, batch)
	if err != nil {
		result.TrendErr = err
		descriptor = core.DefaultTrendDescriptor()
		c.logger.WithError(err).Warn("trend analysis failed terminally, falling back to default descriptor")
	}
	result.Trend = descriptor
}

// runPredictionBranch 在有界工作池里并发跑逐客户预测。
// 客户按 ID 排序后入队，保证结果顺序确定。
func (c *Coordinator) runPredictionBranch(ctx context.Context, purchases map[string][]*core.PurchaseEvent, aborted *atomic.Bool, recordErr func(error)) []*CustomerResult {
	c.logger.WithField("state", StatePurchasePrediction).Debug("prediction branch started")

	ids := make([]string, 0, len(purchases))
	for id := range purchases {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	results := make([]*CustomerResult, len(ids))
	sem := make(chan struct{}, c.workers())
	var wg sync.WaitGroup
	for i, id := range ids {
		if aborted.Load() {
			results[i] = &CustomerResult{
				CustomerID: id,
				Err:        core.NewError("pipeline", core.CodeCancelled, "skipped: run aborted by fail_fast"),
			}
			continue
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = c.predictOne(ctx, id, purchases[id])
			if results[i].Err != nil {
				recordErr(results[i].Err)
			}
		}(i, id)
	}
	wg.Wait()
	return results
}

// predictOne 单个客户：特征构造 → 预测
func (c *Coordinator) predictOne(ctx context.Context, customerID string, events []*core.PurchaseEvent) *CustomerResult {
	vector, err := c.stages.Features.Build(ctx, customerID, events)
	if err != nil {
		return &CustomerResult{CustomerID: customerID, Err: err}
	}
	prediction, err := c.stages.Prediction.Predict(ctx, vector)
	if err != nil {
		c.logger.WithField("customer", customerID).WithError(err).Warn("prediction failed")
		return &CustomerResult{CustomerID: customerID, Err: err}
	}
	return &CustomerResult{CustomerID: customerID, Prediction: prediction}
}

// runEnhancement 汇合点：拿趋势描述（可能是兜底值）为每张商品图生成背景。
func (c *Coordinator) runEnhancement(ctx context.Context, images []ProductImage, descriptor *core.TrendDescriptor, aborted *atomic.Bool, recordErr func(error)) []*ImageResult {
	results := make([]*ImageResult, len(images))
	sem := make(chan struct{}, c.workers())
	var wg sync.WaitGroup
	for i, img := range images {
		if aborted.Load() {
			results[i] = &ImageResult{
				ImageRef: img.ImageRef,
				Err:      core.NewError("pipeline", core.CodeCancelled, "skipped: run aborted by fail_fast"),
			}
			continue
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, img ProductImage) {
			defer wg.Done()
			defer func() { <-sem }()
			resp, err := c.stages.Enhancement.Enhance(ctx, img.ImageRef, img.MaskRef, img.Category, descriptor)
			if err != nil {
				c.logger.WithField("image", img.ImageRef).WithError(err).Warn("enhancement failed")
				results[i] = &ImageResult{ImageRef: img.ImageRef, Err: err}
				recordErr(err)
				return
			}
			results[i] = &ImageResult{ImageRef: img.ImageRef, EnhancedRef: resp.ImageRef, Prompt: resp.Prompt}
		}(i, img)
	}
	wg.Wait()
	return results
}

func (c *Coordinator) workers() int {
	if c.cfg.WorkerPoolSize > 0 {
		return c.cfg.WorkerPoolSize
	}
	return 1
}

func (c *Coordinator) fail(result *RunResult, stage State, err error) (*RunResult, error) {
	result.State = StateFailed
	result.FailedStage = string(stage)
	c.logger.WithField("stage", stage).WithError(err).Error("pipeline run failed")
	return result, err
}
