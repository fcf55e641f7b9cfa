package enhance

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/vibeylab/trendkit/core"
	"github.com/vibeylab/trendkit/pkg/logging"
	"github.com/vibeylab/trendkit/retry"
)

// Stage 图像增强阶段：把趋势描述与摄影参数档合成提示词，
// 经 retry.Caller 调用图像增强服务为商品图生成新背景。
// 这是管线的汇合点：趋势分支与预测分支的产物在这里一起消费。
type Stage struct {
	enhancer core.ImageEnhancer
	profile  *Profile
	caller   *retry.Caller
	logger   *logrus.Entry
}

// StageOption Stage 可选参数
type StageOption func(*Stage)

// WithProfile 替换摄影参数档
func WithProfile(profile *Profile) StageOption {
	return func(s *Stage) {
		s.profile = profile
	}
}

// WithCaller 替换重试器
func WithCaller(caller *retry.Caller) StageOption {
	return func(s *Stage) {
		s.caller = caller
	}
}

// WithLogger 注入 logger
func WithLogger(logger *logrus.Entry) StageOption {
	return func(s *Stage) {
		s.logger = logger
	}
}

// NewStage 构造图像增强阶段
func NewStage(enhancer core.ImageEnhancer, opts ...StageOption) *Stage {
	s := &Stage{
		enhancer: enhancer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.profile == nil {
		s.profile = DefaultProfile()
	}
	if s.caller == nil {
		s.caller = retry.NewCaller()
	}
	if s.logger == nil {
		s.logger = logging.NewWithStage("enhance")
	}
	return s
}

// Enhance 为一张商品图生成新背景。
// descriptor 可以是兜底描述（FallbackUsed=true），此时照常增强但记录日志。
func (s *Stage) Enhance(ctx context.Context, imageRef, maskRef, category string, descriptor *core.TrendDescriptor) (*core.EnhanceResponse, error) {
	if imageRef == "" {
		return nil, core.NewError("enhance", core.CodeInvalidInput, "image reference is required")
	}
	if descriptor == nil {
		return nil, core.NewError("enhance", core.CodeInvalidInput, "trend descriptor is required")
	}
	if descriptor.FallbackUsed {
		s.logger.WithField("image", imageRef).Warn("enhancing with fallback trend descriptor")
	}

	req := &core.EnhanceRequest{
		ImageRef: imageRef,
		MaskRef:  maskRef,
		Prompt:   s.profile.ComposePrompt(descriptor, category),
		Params:   s.profile.Params(),
	}

	resp, err := retry.Do(ctx, s.caller, "enhance", func(ctx context.Context) (*core.EnhanceResponse, error) {
		return s.enhancer.Enhance(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.ImageRef == "" {
		return nil, core.NewError("enhance", core.CodeParse, "enhancement service returned no image")
	}
	if resp.Prompt == "" {
		resp.Prompt = req.Prompt
	}
	return resp, nil
}
