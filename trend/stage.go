package trend

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibeylab/trendkit/core"
	"github.com/vibeylab/trendkit/pkg/logging"
	"github.com/vibeylab/trendkit/retry"
)

// Stage 趋势分析阶段：把过滤排序后的内容批次压缩成模型负载，
// 经 retry.Caller 调用趋势抽取服务，并把结构化响应解析为 TrendDescriptor。
//
// 缓存：同一内容批次（指纹一致）在 TTL 内直接复用上次结果，
// 缓存只是优化，miss 或读写失败都不影响正确性。
type Stage struct {
	extractor core.TrendExtractor
	caller    *retry.Caller
	cache     core.Store
	cacheTTL  time.Duration
	logger    *logrus.Entry
}

// StageOption Stage 可选参数
type StageOption func(*Stage)

// WithCache 启用描述符缓存
func WithCache(store core.Store, ttl time.Duration) StageOption {
	return func(s *Stage) {
		s.cache = store
		s.cacheTTL = ttl
	}
}

// WithCaller 替换重试器（默认 3 次、1s 起步、2 倍退避）
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

// NewStage 构造趋势分析阶段
func NewStage(extractor core.TrendExtractor, opts ...StageOption) *Stage {
	s := &Stage{
		extractor: extractor,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.caller == nil {
		s.caller = retry.NewCaller()
	}
	if s.logger == nil {
		s.logger = logging.NewWithStage("trend")
	}
	return s
}

// Analyze 对内容批次做一次趋势抽取。
// 负载超出 token 上限返回 InvalidInput；响应结构不合法返回 Parse 错误（不重试）。
func (s *Stage) Analyze(ctx context.Context, batch *core.FilteredBatch) (*core.TrendDescriptor, error) {
	if batch == nil || batch.Len() == 0 {
		return nil, core.NewError("trend", core.CodeInvalidInput, "empty content batch")
	}

	fingerprint := core.BatchFingerprint(batch)
	if cached := s.lookup(ctx, fingerprint); cached != nil {
		s.logger.WithField("fingerprint", fingerprint).Debug("trend cache hit")
		return cached, nil
	}

	payload, err := BuildPayload(batch)
	if err != nil {
		return nil, err
	}
	if tokens := EstimateTokens(SystemPrompt + "\n" + payload); tokens > MaxPromptTokens {
		return nil, core.NewError("trend", core.CodeInvalidInput, "payload exceeds context window")
	}

	raw, err := retry.Do(ctx, s.caller, "trend", func(ctx context.Context) (string, error) {
		return s.extractor.Extract(ctx, &core.TrendRequest{
			System:  SystemPrompt,
			Payload: payload,
		})
	})
	if err != nil {
		return nil, err
	}

	descriptor, err := parseDescriptor(raw)
	if err != nil {
		return nil, err
	}

	s.save(ctx, fingerprint, descriptor)
	return descriptor, nil
}

// sceneReply 趋势服务响应的外层包装
type sceneReply struct {
	Scene *core.TrendDescriptor `json:"scene_description"`
}

// parseDescriptor 严格解析模型输出：必需字段缺失即整体判为解析失败，
// 绝不返回半填充的描述符。
func parseDescriptor(raw string) (*core.TrendDescriptor, error) {
	var reply sceneReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, core.WrapError("trend", core.CodeParse, "trend response is not valid JSON", err)
	}
	d := reply.Scene
	if d == nil {
		return nil, core.NewError("trend", core.CodeParse, "missing scene_description")
	}
	if d.Environment == "" || d.Lighting == "" || d.Mood == "" {
		return nil, core.NewError("trend", core.CodeParse, "scene_description missing required fields")
	}
	if len(d.Colors) == 0 || len(d.Textures) == 0 {
		return nil, core.NewError("trend", core.CodeParse, "scene_description missing colors or textures")
	}
	return d, nil
}

// lookup 读缓存，任何失败都按 miss 处理
func (s *Stage) lookup(ctx context.Context, fingerprint string) *core.TrendDescriptor {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, cacheKey(fingerprint))
	if err != nil {
		if !errors.Is(err, core.ErrStoreNotFound) {
			s.logger.WithError(err).Warn("trend cache read failed")
		}
		return nil
	}
	var d core.TrendDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil
	}
	return &d
}

// save 写缓存，失败只记日志
func (s *Stage) save(ctx context.Context, fingerprint string, d *core.TrendDescriptor) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(d)
	if err != nil {
		return
	}
	if ttl := int(s.cacheTTL / time.Second); ttl > 0 {
		err = s.cache.Set(ctx, cacheKey(fingerprint), data, ttl)
	} else {
		err = s.cache.Set(ctx, cacheKey(fingerprint), data)
	}
	if err != nil {
		s.logger.WithError(err).Warn("trend cache write failed")
	}
}

func cacheKey(fingerprint string) string {
	return "trend:descriptor:" + fingerprint
}
