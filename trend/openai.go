package trend

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/vibeylab/trendkit/core"
)

// OpenAIExtractor 基于 openai-go SDK（chat completions）的趋势抽取实现。
// 兼容任何 OpenAI 协议的服务端（BaseURL 可指向自建网关）。
type OpenAIExtractor struct {
	model       string
	temperature float64
	opts        []option.RequestOption
}

// OpenAIConfig 趋势抽取服务配置
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string  // 可选，指向兼容网关
	Temperature float64 // 可选，默认 0.7
}

// NewOpenAIExtractor 创建趋势抽取客户端
func NewOpenAIExtractor(cfg *OpenAIConfig) (*OpenAIExtractor, error) {
	if cfg == nil {
		return nil, errors.New("openai config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	return &OpenAIExtractor{
		model:       cfg.Model,
		temperature: temperature,
		opts:        opts,
	}, nil
}

// Extract 实现 core.TrendExtractor 接口
func (o *OpenAIExtractor) Extract(ctx context.Context, req *core.TrendRequest) (string, error) {
	client := openai.NewClient(o.opts...)

	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(req.System),
		openai.UserMessage(req.Payload),
	}
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Messages:    msgs,
		Temperature: openai.Float(o.temperature),
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", core.NewError("trend", core.CodeParse, "trend service returned empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyOpenAIError 把 SDK 错误映射到错误分类：
// 限流与服务端错误可重试，鉴权/配额/请求非法不可重试。
func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
			return core.WrapError("trend", core.CodeTransient, "trend service throttled", err)
		}
		return core.WrapError("trend", core.CodeFatalService, "trend service rejected request", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return core.WrapError("trend", core.CodeCancelled, "trend extraction cancelled", err)
	}
	// 无状态码的网络层错误按瞬时处理
	return core.WrapError("trend", core.CodeTransient, "trend service unreachable", err)
}

var _ core.TrendExtractor = (*OpenAIExtractor)(nil)
