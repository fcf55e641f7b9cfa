package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vibeylab/trendkit/core"
)

// RESTPredictor 是购买类目分类服务的 REST 客户端实现。
//
// 服务协议（HTTP/JSON）：
//
//	POST {endpoint}/v1/models/{model}:predict
//	请求：{"instances": [[...]], "feature_names": [...]}
//	响应：{"probabilities": [{"category": p, ...}], "model_version": "..."}
//
// 错误分类约定：
//   - 连接失败、超时、5xx、429 → 瞬时错误（可重试）
//   - 其余 4xx（认证、配额、请求畸形）→ 致命错误（不重试）
type RESTPredictor struct {
	// Endpoint 服务端点，如 "http://localhost:8080"
	Endpoint string

	// ModelName 模型名称
	ModelName string

	// ModelVersion 模型版本（可选，为空则使用最新版本）
	ModelVersion string

	// Timeout 超时时间
	Timeout time.Duration

	// Auth 认证信息
	Auth *AuthConfig

	httpClient *http.Client
}

// PredictorOption REST 客户端配置选项
type PredictorOption func(*RESTPredictor)

// WithPredictorVersion 设置模型版本
func WithPredictorVersion(version string) PredictorOption {
	return func(c *RESTPredictor) {
		c.ModelVersion = version
	}
}

// WithPredictorTimeout 设置超时时间
func WithPredictorTimeout(timeout time.Duration) PredictorOption {
	return func(c *RESTPredictor) {
		c.Timeout = timeout
	}
}

// WithPredictorAuth 设置认证信息
func WithPredictorAuth(auth *AuthConfig) PredictorOption {
	return func(c *RESTPredictor) {
		c.Auth = auth
	}
}

// WithPredictorHTTPClient 注入自定义 HTTP 客户端（测试用）
func WithPredictorHTTPClient(client *http.Client) PredictorOption {
	return func(c *RESTPredictor) {
		c.httpClient = client
	}
}

// NewRESTPredictor 创建购买预测服务客户端
func NewRESTPredictor(endpoint, modelName string, opts ...PredictorOption) *RESTPredictor {
	client := &RESTPredictor{
		Endpoint:  endpoint,
		ModelName: modelName,
		Timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{
			Timeout: client.Timeout,
		}
	}
	return client
}

// predictBody REST 请求体
type predictBody struct {
	Instances    [][]float64 `json:"instances"`
	FeatureNames []string    `json:"feature_names,omitempty"`
}

// predictReply REST 响应体
type predictReply struct {
	Probabilities []map[string]float64 `json:"probabilities"`
	ModelVersion  string               `json:"model_version,omitempty"`
}

// PredictProba 实现 core.Predictor 接口
func (c *RESTPredictor) PredictProba(ctx context.Context, req *core.PredictRequest) (*core.PredictResponse, error) {
	if len(req.Instances) == 0 {
		return nil, core.NewError("predictor", core.CodeInvalidInput, "instances are required")
	}

	modelName := c.ModelName
	if req.ModelName != "" {
		modelName = req.ModelName
	}
	url := fmt.Sprintf("%s/v1/models/%s:predict", c.Endpoint, modelName)
	if c.ModelVersion != "" {
		url = fmt.Sprintf("%s/v1/models/%s/versions/%s:predict", c.Endpoint, modelName, c.ModelVersion)
	}

	body := predictBody{
		Instances:    make([][]float64, 0, len(req.Instances)),
		FeatureNames: req.Instances[0].Names,
	}
	for _, v := range req.Instances {
		body.Instances = append(body.Instances, v.Values)
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, core.WrapError("predictor", core.CodeFatalService, "marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, core.WrapError("predictor", core.CodeFatalService, "create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.Auth.apply(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, core.WrapError("predictor", core.CodeCancelled, "request cancelled", ctx.Err())
		}
		// 网络层失败视为瞬时
		return nil, core.WrapError("predictor", core.CodeTransient, "http request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		msg := fmt.Sprintf("predictor error: status=%d, body=%s", resp.StatusCode, string(bodyBytes))
		return nil, core.NewError("predictor", classifyStatus(resp.StatusCode), msg)
	}

	var reply predictReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, core.WrapError("predictor", core.CodeParse, "decode response", err)
	}
	if len(reply.Probabilities) != len(req.Instances) {
		return nil, core.NewError("predictor", core.CodeParse,
			fmt.Sprintf("predictor returned %d rows for %d instances", len(reply.Probabilities), len(req.Instances)))
	}

	return &core.PredictResponse{
		Probabilities: reply.Probabilities,
		ModelVersion:  reply.ModelVersion,
	}, nil
}

// classifyStatus 按状态码划分错误类别：5xx/429 可重试，其余 4xx 不重试
func classifyStatus(status int) string {
	if status >= 500 || status == http.StatusTooManyRequests {
		return core.CodeTransient
	}
	return core.CodeFatalService
}

// Health 健康检查
func (c *RESTPredictor) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/v1/models/%s", c.Endpoint, c.ModelName)
	if c.ModelVersion != "" {
		url = fmt.Sprintf("%s/v1/models/%s/versions/%s", c.Endpoint, c.ModelName, c.ModelVersion)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return core.WrapError("predictor", core.CodeFatalService, "create request", err)
	}
	c.Auth.apply(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return core.WrapError("predictor", core.CodeTransient, "health check failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		msg := fmt.Sprintf("health check failed: status=%d, body=%s", resp.StatusCode, string(bodyBytes))
		return core.NewError("predictor", classifyStatus(resp.StatusCode), msg)
	}
	return nil
}

// Close 关闭连接
func (c *RESTPredictor) Close() error {
	// HTTP 客户端无需显式关闭
	return nil
}

// 确保 RESTPredictor 实现了 core.Predictor 接口
var _ core.Predictor = (*RESTPredictor)(nil)
