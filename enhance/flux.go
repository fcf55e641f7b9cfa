package enhance

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

// 轮询节奏：起步 2s，指数加倍，封顶 30s，总等待不超过 10 分钟
const (
	defaultSubmitPath  = "/v1/flux-pro-1.0-fill"
	defaultResultPath  = "/v1/get_result"
	initialPollDelay   = 2 * time.Second
	maxPollDelay       = 30 * time.Second
	defaultMaxWaitTime = 10 * time.Minute
)

// FluxClient 是图像增强服务（Flux 填充 API）的客户端实现。
//
// 协议是异步两段式：
//  1. POST {endpoint}/v1/flux-pro-1.0-fill 提交任务，返回 {"id": "..."}
//  2. GET  {endpoint}/v1/get_result?id=... 轮询直到 status == "Ready"，
//     结果在 result.sample 中。"Pending" 与 "Task not found" 都继续等。
type FluxClient struct {
	// Endpoint 服务端点，如 "https://api.bfl.ml"
	Endpoint string

	// APIKey 通过 X-Key 请求头下发
	APIKey string

	// Timeout 单次 HTTP 请求超时
	Timeout time.Duration

	// MaxWaitTime 轮询总时长上限
	MaxWaitTime time.Duration

	httpClient *http.Client
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
}

// FluxOption Flux 客户端配置选项
type FluxOption func(*FluxClient)

// WithFluxTimeout 设置单次请求超时
func WithFluxTimeout(timeout time.Duration) FluxOption {
	return func(c *FluxClient) {
		c.Timeout = timeout
	}
}

// WithFluxMaxWait 设置轮询总时长上限
func WithFluxMaxWait(d time.Duration) FluxOption {
	return func(c *FluxClient) {
		c.MaxWaitTime = d
	}
}

// WithFluxHTTPClient 注入自定义 HTTP 客户端（测试用）
func WithFluxHTTPClient(client *http.Client) FluxOption {
	return func(c *FluxClient) {
		c.httpClient = client
	}
}

// WithFluxSleep 注入轮询等待函数（测试用）
func WithFluxSleep(fn func(ctx context.Context, d time.Duration) error) FluxOption {
	return func(c *FluxClient) {
		c.sleep = fn
	}
}

// NewFluxClient 创建图像增强服务客户端
func NewFluxClient(endpoint, apiKey string, opts ...FluxOption) *FluxClient {
	c := &FluxClient{
		Endpoint:    endpoint,
		APIKey:      apiKey,
		Timeout:     30 * time.Second,
		MaxWaitTime: defaultMaxWaitTime,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.Timeout}
	}
	if c.sleep == nil {
		c.sleep = func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		}
	}
	return c
}

// Enhance 实现 core.ImageEnhancer 接口：提交任务并轮询结果
func (c *FluxClient) Enhance(ctx context.Context, req *core.EnhanceRequest) (*core.EnhanceResponse, error) {
	taskID, err := c.submit(ctx, req)
	if err != nil {
		return nil, err
	}
	sample, err := c.waitForResult(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &core.EnhanceResponse{
		ImageRef: sample,
		Prompt:   req.Prompt,
	}, nil
}

// submit 提交增强任务，返回任务 ID
func (c *FluxClient) submit(ctx context.Context, req *core.EnhanceRequest) (string, error) {
	payload := map[string]any{
		"image":  req.ImageRef,
		"prompt": req.Prompt,
	}
	if req.MaskRef != "" {
		payload["mask"] = req.MaskRef
	}
	for k, v := range req.Params {
		payload[k] = v
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", core.WrapError("enhance", core.CodeFatalService, "marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.Endpoint+defaultSubmitPath, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", core.WrapError("enhance", core.CodeFatalService, "create request", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", core.WrapError("enhance", core.CodeCancelled, "submit cancelled", ctx.Err())
		}
		return "", core.WrapError("enhance", core.CodeTransient, "submit failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		msg := fmt.Sprintf("flux submit error: status=%d, body=%s", resp.StatusCode, string(bodyBytes))
		return "", core.NewError("enhance", classifyFluxStatus(resp.StatusCode), msg)
	}

	var reply struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", core.WrapError("enhance", core.CodeParse, "decode submit response", err)
	}
	if reply.ID == "" {
		return "", core.NewError("enhance", core.CodeParse, "no task id in submit response")
	}
	return reply.ID, nil
}

// resultReply 轮询响应
type resultReply struct {
	Status string `json:"status"`
	Result *struct {
		Sample string `json:"sample"`
	} `json:"result"`
}

// waitForResult 轮询任务直到就绪或超出总时长。
// 单次轮询的瞬时错误不中断等待，只会推迟到下一轮。
func (c *FluxClient) waitForResult(ctx context.Context, taskID string) (string, error) {
	deadline := c.now().Add(c.MaxWaitTime)
	delay := initialPollDelay

	for c.now().Before(deadline) {
		reply, err := c.pollOnce(ctx, taskID)
		if err != nil {
			if core.IsCancelled(err) || core.IsFatalService(err) || core.IsParse(err) {
				return "", err
			}
			// 瞬时错误继续轮询
		} else {
			switch reply.Status {
			case "Ready":
				if reply.Result == nil || reply.Result.Sample == "" {
					return "", core.NewError("enhance", core.CodeParse, "no sample URL in ready result")
				}
				return reply.Result.Sample, nil
			case "Pending", "Task not found":
				// 任务排队或尚未可见，继续等
			default:
				return "", core.NewError("enhance", core.CodeFatalService,
					"flux task failed with status "+reply.Status)
			}
		}

		if err := c.sleep(ctx, delay); err != nil {
			return "", core.WrapError("enhance", core.CodeCancelled, "poll cancelled", err)
		}
		delay *= 2
		if delay > maxPollDelay {
			delay = maxPollDelay
		}
	}
	return "", core.NewError("enhance", core.CodeTransient,
		fmt.Sprintf("flux task %s timed out after %s", taskID, c.MaxWaitTime))
}

// pollOnce 执行一次结果查询
func (c *FluxClient) pollOnce(ctx context.Context, taskID string) (*resultReply, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.Endpoint+defaultResultPath+"?id="+taskID, nil)
	if err != nil {
		return nil, core.WrapError("enhance", core.CodeFatalService, "create request", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, core.WrapError("enhance", core.CodeCancelled, "poll cancelled", ctx.Err())
		}
		return nil, core.WrapError("enhance", core.CodeTransient, "poll failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		msg := fmt.Sprintf("flux poll error: status=%d, body=%s", resp.StatusCode, string(bodyBytes))
		return nil, core.NewError("enhance", classifyFluxStatus(resp.StatusCode), msg)
	}

	var reply resultReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, core.WrapError("enhance", core.CodeParse, "decode poll response", err)
	}
	return &reply, nil
}

func (c *FluxClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("X-Key", c.APIKey)
	}
}

// classifyFluxStatus 状态码分类：429/5xx 可重试，其余 4xx 不重试
func classifyFluxStatus(status int) string {
	if status >= 500 || status == http.StatusTooManyRequests {
		return core.CodeTransient
	}
	return core.CodeFatalService
}

var _ core.ImageEnhancer = (*FluxClient)(nil)
