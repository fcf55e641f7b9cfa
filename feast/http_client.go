package feast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient 是 Feast 在线特征服务的 HTTP 实现（feature server）。
// gRPC 不可用或跨网段接入时使用；协议为 POST /get-online-features。
type HTTPClient struct {
	endpoint  string
	project   string
	authToken string

	httpClient *http.Client
}

// NewHTTPClient 创建 Feast HTTP 客户端。endpoint 如 "http://localhost:6566"。
func NewHTTPClient(endpoint, project string, opts ...ClientOption) (*HTTPClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("feast endpoint is required")
	}
	config := &ClientConfig{
		Endpoint: endpoint,
		Project:  project,
		Timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(config)
	}
	return &HTTPClient{
		endpoint:   strings.TrimRight(config.Endpoint, "/"),
		project:    config.Project,
		authToken:  config.AuthToken,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// GetOnlineFeatures 实现 Client 接口
func (c *HTTPClient) GetOnlineFeatures(ctx context.Context, req *GetOnlineFeaturesRequest) (*GetOnlineFeaturesResponse, error) {
	if len(req.Features) == 0 {
		return nil, fmt.Errorf("features are required")
	}
	if len(req.EntityRows) == 0 {
		return nil, fmt.Errorf("entity rows are required")
	}

	body := map[string]any{
		"features":           req.Features,
		"entities":           req.EntityRows,
		"full_feature_names": false,
	}
	if req.Project != "" {
		body["project"] = req.Project
	} else if c.project != "" {
		body["project"] = c.project
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/get-online-features", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("feast error: status=%d, body=%s", resp.StatusCode, string(bodyBytes))
	}

	var result struct {
		Results []struct {
			Values map[string]any `json:"values"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Results) != len(req.EntityRows) {
		return nil, fmt.Errorf("feast returned %d rows for %d entities", len(result.Results), len(req.EntityRows))
	}

	vectors := make([]FeatureVector, len(result.Results))
	for i, r := range result.Results {
		vectors[i] = FeatureVector{
			Values:    r.Values,
			EntityRow: req.EntityRows[i],
		}
	}
	return &GetOnlineFeaturesResponse{FeatureVectors: vectors}, nil
}

// Close 关闭连接
func (c *HTTPClient) Close() error {
	return nil
}

var _ Client = (*HTTPClient)(nil)
