// Package feast 封装 Feast Feature Store 的在线特征读取，
// 为 feature.FeastProfileLoader 提供客户画像特征。
package feast

import (
	"context"
	"time"
)

// Client 是 Feast 在线特征读取的领域接口。
//
// 设计原则：
//   - 领域层只依赖此接口；GrpcClient 基于官方 SDK 实现
//   - 本系统只读在线特征，物化/历史特征等训练侧操作不在范围内
type Client interface {
	// GetOnlineFeatures 获取在线特征（实时预测用）
	GetOnlineFeatures(ctx context.Context, req *GetOnlineFeaturesRequest) (*GetOnlineFeaturesResponse, error)

	// Close 关闭客户端连接
	Close() error
}

// GetOnlineFeaturesRequest 在线特征请求。
type GetOnlineFeaturesRequest struct {
	// Features 特征引用列表，如 ["customer_stats:lifetime_spend"]
	Features []string

	// EntityRows 实体行，如 [{"customer_id": "c-1001"}]
	EntityRows []map[string]any

	// Project 项目名称（可选，默认取客户端配置）
	Project string
}

// GetOnlineFeaturesResponse 在线特征响应。
type GetOnlineFeaturesResponse struct {
	// FeatureVectors 与 EntityRows 一一对应
	FeatureVectors []FeatureVector
}

// FeatureVector 单个实体的特征值集合。
type FeatureVector struct {
	// Values key 为特征引用（或特征名），value 为特征值
	Values map[string]any

	// EntityRow 对应的实体行
	EntityRow map[string]any
}

// ClientConfig 客户端配置。
type ClientConfig struct {
	Endpoint string
	Project  string
	Timeout  time.Duration

	// AuthToken 静态 Token 认证（可选）
	AuthToken string
}

// ClientOption 客户端配置选项。
type ClientOption func(*ClientConfig)

// WithTimeout 设置请求超时。
func WithTimeout(d time.Duration) ClientOption {
	return func(c *ClientConfig) { c.Timeout = d }
}

// WithAuthToken 设置静态 Token 认证。
func WithAuthToken(token string) ClientOption {
	return func(c *ClientConfig) { c.AuthToken = token }
}
