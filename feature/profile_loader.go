package feature

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vibeylab/trendkit/core"
	"github.com/vibeylab/trendkit/feast"
	"github.com/vibeylab/trendkit/pkg/conv"
)

// ProfileLoader 提供客户画像类增益特征（生命周期聚合值、活跃度等）。
// Names 的顺序固定，决定向量里画像块的字段顺序；Load 缺失的特征取零值。
type ProfileLoader interface {
	// Names 返回此加载器提供的特征名（固定顺序）
	Names() []string

	// Load 加载一个客户的画像特征
	Load(ctx context.Context, customerID string) (map[string]float64, error)
}

// FeastProfileLoader 从 Feast 在线特征库加载画像特征。
//
// FeatureRefs 使用 Feast 的 "view:feature" 引用格式，如
// "customer_stats:lifetime_spend"；向量字段名取冒号后的特征名。
type FeastProfileLoader struct {
	Client      feast.Client
	Project     string
	EntityKey   string // 实体键名，如 "customer_id"
	FeatureRefs []string

	names []string
}

// NewFeastProfileLoader 创建 Feast 画像加载器。
func NewFeastProfileLoader(client feast.Client, project, entityKey string, featureRefs []string) *FeastProfileLoader {
	names := make([]string, len(featureRefs))
	for i, ref := range featureRefs {
		names[i] = featureName(ref)
	}
	return &FeastProfileLoader{
		Client:      client,
		Project:     project,
		EntityKey:   entityKey,
		FeatureRefs: featureRefs,
		names:       names,
	}
}

func (l *FeastProfileLoader) Names() []string {
	return append([]string(nil), l.names...)
}

func (l *FeastProfileLoader) Load(ctx context.Context, customerID string) (map[string]float64, error) {
	resp, err := l.Client.GetOnlineFeatures(ctx, &feast.GetOnlineFeaturesRequest{
		Features:   l.FeatureRefs,
		EntityRows: []map[string]any{{l.EntityKey: customerID}},
		Project:    l.Project,
	})
	if err != nil {
		return nil, fmt.Errorf("feast online features: %w", err)
	}
	if len(resp.FeatureVectors) == 0 {
		return map[string]float64{}, nil
	}

	out := make(map[string]float64, len(l.FeatureRefs))
	row := resp.FeatureVectors[0].Values
	for _, ref := range l.FeatureRefs {
		v, ok := row[ref]
		if !ok {
			v, ok = row[featureName(ref)]
		}
		if !ok {
			continue
		}
		if f, ok := conv.ToFloat64(v); ok {
			out[featureName(ref)] = f
		}
	}
	return out, nil
}

// featureName 取 "view:feature" 引用的特征名部分。
func featureName(ref string) string {
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == ':' {
			return ref[i+1:]
		}
	}
	return ref
}

// StoreProfileLoader 从 KV 存储加载画像特征（JSON 编码的 map）。
// 适合把离线批前置计算好的聚合值灌进 Redis 供在线读取。
type StoreProfileLoader struct {
	Store        core.Store
	KeyPrefix    string
	FeatureNames []string
}

// NewStoreProfileLoader 创建 KV 画像加载器。
func NewStoreProfileLoader(store core.Store, keyPrefix string, featureNames []string) *StoreProfileLoader {
	return &StoreProfileLoader{Store: store, KeyPrefix: keyPrefix, FeatureNames: featureNames}
}

func (l *StoreProfileLoader) Names() []string {
	return append([]string(nil), l.FeatureNames...)
}

func (l *StoreProfileLoader) Load(ctx context.Context, customerID string) (map[string]float64, error) {
	data, err := l.Store.Get(ctx, l.KeyPrefix+customerID)
	if err != nil {
		if errors.Is(err, core.ErrStoreNotFound) {
			return map[string]float64{}, nil
		}
		return nil, err
	}

	var features map[string]float64
	if err := json.Unmarshal(data, &features); err != nil {
		return nil, fmt.Errorf("decode profile features: %w", err)
	}
	return features, nil
}
