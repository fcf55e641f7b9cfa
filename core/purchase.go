package core

import "time"

// PurchaseEvent 是一条购买流水，来自上游交易日志，追加写、不可变。
// 同一客户的序列必须按时间非递减排好序再进入 FeatureBuilder。
type PurchaseEvent struct {
	CustomerID string
	Category   string
	Brand      string
	Price      float64
	Timestamp  time.Time
}

// FeatureVector 是单个客户购买历史的定宽数值表示。
//
// 核心契约：任意两个客户（无论历史长短）产出的向量长度与字段顺序完全一致，
// 这是下游 Predictor 依赖的唯一形状约定。历史不足时各字段退化为文档化的
// 默认值（见 feature 包），绝不出现空洞。
type FeatureVector struct {
	CustomerID string

	// Names 与 Values 一一对应；Names 由 FeatureBuilder 的 Schema 固定给出
	Names  []string
	Values []float64
}

// Dim 返回向量维度。
func (v *FeatureVector) Dim() int {
	if v == nil {
		return 0
	}
	return len(v.Values)
}

// Get 按特征名取值；不存在时返回 (0, false)。
func (v *FeatureVector) Get(name string) (float64, bool) {
	for i, n := range v.Names {
		if n == name {
			return v.Values[i], true
		}
	}
	return 0, false
}
