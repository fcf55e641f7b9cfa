package core

import "github.com/vibeylab/trendkit/pkg/utils"

// CategoryProbability 是一个 (品类, 概率) 对。
type CategoryProbability struct {
	Category    string  `json:"category"`
	Probability float64 `json:"probability"`
}

// PredictionResult 是单个客户的品类购买概率预测。
// Ranked 按概率降序排列，概率均为非负，且总和 <= 1（浮点容差内）。
type PredictionResult struct {
	CustomerID string                `json:"customer_id"`
	Ranked     []CategoryProbability `json:"ranked"`

	// Labels 用于解释与观测：预测来源、是否走了降级路径等
	Labels map[string]utils.Label `json:"labels,omitempty"`
}

// Top 返回概率最高的预测项；没有任何有效项时返回 false。
func (p *PredictionResult) Top() (CategoryProbability, bool) {
	if p == nil || len(p.Ranked) == 0 {
		return CategoryProbability{}, false
	}
	return p.Ranked[0], true
}

// PutLabel 写入结果级 Label；同名 key 按默认 Merge 规则累积。
func (p *PredictionResult) PutLabel(key string, lbl utils.Label) {
	if p.Labels == nil {
		p.Labels = make(map[string]utils.Label)
	}
	if old, ok := p.Labels[key]; ok {
		p.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	p.Labels[key] = lbl
}
