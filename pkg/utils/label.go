package utils

// Label 是管线产物上的可解释标注：记录某个结果“为什么长这样”。
// Value 与 Source 的语义由业务自定义；这里只提供标准化的合并规则。
//
// 典型用法：
//   - 预测结果打 "predictor_model"（来源模型/版本）
//   - 趋势描述打 "trend_fallback"（兜底值被使用）
//   - 内容记录打 "filter_reason"（被哪个谓词过滤）
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // stream / trend / predict / enhance / coordinator ...
}

// MergeLabel 合并同名 Label，遵循“保留历史、可追踪”的默认策略。
// - Value: 以 '|' 累积
// - Source: 以 ',' 累积
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}
