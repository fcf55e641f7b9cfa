package trend

import (
	"context"
	"encoding/json"

	"github.com/vibeylab/trendkit/core"
)

// MockExtractor 一个简单的占位实现，便于本地调试，不调用外部模型。
// 返回固定的场景描述，格式与真实趋势服务一致。
type MockExtractor struct {
	// Descriptor 为空时返回内置的示例场景。
	Descriptor *core.TrendDescriptor
}

func (m MockExtractor) Extract(_ context.Context, _ *core.TrendRequest) (string, error) {
	d := m.Descriptor
	if d == nil {
		d = &core.TrendDescriptor{
			Environment: "sunlit urban rooftop with concrete planters",
			Lighting:    "golden hour backlight, soft shadows",
			Colors:      []string{"terracotta", "sage green", "cream"},
			Textures:    []string{"linen", "raw concrete"},
			Mood:        "relaxed contemporary",
		}
	}
	reply, err := json.Marshal(map[string]*core.TrendDescriptor{"scene_description": d})
	if err != nil {
		return "", core.WrapError("trend", core.CodeParse, "编码示例场景失败", err)
	}
	return string(reply), nil
}
