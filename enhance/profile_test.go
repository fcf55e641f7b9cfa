package enhance

import (
	"strings"
	"testing"

	"github.com/vibeylab/trendkit/core"
)

func sampleDescriptor() *core.TrendDescriptor {
	return &core.TrendDescriptor{
		Environment: "sunlit loft studio with exposed brick",
		Lighting:    "golden hour side lighting.",
		Colors:      []string{"terracotta", "sage green"},
		Textures:    []string{"linen", "raw denim"},
		Mood:        "relaxed urban editorial",
	}
}

func TestProfile_ComposePrompt_Order(t *testing.T) {
	prompt := DefaultProfile().ComposePrompt(sampleDescriptor(), "pants")

	// 部件顺序固定：质量 → 相机 → 光线 → 环境 → 材质 → 色彩 → 氛围 → 构图 → 品类
	ordered := []string{
		"8k ultra detailed product photography",
		"85mm lens, f/4.0, sharp focus",
		"golden hour side lighting",
		"sunlit loft studio with exposed brick",
		"materials: linen, raw denim",
		"colors: terracotta, sage green",
		"relaxed urban editorial",
		"balanced composition with subtle bokeh effect, medium depth",
		"product category: pants",
	}
	pos := -1
	for _, part := range ordered {
		idx := strings.Index(prompt, part)
		if idx < 0 {
			t.Fatalf("prompt missing %q: %s", part, prompt)
		}
		if idx < pos {
			t.Errorf("%q out of order in prompt", part)
		}
		pos = idx
	}
}

func TestProfile_ComposePrompt_StripsTrailingPeriods(t *testing.T) {
	prompt := DefaultProfile().ComposePrompt(sampleDescriptor(), "")
	if strings.Contains(prompt, "lighting.,") {
		t.Errorf("trailing period not stripped: %s", prompt)
	}
	if strings.Contains(prompt, "product category") {
		t.Error("empty category should not be appended")
	}
}

func TestProfile_Params(t *testing.T) {
	params := DefaultProfile().Params()
	if params["guidance_scale"] != 30.0 {
		t.Errorf("guidance_scale = %v", params["guidance_scale"])
	}
	if params["num_inference_steps"] != 50 {
		t.Errorf("num_inference_steps = %v", params["num_inference_steps"])
	}
	if params["seed"] != 42 {
		t.Errorf("seed = %v", params["seed"])
	}
	if params["scheduler"] != "dpm++" {
		t.Errorf("scheduler = %v", params["scheduler"])
	}
	if _, ok := params["negative_prompt"].(string); !ok {
		t.Error("negative_prompt missing")
	}
}
