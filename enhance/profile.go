package enhance

import (
	"strings"

	"github.com/vibeylab/trendkit/core"
)

// Profile 是固定的商品摄影参数档，保证所有增强图保持一致的专业质感。
// 参数沿用商品摄影的标准机位：85mm 定焦、f/4.0、平视正拍。
type Profile struct {
	// 相机参数
	Lens     string
	Aperture string
	Focus    string
	Angle    string
	Height   string

	// 构图参数
	Background string
	Depth      string

	// 质量参数
	Resolution string
	Detail     string
	Lighting   string
	Render     string

	// 生成参数（随请求原样下发）
	NegativePrompt    string
	NumInferenceSteps int
	GuidanceScale     float64
	PromptUpsampling  bool
	Scheduler         string
	Seed              int
}

// DefaultProfile 返回默认摄影参数档。
// seed 固定为 42，同一提示词可复现同一结果。
func DefaultProfile() *Profile {
	return &Profile{
		Lens:     "85mm lens",
		Aperture: "f/4.0",
		Focus:    "sharp focus",
		Angle:    "straight-on product photography angle",
		Height:   "eye-level",

		Background: "subtle bokeh effect",
		Depth:      "medium",

		Resolution: "high resolution",
		Detail:     "ultra detailed",
		Lighting:   "professional studio quality",
		Render:     "8k",

		NegativePrompt: "text, watermarks, logos, blurry product, distorted proportions, " +
			"deformed product, altered product appearance, poor quality, artifacts, " +
			"noise, grain, duplicate products, missing product parts",
		NumInferenceSteps: 50,
		GuidanceScale:     30.0,
		PromptUpsampling:  true,
		Scheduler:         "dpm++",
		Seed:              42,
	}
}

// ComposePrompt 把趋势描述与摄影参数合成为图像生成提示词。
// 部件顺序固定：质量要求 → 相机 → 光线 → 环境 → 材质 → 色彩 → 氛围 → 构图。
func (p *Profile) ComposePrompt(d *core.TrendDescriptor, category string) string {
	parts := []string{
		p.Render + " " + p.Detail + " product photography",
		p.Resolution + ", sharp detail, " + p.Lighting,
		p.Lens + ", " + p.Aperture + ", " + p.Focus,
		strings.TrimRight(d.Lighting, "."),
		strings.TrimRight(d.Environment, "."),
		"materials: " + strings.Join(d.Textures, ", "),
		"colors: " + strings.Join(d.Colors, ", "),
		strings.TrimRight(d.Mood, "."),
		"balanced composition with " + p.Background + ", " + p.Depth + " depth",
		"professional color grading, studio quality",
	}
	if category != "" {
		parts = append(parts, "product category: "+category)
	}

	kept := parts[:0]
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			kept = append(kept, s)
		}
	}
	prompt := strings.Join(kept, ", ")
	prompt = strings.ReplaceAll(prompt, "..", ".")
	prompt = strings.ReplaceAll(prompt, " ,", ",")
	return strings.Trim(prompt, ".")
}

// Params 返回随增强请求下发的生成参数
func (p *Profile) Params() map[string]any {
	return map[string]any{
		"negative_prompt":     p.NegativePrompt,
		"num_inference_steps": p.NumInferenceSteps,
		"guidance_scale":      p.GuidanceScale,
		"prompt_upsampling":   p.PromptUpsampling,
		"scheduler":           p.Scheduler,
		"seed":                p.Seed,
	}
}
