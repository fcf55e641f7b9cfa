package trend

import (
	"encoding/json"

	"github.com/vibeylab/trendkit/core"
	"github.com/vibeylab/trendkit/stream"
)

// 负载裁剪上限：控制送入模型的 token 规模
const (
	// MaxPromptTokens 提示词 token 上限，超出直接拒绝而不是截断
	MaxPromptTokens = 5000

	// MaxTitleWords 单条内容文本保留词数
	MaxTitleWords = 15

	// MaxCommentWords 单条评论保留词数
	MaxCommentWords = 20

	// MaxComments 单条内容携带的评论数
	MaxComments = 3
)

// SystemPrompt 趋势抽取的系统提示词：约定输入为清洗后的内容样本，
// 输出为固定 schema 的 JSON 场景描述。
const SystemPrompt = `You are an expert prompt engineer for AI image generation models, specializing in fashion and product photography environments. Your task is to analyze fashion trends and generate ONE precise, image-model-optimized scene description.

Analyze the provided fashion posts to identify:
1. Most effective visual environments
2. Common lighting patterns and setups
3. Recurring color combinations
4. Distinctive materials and textures
5. Prevalent aesthetic styles

IMPORTANT: Return ONLY this exact JSON structure with precise, image-model-optimized terms:
{
    "scene_description": {
        "environment": "specific location + key details + spatial layout",
        "lighting": "exact lighting setup + atmospheric details",
        "colors": ["3-5 specific color names from data"],
        "textures": ["2-3 observed materials or finishes"],
        "mood": "specific style + atmospheric description"
    }
}

CRITICAL RULES:
- Base all descriptions on the provided data
- Use specific, concrete terms
- Avoid generic or vague descriptions
- Optimize terms for image generation
- Return ONLY the JSON object`

// payloadItem 送入模型的单条内容，字段名刻意压缩以省 token
type payloadItem struct {
	Title    string   `json:"t"`
	Comments []string `json:"c,omitempty"`
}

// BuildPayload 把过滤后的内容批次压缩成模型负载：
// 逐条清洗并按词数上限截断，空标题的记录丢弃。
func BuildPayload(batch *core.FilteredBatch) (string, error) {
	items := make([]payloadItem, 0, batch.Len())
	for _, r := range batch.Records {
		title := stream.TruncateWords(stream.CleanText(r.Text), MaxTitleWords)
		if title == "" {
			continue
		}
		item := payloadItem{Title: title}
		for i, c := range r.Comments {
			if i >= MaxComments {
				break
			}
			if cleaned := stream.TruncateWords(stream.CleanText(c), MaxCommentWords); cleaned != "" {
				item.Comments = append(item.Comments, cleaned)
			}
		}
		items = append(items, item)
	}

	data, err := json.Marshal(items)
	if err != nil {
		return "", core.WrapError("trend", core.CodeInvalidInput, "marshal payload", err)
	}
	return string(data), nil
}

// EstimateTokens 粗略估算 token 数：按空白分词 × 1.3。
// 不引入真实分词器，只用于上限保护。
func EstimateTokens(text string) int {
	words := 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			words++
			inWord = true
		}
	}
	return int(float64(words) * 1.3)
}
