package core

import (
	"fmt"
	"hash/fnv"
	"sort"
	"time"
)

// TrendDescriptor 是趋势抽取服务返回的结构化场景描述。
// 它是派生产物：永远可以从最新的 FilteredBatch 重算，缓存只是优化不是正确性来源。
//
// 字段对应趋势服务约定的 JSON schema：
//
//	{
//	    "scene_description": {
//	        "environment": "...",
//	        "lighting": "...",
//	        "colors": ["..."],          // 3-5 个
//	        "textures": ["..."],        // 2-3 个
//	        "mood": "..."
//	    }
//	}
type TrendDescriptor struct {
	Environment   string   `json:"environment"`
	Lighting      string   `json:"lighting"`
	Colors        []string `json:"colors"`
	Textures      []string `json:"textures"`
	Mood          string   `json:"mood"`
	StyleKeywords []string `json:"style_keywords,omitempty"`

	// FallbackUsed 标记该描述并非来自趋势服务，而是终态失败后的兜底值
	FallbackUsed bool `json:"-"`
}

// DefaultTrendDescriptor 返回趋势抽取终态失败时使用的兜底描述。
// 取中性摄影棚场景，保证增强阶段总能拿到可用参数；调用方必须记录日志并打标。
func DefaultTrendDescriptor() *TrendDescriptor {
	return &TrendDescriptor{
		Environment:   "neutral studio backdrop with seamless paper sweep",
		Lighting:      "soft diffused studio lighting, even exposure",
		Colors:        []string{"warm gray", "off-white", "muted beige"},
		Textures:      []string{"matte paper", "brushed cotton"},
		Mood:          "clean minimalist commercial",
		StyleKeywords: []string{"minimalist", "studio", "commercial"},
		FallbackUsed:  true,
	}
}

// BatchFingerprint 计算内容批次的缓存指纹：成员 ID（排序后）+ 时间窗口。
// 同一批内容无论到达顺序如何，指纹一致。
func BatchFingerprint(batch *FilteredBatch) string {
	ids := make([]string, 0, batch.Len())
	for _, r := range batch.Records {
		ids = append(ids, r.ID)
	}
	sort.Strings(ids)

	h := fnv.New64a()
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	h.Write([]byte(batch.Window.Start.UTC().Format(time.RFC3339)))
	h.Write([]byte(batch.Window.End.UTC().Format(time.RFC3339)))
	return fmt.Sprintf("%016x", h.Sum64())
}
