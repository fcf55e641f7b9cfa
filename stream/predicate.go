package stream

import (
	"strings"

	"github.com/vibeylab/trendkit/core"
	"github.com/vibeylab/trendkit/pkg/dsl"
)

// Predicate 是相关性谓词的抽象接口：判定一条记录是否值得进入排序。
// 返回 false 表示丢弃；被丢弃的记录不计入 max_posts。
type Predicate interface {
	// Name 返回谓词名称（用于 filter_reason 标注）
	Name() string

	// Keep 判定 record 是否保留
	Keep(record *core.ContentRecord) (bool, error)
}

// DegeneratePredicate 过滤退化记录：净化后文本为空、或互动分为负（采集异常）。
type DegeneratePredicate struct{}

func (DegeneratePredicate) Name() string { return "predicate.degenerate" }

func (DegeneratePredicate) Keep(record *core.ContentRecord) (bool, error) {
	if record == nil {
		return false, nil
	}
	if record.Score < 0 || record.CommentCount < 0 {
		return false, nil
	}
	return CleanText(record.Text) != "", nil
}

// VisualKeywords 是默认的视觉相关词表：环境、光线、风格、构图、材质。
// 与采集链路的历史词表保持一致。
var VisualKeywords = []string{
	// 物理环境
	"background", "light", "space", "room", "street", "environment",
	"studio", "outdoor", "indoor", "natural", "artificial", "urban",
	"architecture", "interior", "exterior",
	// 光线
	"lighting", "sunlight", "shadow", "bright", "dark", "moody", "dramatic",
	"soft", "harsh", "warm", "cool", "ambient", "golden hour",
	// 风格
	"aesthetic", "mood", "vibe", "atmosphere", "texture", "pattern", "color",
	"minimalist", "modern", "vintage", "retro", "contemporary", "classic",
	// 构图
	"composition", "perspective", "depth", "focus", "sharp", "contrast",
	"balance", "symmetry", "proportion", "detail", "silhouette", "shape",
	// 材质
	"wood", "metal", "glass", "concrete", "brick", "stone", "leather",
	"smooth", "rough", "matte", "glossy", "textured", "patterned",
}

// KeywordPredicate 按关键词表判定相关性：正文或任一评论命中即保留。
type KeywordPredicate struct {
	Keywords []string
}

// NewKeywordPredicate 创建关键词谓词；keywords 为空时使用 VisualKeywords。
func NewKeywordPredicate(keywords []string) *KeywordPredicate {
	if len(keywords) == 0 {
		keywords = VisualKeywords
	}
	return &KeywordPredicate{Keywords: keywords}
}

func (p *KeywordPredicate) Name() string { return "predicate.keyword" }

func (p *KeywordPredicate) Keep(record *core.ContentRecord) (bool, error) {
	if record == nil {
		return false, nil
	}
	if p.matches(record.Text) {
		return true, nil
	}
	for _, c := range record.Comments {
		if p.matches(c) {
			return true, nil
		}
	}
	return false, nil
}

func (p *KeywordPredicate) matches(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range p.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// CELPredicate 用 CEL 表达式判定相关性，表达式可从配置下发。
// record 变量可见字段：id / text / score / comment_count / source。
type CELPredicate struct {
	expr string
	eval *dsl.Eval
}

// NewCELPredicate 编译表达式并创建谓词。
func NewCELPredicate(expr string) (*CELPredicate, error) {
	eval, err := dsl.NewEval(expr)
	if err != nil {
		return nil, core.WrapError("stream", core.CodeInvalidInput, "bad relevance expression", err)
	}
	return &CELPredicate{expr: expr, eval: eval}, nil
}

func (p *CELPredicate) Name() string { return "predicate.cel" }

func (p *CELPredicate) Keep(record *core.ContentRecord) (bool, error) {
	if record == nil {
		return false, nil
	}
	return p.eval.Evaluate(map[string]any{
		"id":            record.ID,
		"text":          record.Text,
		"score":         record.Score,
		"comment_count": record.CommentCount,
		"source":        record.Source,
	})
}

// DefaultPredicates 返回默认谓词链：退化过滤 + 视觉关键词。
func DefaultPredicates() []Predicate {
	return []Predicate{DegeneratePredicate{}, NewKeywordPredicate(nil)}
}
