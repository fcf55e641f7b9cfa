package feature

// CategoryEncoder 对“最近购买品类”做 one-hot 编码。
// 合法品类集合在构造时固定；未命中的品类（含空串）落入 Other 桶，
// 与训练侧“稀有品类归并为 Other”的口径保持一致。
type CategoryEncoder struct {
	categories []string
	index      map[string]int
}

// DefaultCategories 是电商侧的默认品类集合。
var DefaultCategories = []string{
	"pants", "shoes", "tops", "outerwear", "accessories",
}

// NewCategoryEncoder 创建编码器；categories 为空时使用 DefaultCategories。
func NewCategoryEncoder(categories []string) *CategoryEncoder {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	idx := make(map[string]int, len(categories))
	for i, c := range categories {
		idx[c] = i
	}
	return &CategoryEncoder{categories: categories, index: idx}
}

// Names 返回 one-hot 块的字段名：cat_<品类>... + cat_Other。
func (e *CategoryEncoder) Names() []string {
	names := make([]string, 0, len(e.categories)+1)
	for _, c := range e.categories {
		names = append(names, "cat_"+c)
	}
	return append(names, "cat_Other")
}

// Encode 返回 one-hot 向量，长度恒为 len(categories)+1。
func (e *CategoryEncoder) Encode(category string) []float64 {
	values := make([]float64, len(e.categories)+1)
	if i, ok := e.index[category]; ok {
		values[i] = 1
	} else {
		values[len(values)-1] = 1 // Other 桶
	}
	return values
}

// Categories 返回合法品类集合（不含 Other）。
func (e *CategoryEncoder) Categories() []string {
	return append([]string(nil), e.categories...)
}
