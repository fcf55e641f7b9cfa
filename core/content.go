package core

import "time"

// ContentRecord 是从上游内容采集器（Reddit 等社区）拿到的一条原始内容。
// 采集完成后不可变：管线内只读，不回写。
type ContentRecord struct {
	ID           string
	Text         string   // 标题/正文合并后的文本
	Comments     []string // 热门评论（采集端已截断）
	Score        float64  // 社区互动分（点赞/顶）
	CommentCount int
	Timestamp    time.Time
	Source       string // 来源板块，如 "streetwear"
}

// Relevance 返回相关性综合分：score + comment_count。
// 这是采集链路沿用至今的排序口径，保持不变以兼容历史数据；
// 如需调整请通过 stream.WithScorer 注入新的打分函数。
func (r *ContentRecord) Relevance() float64 {
	return r.Score + float64(r.CommentCount)
}

// Less 定义内容记录的全序关系：先比相关性分，分数相同时新帖在前，
// 时间也相同时按 ID 定序。全序保证同样的输入永远产出同样的批次顺序。
func (r *ContentRecord) Less(other *ContentRecord) bool {
	ra, rb := r.Relevance(), other.Relevance()
	if ra != rb {
		return ra < rb
	}
	if !r.Timestamp.Equal(other.Timestamp) {
		return r.Timestamp.Before(other.Timestamp)
	}
	return r.ID > other.ID
}

// FilteredBatch 是过滤排序后的内容批次：按相关性降序，长度不超过 MaxPosts。
type FilteredBatch struct {
	Records []*ContentRecord

	// Window 记录批次覆盖的时间范围，参与缓存指纹计算
	Window TimeWindow
}

// TimeWindow 表示一个闭区间时间窗口。
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Len 返回批次内记录数。
func (b *FilteredBatch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Records)
}
