// Package stream 实现内容流的过滤与排序：有界内存下的 top-K 相关性选择。
package stream

import (
	"container/heap"
	"context"
	"errors"
	"io"
	"sort"

	"github.com/vibeylab/trendkit/core"
)

// Ranker 从惰性内容源逐条拉取记录，过滤后维护一个大小不超过 maxPosts 的
// 候选集（最小堆，堆顶是当前最弱候选），整个过程内存占用 O(maxPosts)。
//
// 确定性：打分是 record 的纯函数，候选序是全序（分数 → 时间新者优先 → ID），
// 相同输入必然产出相同批次。
type Ranker struct {
	maxPosts   int
	predicates []Predicate
	scorer     func(*core.ContentRecord) float64
}

// RankerOption Ranker 配置选项。
type RankerOption func(*Ranker)

// WithPredicates 替换谓词链（默认 DefaultPredicates）。
func WithPredicates(ps ...Predicate) RankerOption {
	return func(r *Ranker) { r.predicates = ps }
}

// WithScorer 替换打分函数。默认 score + comment_count，保持历史口径；
// 注意替换后 ContentRecord.Less 的次级排序键（时间、ID）仍然生效。
func WithScorer(fn func(*core.ContentRecord) float64) RankerOption {
	return func(r *Ranker) { r.scorer = fn }
}

// NewRanker 创建一个 Ranker。maxPosts <= 0 视为输入错误，在 Ingest 时报出。
func NewRanker(maxPosts int, opts ...RankerOption) *Ranker {
	r := &Ranker{
		maxPosts:   maxPosts,
		predicates: DefaultPredicates(),
		scorer:     func(rec *core.ContentRecord) float64 { return rec.Relevance() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ingest 消费整个内容源，返回按相关性降序、长度不超过 maxPosts 的批次。
// 合格记录不足 maxPosts 时返回较短批次，不是错误。
func (r *Ranker) Ingest(ctx context.Context, src ContentSource) (*core.FilteredBatch, error) {
	if r.maxPosts <= 0 {
		return nil, core.NewError("stream", core.CodeInvalidInput, "max_posts must be positive")
	}

	h := &candidateHeap{less: r.less}

	for {
		rec, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, core.WrapError("stream", core.CodeCancelled, "ingest cancelled", err)
			}
			return nil, core.WrapError("stream", core.CodeInvalidInput, "content source failed", err)
		}

		keep, err := r.keep(rec)
		if err != nil {
			return nil, err
		}
		if !keep {
			continue
		}

		if h.Len() < r.maxPosts {
			heap.Push(h, rec)
			continue
		}
		// 候选集已满：只有强于当前最弱候选的记录才进入，弱者原地淘汰
		if r.less(h.items[0], rec) {
			h.items[0] = rec
			heap.Fix(h, 0)
		}
	}

	records := append([]*core.ContentRecord(nil), h.items...)
	sort.Slice(records, func(i, j int) bool {
		return r.less(records[j], records[i]) // 降序
	})

	return &core.FilteredBatch{
		Records: records,
		Window:  window(records),
	}, nil
}

// IngestSlice 是 Ingest 的便捷入口，直接消费内存切片。
func (r *Ranker) IngestSlice(ctx context.Context, records []*core.ContentRecord) (*core.FilteredBatch, error) {
	return r.Ingest(ctx, NewSliceSource(records))
}

func (r *Ranker) keep(rec *core.ContentRecord) (bool, error) {
	for _, p := range r.predicates {
		ok, err := p.Keep(rec)
		if err != nil {
			return false, core.WrapError("stream", core.CodeInvalidInput, "predicate "+p.Name()+" failed", err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// less 是候选全序：先比 scorer 分，再按 ContentRecord.Less 的次级键。
func (r *Ranker) less(a, b *core.ContentRecord) bool {
	sa, sb := r.scorer(a), r.scorer(b)
	if sa != sb {
		return sa < sb
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID > b.ID
}

func window(records []*core.ContentRecord) core.TimeWindow {
	var w core.TimeWindow
	for i, rec := range records {
		if i == 0 || rec.Timestamp.Before(w.Start) {
			w.Start = rec.Timestamp
		}
		if i == 0 || rec.Timestamp.After(w.End) {
			w.End = rec.Timestamp
		}
	}
	return w
}

// candidateHeap 是以候选全序为比较器的最小堆，堆顶为最弱候选。
type candidateHeap struct {
	items []*core.ContentRecord
	less  func(a, b *core.ContentRecord) bool
}

func (h *candidateHeap) Len() int           { return len(h.items) }
func (h *candidateHeap) Less(i, j int) bool { return h.less(h.items[i], h.items[j]) }
func (h *candidateHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *candidateHeap) Push(x any) {
	h.items = append(h.items, x.(*core.ContentRecord))
}

func (h *candidateHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
