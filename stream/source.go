package stream

import (
	"context"
	"io"

	"github.com/vibeylab/trendkit/core"
)

// ContentSource 表示一个惰性的内容记录序列（采集器、文件、消息队列皆可）。
// Ranker 逐条拉取，不要求上游一次性物化全部记录。
// 序列结束时 Next 返回 io.EOF。
type ContentSource interface {
	Name() string
	Next(ctx context.Context) (*core.ContentRecord, error)
}

// SliceSource 把内存切片包装成 ContentSource，测试与小批量场景使用。
type SliceSource struct {
	records []*core.ContentRecord
	pos     int
}

// NewSliceSource 创建一个 SliceSource。
func NewSliceSource(records []*core.ContentRecord) *SliceSource {
	return &SliceSource{records: records}
}

func (s *SliceSource) Name() string { return "source.slice" }

func (s *SliceSource) Next(ctx context.Context) (*core.ContentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	r := s.records[s.pos]
	s.pos++
	return r, nil
}

// FuncSource 把拉取函数包装成 ContentSource，便于对接任意上游。
type FuncSource struct {
	SourceName string
	Fn         func(ctx context.Context) (*core.ContentRecord, error)
}

func (s *FuncSource) Name() string {
	if s.SourceName == "" {
		return "source.func"
	}
	return s.SourceName
}

func (s *FuncSource) Next(ctx context.Context) (*core.ContentRecord, error) {
	return s.Fn(ctx)
}
