package trend

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/vibeylab/trendkit/core"
	"github.com/vibeylab/trendkit/retry"
	"github.com/vibeylab/trendkit/store"
)

const validReply = `{
	"scene_description": {
		"environment": "sunlit loft studio with exposed brick and wide windows",
		"lighting": "golden hour side lighting with soft shadows",
		"colors": ["terracotta", "sage green", "cream"],
		"textures": ["linen", "raw denim"],
		"mood": "relaxed urban editorial"
	}
}`

// scriptedExtractor 按脚本逐次返回结果的趋势服务桩
type scriptedExtractor struct {
	replies []string
	errs    []error
	calls   int
}

func (s *scriptedExtractor) Extract(ctx context.Context, req *core.TrendRequest) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return s.replies[len(s.replies)-1], nil
}

func instantCaller() *retry.Caller {
	return retry.NewCaller(retry.WithSleep(func(ctx context.Context, d time.Duration) error {
		return nil
	}))
}

func testBatch() *core.FilteredBatch {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &core.FilteredBatch{
		Records: []*core.ContentRecord{
			{
				ID:        "r1",
				Text:      "Vintage leather jackets paired with wide pants everywhere downtown",
				Comments:  []string{"The earthy tones working with brass hardware"},
				Score:     120,
				Timestamp: now,
			},
			{
				ID:        "r2",
				Text:      "Linen sets dominating summer street style photos",
				Score:     80,
				Timestamp: now.Add(-time.Hour),
			},
		},
		Window: core.TimeWindow{Start: now.Add(-time.Hour), End: now},
	}
}

func TestStage_Analyze_ParsesDescriptor(t *testing.T) {
	ext := &scriptedExtractor{replies: []string{validReply}}
	stage := NewStage(ext, WithCaller(instantCaller()))

	got, err := stage.Analyze(context.Background(), testBatch())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got.Environment == "" || got.Lighting == "" || got.Mood == "" {
		t.Errorf("descriptor missing fields: %+v", got)
	}
	if len(got.Colors) != 3 || got.Colors[0] != "terracotta" {
		t.Errorf("Colors = %v", got.Colors)
	}
	if got.FallbackUsed {
		t.Error("FallbackUsed should be false for a live extraction")
	}
}

func TestStage_Analyze_TransientRetried(t *testing.T) {
	ext := &scriptedExtractor{
		errs:    []error{core.NewError("trend", core.CodeTransient, "throttled"), nil},
		replies: []string{"", validReply},
	}
	stage := NewStage(ext, WithCaller(instantCaller()))

	_, err := stage.Analyze(context.Background(), testBatch())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if ext.calls != 2 {
		t.Errorf("calls = %d, want 2", ext.calls)
	}
}

func TestStage_Analyze_ParseErrorNotRetried(t *testing.T) {
	ext := &scriptedExtractor{replies: []string{"not json at all"}}
	stage := NewStage(ext, WithCaller(instantCaller()))

	_, err := stage.Analyze(context.Background(), testBatch())
	if !core.IsParse(err) {
		t.Fatalf("want parse error, got %v", err)
	}
	if ext.calls != 1 {
		t.Errorf("calls = %d, want 1 (parse failures must not be retried)", ext.calls)
	}
}

func TestStage_Analyze_MissingFieldsIsParseError(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"no wrapper", `{"environment": "studio"}`},
		{"missing environment", `{"scene_description": {"lighting": "soft", "colors": ["red"], "textures": ["wool"], "mood": "calm"}}`},
		{"empty colors", `{"scene_description": {"environment": "loft", "lighting": "soft", "colors": [], "textures": ["wool"], "mood": "calm"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := &scriptedExtractor{replies: []string{tt.reply}}
			stage := NewStage(ext, WithCaller(instantCaller()))
			if _, err := stage.Analyze(context.Background(), testBatch()); !core.IsParse(err) {
				t.Errorf("want parse error, got %v", err)
			}
		})
	}
}

func TestStage_Analyze_CacheHit(t *testing.T) {
	ms := store.NewMemoryStore()
	defer ms.Close()

	ext := &scriptedExtractor{replies: []string{validReply}}
	stage := NewStage(ext, WithCaller(instantCaller()), WithCache(ms, time.Hour))

	batch := testBatch()
	if _, err := stage.Analyze(context.Background(), batch); err != nil {
		t.Fatalf("first Analyze() error = %v", err)
	}
	if _, err := stage.Analyze(context.Background(), batch); err != nil {
		t.Fatalf("second Analyze() error = %v", err)
	}
	if ext.calls != 1 {
		t.Errorf("calls = %d, want 1 (second run should hit the cache)", ext.calls)
	}
}

func TestStage_Analyze_DifferentBatchMisses(t *testing.T) {
	ms := store.NewMemoryStore()
	defer ms.Close()

	ext := &scriptedExtractor{replies: []string{validReply}}
	stage := NewStage(ext, WithCaller(instantCaller()), WithCache(ms, time.Hour))

	if _, err := stage.Analyze(context.Background(), testBatch()); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	other := testBatch()
	other.Records = other.Records[:1]
	if _, err := stage.Analyze(context.Background(), other); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if ext.calls != 2 {
		t.Errorf("calls = %d, want 2 (different batch must not share cache)", ext.calls)
	}
}

func TestStage_Analyze_EmptyBatch(t *testing.T) {
	stage := NewStage(&scriptedExtractor{replies: []string{validReply}})
	if _, err := stage.Analyze(context.Background(), &core.FilteredBatch{}); !core.IsInvalidInput(err) {
		t.Errorf("want invalid input, got %v", err)
	}
}

func TestStage_Analyze_OversizedPayloadRejected(t *testing.T) {
	now := time.Now()
	records := make([]*core.ContentRecord, 0, 600)
	for i := 0; i < 600; i++ {
		records = append(records, &core.ContentRecord{
			ID:        fmt.Sprintf("r%03d", i),
			Text:      strings.Repeat("velvet emerald blazer tailored oversized silhouette ", 3),
			Score:     float64(i),
			Timestamp: now,
		})
	}
	batch := &core.FilteredBatch{Records: records, Window: core.TimeWindow{Start: now, End: now}}

	stage := NewStage(&scriptedExtractor{replies: []string{validReply}}, WithCaller(instantCaller()))
	if _, err := stage.Analyze(context.Background(), batch); !core.IsInvalidInput(err) {
		t.Errorf("want invalid input for oversized payload, got %v", err)
	}
}

func TestBuildPayload_TruncatesAndSkipsEmpty(t *testing.T) {
	now := time.Now()
	batch := &core.FilteredBatch{
		Records: []*core.ContentRecord{
			{
				ID:        "long",
				Text:      strings.Repeat("structured wool overcoat charcoal herringbone pattern winter layering ", 5),
				Comments:  []string{"one", "two", "three", "four", "five"},
				Score:     10,
				Timestamp: now,
			},
			{ID: "empty", Text: "!!! ???", Score: 5, Timestamp: now},
		},
	}
	payload, err := BuildPayload(batch)
	if err != nil {
		t.Fatalf("BuildPayload() error = %v", err)
	}
	if strings.Contains(payload, "empty") {
		t.Error("record with empty cleaned text should be skipped")
	}
	// 评论最多保留 MaxComments 条
	if strings.Count(payload, "\"c\":") > 1 {
		t.Errorf("payload = %s", payload)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("EstimateTokens(empty) = %d", got)
	}
	// 10 词 × 1.3 = 13
	if got := EstimateTokens(strings.Repeat("word ", 10)); got != 13 {
		t.Errorf("EstimateTokens(10 words) = %d, want 13", got)
	}
}
