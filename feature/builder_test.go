package feature

import (
	"context"
	"testing"
	"time"

	"github.com/vibeylab/trendkit/core"
)

var now = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return now }

func event(category, brand string, price float64, daysAgo float64) *core.PurchaseEvent {
	return &core.PurchaseEvent{
		CustomerID: "c1",
		Category:   category,
		Brand:      brand,
		Price:      price,
		Timestamp:  now.Add(-time.Duration(daysAgo * 24 * float64(time.Hour))),
	}
}

func TestBuilder_FixedShape(t *testing.T) {
	b := NewBuilder(WithNow(fixedNow))

	histories := map[string][]*core.PurchaseEvent{
		"empty":  {},
		"single": {event("pants", "acme", 10, 1)},
		"long": {
			event("pants", "acme", 10, 30),
			event("shoes", "acme", 20, 20),
			event("pants", "zenith", 30, 10),
			event("tops", "acme", 40, 5),
		},
	}

	wantDim := len(b.Schema())
	for name, events := range histories {
		t.Run(name, func(t *testing.T) {
			v, err := b.Build(context.Background(), "c1", events)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if v.Dim() != wantDim {
				t.Errorf("dim = %d, want %d", v.Dim(), wantDim)
			}
			if len(v.Names) != len(v.Values) {
				t.Errorf("names/values length mismatch: %d vs %d", len(v.Names), len(v.Values))
			}
		})
	}
}

func TestBuilder_EmptyHistoryDefaults(t *testing.T) {
	b := NewBuilder(WithNow(fixedNow))
	v, err := b.Build(context.Background(), "c1", nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if got, _ := v.Get("event_count"); got != 0 {
		t.Errorf("event_count = %v, want 0", got)
	}
	if got, _ := v.Get("recency_days"); got != defaultRecencySentinelDays {
		t.Errorf("recency_days = %v, want sentinel %v", got, defaultRecencySentinelDays)
	}
	if got, _ := v.Get("price_mean"); got != 0 {
		t.Errorf("price_mean = %v, want 0", got)
	}
	// 空历史落入 Other 桶
	if got, _ := v.Get("cat_Other"); got != 1 {
		t.Errorf("cat_Other = %v, want 1", got)
	}
}

func TestBuilder_SingleEventDefaults(t *testing.T) {
	b := NewBuilder(WithNow(fixedNow))
	v, err := b.Build(context.Background(), "c1", []*core.PurchaseEvent{
		event("shoes", "acme", 50, 2),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	checks := map[string]float64{
		"event_count":        1,
		"recency_days":       2,
		"interval_mean_days": 0,
		"interval_var_days":  0,
		"price_mean":         50,
		"price_last_delta":   0,
		"brand_loyalty":      0,
		"cat_shoes":          1,
		"cat_Other":          0,
	}
	for name, want := range checks {
		if got, ok := v.Get(name); !ok || got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
}

func TestBuilder_Statistics(t *testing.T) {
	b := NewBuilder(WithNow(fixedNow))
	events := []*core.PurchaseEvent{
		event("pants", "acme", 10, 20), // 间隔 10 天
		event("pants", "acme", 30, 10), // 间隔 5 天
		event("shoes", "zenith", 20, 5),
	}

	v, err := b.Build(context.Background(), "c1", events)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if got, _ := v.Get("interval_mean_days"); got != 7.5 {
		t.Errorf("interval_mean_days = %v, want 7.5", got)
	}
	if got, _ := v.Get("interval_last_days"); got != 5 {
		t.Errorf("interval_last_days = %v, want 5", got)
	}
	// price: mean=20, var=((10-20)^2+(30-20)^2+(20-20)^2)/3
	if got, _ := v.Get("price_var"); got < 66.6 || got > 66.7 {
		t.Errorf("price_var = %v, want ~66.67", got)
	}
	if got, _ := v.Get("price_last_delta"); got != -10 {
		t.Errorf("price_last_delta = %v, want -10", got)
	}
	// 3 次购买有 1 次重复品类、1 次重复品牌
	if got, _ := v.Get("category_repeat_ratio"); got < 0.33 || got > 0.34 {
		t.Errorf("category_repeat_ratio = %v, want ~0.33", got)
	}
	if got, _ := v.Get("brand_loyalty"); got < 0.33 || got > 0.34 {
		t.Errorf("brand_loyalty = %v, want ~0.33", got)
	}
	// 转移：pants→pants, pants→shoes 均唯一
	if got, _ := v.Get("category_transition_diversity"); got != 1 {
		t.Errorf("category_transition_diversity = %v, want 1", got)
	}
	// 最近一单是 shoes
	if got, _ := v.Get("cat_shoes"); got != 1 {
		t.Errorf("cat_shoes = %v, want 1", got)
	}
}

func TestBuilder_RejectsUnsortedEvents(t *testing.T) {
	b := NewBuilder(WithNow(fixedNow))
	events := []*core.PurchaseEvent{
		event("pants", "acme", 10, 5),
		event("shoes", "acme", 20, 10), // 时间回退
	}

	_, err := b.Build(context.Background(), "c1", events)
	if !core.IsInvalidInput(err) {
		t.Errorf("want InvalidInput, got %v", err)
	}
}

func TestBuilder_RejectsNegativePrice(t *testing.T) {
	b := NewBuilder(WithNow(fixedNow))
	_, err := b.Build(context.Background(), "c1", []*core.PurchaseEvent{
		event("pants", "acme", -1, 5),
	})
	if !core.IsInvalidInput(err) {
		t.Errorf("want InvalidInput, got %v", err)
	}
}

func TestBuilder_RareCategoryToOther(t *testing.T) {
	b := NewBuilder(WithNow(fixedNow), WithCategories([]string{"pants", "shoes"}))
	v, err := b.Build(context.Background(), "c1", []*core.PurchaseEvent{
		event("hats", "acme", 10, 1),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got, _ := v.Get("cat_Other"); got != 1 {
		t.Errorf("cat_Other = %v, want 1", got)
	}
}

type stubProfileLoader struct {
	names []string
	data  map[string]float64
	err   error
}

func (s *stubProfileLoader) Names() []string { return s.names }
func (s *stubProfileLoader) Load(context.Context, string) (map[string]float64, error) {
	return s.data, s.err
}

func TestBuilder_ProfileFeatures(t *testing.T) {
	loader := &stubProfileLoader{
		names: []string{"lifetime_spend", "visit_freq"},
		data:  map[string]float64{"lifetime_spend": 1200},
	}
	b := NewBuilder(WithNow(fixedNow), WithProfileLoader(loader))

	v, err := b.Build(context.Background(), "c1", nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got, _ := v.Get("profile_lifetime_spend"); got != 1200 {
		t.Errorf("profile_lifetime_spend = %v, want 1200", got)
	}
	// 缺失特征取零值，维度不变
	if got, ok := v.Get("profile_visit_freq"); !ok || got != 0 {
		t.Errorf("profile_visit_freq = %v (ok=%v), want 0", got, ok)
	}
}

func TestBuilder_ProfileLoaderFailureDegrades(t *testing.T) {
	loader := &stubProfileLoader{
		names: []string{"lifetime_spend"},
		err:   core.NewError("feature", core.CodeTransient, "profile store down"),
	}
	b := NewBuilder(WithNow(fixedNow), WithProfileLoader(loader))

	v, err := b.Build(context.Background(), "c1", nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got, ok := v.Get("profile_lifetime_spend"); !ok || got != 0 {
		t.Errorf("degraded profile feature = %v (ok=%v), want 0", got, ok)
	}
}
