package predict

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/vibeylab/trendkit/core"
)

// stubPredictor 固定输出的模型桩
type stubPredictor struct {
	probs []map[string]float64
	err   error
}

func (s *stubPredictor) PredictProba(ctx context.Context, req *core.PredictRequest) (*core.PredictResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &core.PredictResponse{Probabilities: s.probs, ModelVersion: "v1"}, nil
}

func (s *stubPredictor) Health(ctx context.Context) error { return nil }
func (s *stubPredictor) Close() error                     { return nil }

func vec(customerID string) *core.FeatureVector {
	return &core.FeatureVector{
		CustomerID: customerID,
		Names:      []string{"event_count"},
		Values:     []float64{3},
	}
}

func TestStage_Predict_SortsDescending(t *testing.T) {
	stage := NewStage(&stubPredictor{probs: []map[string]float64{{
		"pants": 0.2,
		"shoes": 0.5,
		"tops":  0.3,
	}}})

	got, err := stage.Predict(context.Background(), vec("c1"))
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	want := []string{"shoes", "tops", "pants"}
	if len(got.Ranked) != len(want) {
		t.Fatalf("Ranked length = %d, want %d", len(got.Ranked), len(want))
	}
	for i, cat := range want {
		if got.Ranked[i].Category != cat {
			t.Errorf("Ranked[%d] = %s, want %s", i, got.Ranked[i].Category, cat)
		}
	}
	for i := 1; i < len(got.Ranked); i++ {
		if got.Ranked[i].Probability > got.Ranked[i-1].Probability {
			t.Errorf("probabilities not descending at %d", i)
		}
	}
}

func TestStage_Predict_DropsNonPositive(t *testing.T) {
	stage := NewStage(&stubPredictor{probs: []map[string]float64{{
		"shoes": 0.6,
		"pants": 0,
		"tops":  -0.1,
	}}})

	got, err := stage.Predict(context.Background(), vec("c1"))
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if len(got.Ranked) != 1 || got.Ranked[0].Category != "shoes" {
		t.Errorf("Ranked = %v, want only shoes", got.Ranked)
	}
}

func TestStage_Predict_Renormalizes(t *testing.T) {
	stage := NewStage(&stubPredictor{probs: []map[string]float64{{
		"shoes": 0.8,
		"pants": 0.6,
	}}})

	got, err := stage.Predict(context.Background(), vec("c1"))
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	sum := 0.0
	for _, cp := range got.Ranked {
		sum += cp.Probability
	}
	if sum > 1+1e-6 {
		t.Errorf("probability sum = %v, want <= 1", sum)
	}
	// 归一化保序
	if got.Ranked[0].Category != "shoes" {
		t.Errorf("Ranked[0] = %s, want shoes", got.Ranked[0].Category)
	}
}

func TestStage_Predict_SumBelowOneUntouched(t *testing.T) {
	stage := NewStage(&stubPredictor{probs: []map[string]float64{{
		"shoes": 0.4,
		"pants": 0.3,
	}}})

	got, err := stage.Predict(context.Background(), vec("c1"))
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if got.Ranked[0].Probability != 0.4 || got.Ranked[1].Probability != 0.3 {
		t.Errorf("Ranked = %v, want original probabilities", got.Ranked)
	}
}

func TestStage_Predict_NaNIsPredictionError(t *testing.T) {
	stage := NewStage(&stubPredictor{probs: []map[string]float64{{
		"shoes": math.NaN(),
	}}})

	_, err := stage.Predict(context.Background(), vec("c1"))
	if !core.IsPrediction(err) {
		t.Errorf("want prediction error, got %v", err)
	}
}

func TestStage_Predict_WrongArity(t *testing.T) {
	stage := NewStage(&stubPredictor{probs: []map[string]float64{
		{"shoes": 0.5},
		{"pants": 0.5},
	}})

	_, err := stage.Predict(context.Background(), vec("c1"))
	if !core.IsPrediction(err) {
		t.Errorf("want prediction error for wrong arity, got %v", err)
	}
}

func TestStage_Predict_ServiceErrorWrapped(t *testing.T) {
	stage := NewStage(&stubPredictor{err: errors.New("connection refused")})

	_, err := stage.Predict(context.Background(), vec("c1"))
	if !core.IsPrediction(err) {
		t.Errorf("want prediction error, got %v", err)
	}
}

func TestStage_Predict_CancelledPassesThrough(t *testing.T) {
	stage := NewStage(&stubPredictor{err: context.Canceled})

	_, err := stage.Predict(context.Background(), vec("c1"))
	if !core.IsCancelled(err) {
		t.Errorf("want cancelled, got %v", err)
	}
}

func TestStage_Predict_NilVector(t *testing.T) {
	stage := NewStage(&stubPredictor{})

	_, err := stage.Predict(context.Background(), nil)
	if !core.IsInvalidInput(err) {
		t.Errorf("want invalid input, got %v", err)
	}
}

func TestStage_Predict_ModelLabel(t *testing.T) {
	stage := NewStage(&stubPredictor{probs: []map[string]float64{{"shoes": 0.5}}},
		WithModelName("purchase_clf"))

	got, err := stage.Predict(context.Background(), vec("c1"))
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if lb, ok := got.Labels["predictor_model"]; !ok || lb.Value != "v1" {
		t.Errorf("Labels[predictor_model] = %v, want v1", got.Labels)
	}
}
