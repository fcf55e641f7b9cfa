package predict

import (
	"context"
	"math"
	"sort"

	"github.com/vibeylab/trendkit/core"
	"github.com/vibeylab/trendkit/pkg/utils"
)

// sumTolerance 概率和的浮点容差，超过 1+ε 才触发归一化
const sumTolerance = 1e-6

// Stage 购买预测阶段：把特征向量交给注入的 Predictor 能力，
// 并对模型输出做规整与校验（丢弃非正概率、按概率降序、必要时归一化）。
// 模型内部（训练、boosting 细节）不在本层职责内。
type Stage struct {
	predictor    core.Predictor
	modelName    string
	modelVersion string
}

// Option Stage 可选参数
type Option func(*Stage)

// WithModelName 指定请求携带的模型名
func WithModelName(name string) Option {
	return func(s *Stage) {
		s.modelName = name
	}
}

// WithModelVersion 指定请求携带的模型版本
func WithModelVersion(version string) Option {
	return func(s *Stage) {
		s.modelVersion = version
	}
}

// NewStage 构造预测阶段
func NewStage(predictor core.Predictor, opts ...Option) *Stage {
	s := &Stage{
		predictor: predictor,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Predict 对单个客户的特征向量做类目购买概率预测。
// 输出保证：概率非负、按概率降序、总和 ≤ 1+ε；
// 模型不可用或输出畸形（数量不符、NaN）时返回 CodePrediction 错误。
func (s *Stage) Predict(ctx context.Context, vector *core.FeatureVector) (*core.PredictionResult, error) {
	if vector == nil {
		return nil, core.NewError("predict", core.CodeInvalidInput, "feature vector is nil")
	}
	resp, err := s.predictor.PredictProba(ctx, &core.PredictRequest{
		Instances:    []*core.FeatureVector{vector},
		ModelName:    s.modelName,
		ModelVersion: s.modelVersion,
	})
	if err != nil {
		if core.IsCancelled(err) {
			return nil, err
		}
		return nil, core.WrapError("predict", core.CodePrediction, "predictor unavailable", err)
	}
	if len(resp.Probabilities) != 1 {
		return nil, core.NewError("predict", core.CodePrediction,
			"predictor returned wrong number of rows")
	}

	ranked, err := normalize(resp.Probabilities[0])
	if err != nil {
		return nil, err
	}

	result := &core.PredictionResult{
		CustomerID: vector.CustomerID,
		Ranked:     ranked,
	}
	if resp.ModelVersion != "" {
		result.PutLabel("predictor_model", utils.Label{Value: resp.ModelVersion, Source: "predictor"})
	}
	return result, nil
}

// PredictBatch 批量预测，保持输入顺序逐个处理；单个向量的失败由调用方决定如何汇总
func (s *Stage) PredictBatch(ctx context.Context, vectors []*core.FeatureVector) ([]*core.PredictionResult, error) {
	results := make([]*core.PredictionResult, 0, len(vectors))
	for _, v := range vectors {
		r, err := s.Predict(ctx, v)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

// normalize 规整模型输出：
//  1. NaN 或非法值视为畸形输出
//  2. 丢弃非正概率的类目
//  3. 按概率降序排列（同概率按类目名升序，保证确定性）
//  4. 总和超出 1+ε 时整体归一化
func normalize(probs map[string]float64) ([]core.CategoryProbability, error) {
	ranked := make([]core.CategoryProbability, 0, len(probs))
	sum := 0.0
	for category, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, core.NewError("predict", core.CodePrediction,
				"predictor returned non-finite probability for "+category)
		}
		if p <= 0 {
			continue
		}
		ranked = append(ranked, core.CategoryProbability{Category: category, Probability: p})
		sum += p
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Probability != ranked[j].Probability {
			return ranked[i].Probability > ranked[j].Probability
		}
		return ranked[i].Category < ranked[j].Category
	})
	if sum > 1+sumTolerance {
		for i := range ranked {
			ranked[i].Probability /= sum
		}
	}
	return ranked, nil
}
