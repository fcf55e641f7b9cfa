package core

import "context"

// Predictor 是预测能力的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（service 包等）实现
//   - 模型内部（训练算法、权重）对本系统完全不透明
//   - 本系统只负责特征构造与结果整形
type Predictor interface {
	// PredictProba 对一批特征向量返回各自的品类→概率映射。
	// 返回切片长度必须与输入向量数一致，否则视为畸形输出。
	PredictProba(ctx context.Context, req *PredictRequest) (*PredictResponse, error)

	// Health 健康检查
	Health(ctx context.Context) error

	// Close 释放连接/资源
	Close() error
}

// PredictRequest 预测请求。
type PredictRequest struct {
	// Instances 特征向量列表（形状一致，见 FeatureVector 契约）
	Instances []*FeatureVector

	// ModelName 模型名称（可选，服务多模型时使用）
	ModelName string

	// ModelVersion 模型版本（可选）
	ModelVersion string
}

// PredictResponse 预测响应。
type PredictResponse struct {
	// Probabilities 与 Instances 一一对应的品类→概率映射（未整形的原始输出）
	Probabilities []map[string]float64

	// ModelVersion 服务返回的模型版本（如有）
	ModelVersion string
}

// TrendExtractor 是趋势抽取能力的领域接口。
// 输入提示词，输出应当可解析为 TrendDescriptor 的结构化文本；
// 解析与校验由 trend 包负责，实现方只管调用。
type TrendExtractor interface {
	// Extract 执行一次趋势抽取，返回模型的原始文本输出
	Extract(ctx context.Context, req *TrendRequest) (string, error)
}

// TrendRequest 趋势抽取请求。
type TrendRequest struct {
	System  string // 系统提示词（输出 schema 约定）
	Payload string // 过滤排序后的内容负载
}

// ImageEnhancer 是图像增强能力的领域接口。
type ImageEnhancer interface {
	// Enhance 基于提示词为商品图生成新背景，返回增强结果
	Enhance(ctx context.Context, req *EnhanceRequest) (*EnhanceResponse, error)
}

// EnhanceRequest 图像增强请求。
type EnhanceRequest struct {
	ImageRef string // 原始商品图引用（路径/URL/对象存储 key）
	MaskRef  string // 商品掩膜引用（可选，由外部 CV 流程产出）
	Prompt   string // 场景提示词（trend 描述 + 摄影参数合成）

	// Params 生成参数（negative_prompt、guidance_scale 等），由 enhance 包的
	// Profile 填充
	Params map[string]any
}

// EnhanceResponse 图像增强响应。
type EnhanceResponse struct {
	ImageRef string // 增强后图像的引用
	Prompt   string // 实际使用的提示词（用于审计/复现）
}
