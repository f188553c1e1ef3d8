package core

import "context"

// VectorIndex 是向量索引的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（vector）实现
//   - 只覆盖召回场景需要的两个操作：Add 与 Search
//   - 索引是会话级、单进程、内存态的：不支持删除/更新，重建即重来
//
// 使用场景：
//   - 向量通路召回：用户组合向量检索近似最近邻 Deal
//
// 实现：
//   - vector.Forest（随机投影森林）实现此接口
type VectorIndex interface {
	// Add 插入一个向量及其 payload。维度不符返回 INVALID_INPUT。
	Add(vec []float64, payload IndexPayload) error

	// Search 返回与 query 近似最近的 topK 个条目（按欧氏距离升序）。
	// 空索引返回空切片而非错误；query 维度不符返回 INVALID_INPUT。
	Search(ctx context.Context, query []float64, topK int) ([]Neighbor, error)

	// Len 返回已插入的条目数
	Len() int
}

// IndexPayload 是插入索引时附带的不透明载荷。
// 索引只按 DealID 去重，不解释 Meta。
type IndexPayload struct {
	DealID string
	Meta   map[string]any
}

// Neighbor 是一次检索命中的条目。
type Neighbor struct {
	// Distance 是与查询向量的精确欧氏距离
	Distance float64

	// Vector 是命中的原始向量
	Vector []float64

	Payload IndexPayload
}

// Vector 错误定义（使用统一的 DomainError）
var (
	// ErrVectorDimMismatch 表示向量维度与索引配置不一致
	ErrVectorDimMismatch = NewDomainError(ModuleVector, ErrorCodeInvalidInput, "vector: dimension mismatch")

	// ErrVectorDegenerate 表示组合向量模长为零，无法归一化
	ErrVectorDegenerate = NewDomainError(ModuleFeature, ErrorCodeInvalidInput, "vector: zero magnitude, no embedding")
)
