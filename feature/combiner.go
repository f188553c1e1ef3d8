package feature

import (
	"math"

	"github.com/rushteam/dealkit/core"
)

// Combine 把多个同维向量合并为一个 L2 归一化的 embedding：
// 逐元素求和后除以和向量的欧氏模长。
//
// 边界行为：
//   - 输入为空或维度不一致：返回 ErrVectorDimMismatch（形状错误快速失败，
//     绝不静默截断/补齐）
//   - 和向量模长为零（全零输入）：返回 ErrVectorDegenerate，调用方应视为
//     "无 embedding"，不得入索引；绝不产出 NaN 分量
func Combine(vectors ...[]float64) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, core.ErrVectorDimMismatch
	}
	length := len(vectors[0])
	if length == 0 {
		return nil, core.ErrVectorDimMismatch
	}
	sum := make([]float64, length)
	for _, vec := range vectors {
		if len(vec) != length {
			return nil, core.ErrVectorDimMismatch
		}
		for i, val := range vec {
			sum[i] += val
		}
	}

	var sq float64
	for _, val := range sum {
		sq += val * val
	}
	if sq == 0 {
		return nil, core.ErrVectorDegenerate
	}
	mag := math.Sqrt(sq)
	for i := range sum {
		sum[i] /= mag
	}
	return sum, nil
}

// Magnitude 返回向量的欧氏模长。
func Magnitude(vec []float64) float64 {
	var sq float64
	for _, val := range vec {
		sq += val * val
	}
	return math.Sqrt(sq)
}

// CosineSimilarity 计算余弦相似度；维度不符或任一向量为零向量时返回 0。
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// EuclideanDistance 计算欧氏距离；维度不符时返回 +Inf。
func EuclideanDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
