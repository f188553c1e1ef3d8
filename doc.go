// Package dealkit 是一个端侧 deal 个性化推荐引擎（Deal Kit）。
//
// 设计要点：
// - 双通路：向量通路（特征哈希 + 随机投影森林 ANN）与图通路（异构图相关性打分）
//   彼此独立，分数不在同一尺度，不做统一排序
// - 会话级内存态：图与索引由引擎实例持有，Load/Save 是仅有的 I/O 挂起点
// - Pipeline 可扩展：召回/过滤/排序逻辑通过 Node 串联，自定义 Node 即可插拔
package dealkit

import "github.com/rushteam/dealkit/pipeline"

// 轻量 facade：便于用户直接 import "dealkit" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
