// Package recall 提供候选生成：向量通路、图通路，以及多源并发 fan-out。
//
// 两条通路彼此独立，分数不在同一尺度上，默认不合并为单一排序；
// Fanout 只做候选集合并与来源标注，不做跨通路的分数归一。
package recall

import (
	"context"

	"github.com/rushteam/dealkit/core"
)

// Source 表示一个可复用的召回源（向量/图/...）。
// 你可以把它理解为“可并发 fan-out 的策略单元”。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}
