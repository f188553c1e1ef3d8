package filter

import (
	"context"
	"time"

	"github.com/rushteam/dealkit/core"
	"github.com/rushteam/dealkit/graph"
	"github.com/rushteam/dealkit/pkg/conv"
)

// ExpiredFilter 过滤掉已过期的 deal：过期时间早于 now、缺失或不可解析
// 的候选一律剔除——过期候选绝不进入打分环节。
//
// 过期时间按优先级取自：item.Meta["expirationDate"]，其次图中 deal 节点
// 的同名属性。
type ExpiredFilter struct {
	// Graph 可选；提供时作为 Meta 缺失的兜底来源
	Graph *graph.Graph

	// Now 可注入，便于测试；为空时取 time.Now
	Now func() time.Time
}

func (f *ExpiredFilter) Name() string {
	return "filter.expired"
}

func (f *ExpiredFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	now := time.Now()
	if f.Now != nil {
		now = f.Now()
	}

	raw, _ := conv.ToString(item.Meta[graph.AttrExpirationDate])
	if raw == "" && f.Graph != nil {
		if node, ok := f.Graph.GetNode(item.ID); ok {
			raw, _ = conv.ToString(node.Attrs[graph.AttrExpirationDate])
		}
	}
	if raw == "" {
		return true, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Before(now), nil
		}
	}
	return true, nil
}

var _ Filter = (*ExpiredFilter)(nil)
