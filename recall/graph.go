package recall

import (
	"context"
	"fmt"
	"sort"

	"github.com/rushteam/dealkit/core"
	"github.com/rushteam/dealkit/graph"
	"github.com/rushteam/dealkit/pipeline"
	"github.com/rushteam/dealkit/pkg/utils"
	"github.com/rushteam/dealkit/rank"
)

// GraphRecall 是图通路召回源：遍历图中未过期的 deal 节点，
// 用 RelevanceScorer 打相关性分，取 TopN。
//
// 前置条件：用户必须已作为节点存在于图中（有画像或有交互），
// 否则返回空结果——图通路没有冷启动兜底。
type GraphRecall struct {
	Graph  *graph.Graph
	Scorer *rank.RelevanceScorer
	TopN   int
}

func (r *GraphRecall) Name() string        { return "recall.graph" }
func (r *GraphRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *GraphRecall) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口。
func (r *GraphRecall) Recall(
	_ context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Graph == nil || r.Scorer == nil || rctx == nil || rctx.UserID == "" {
		return nil, nil
	}
	if !r.Graph.HasNode(rctx.UserID) {
		return nil, nil
	}

	var interests []string
	if rctx.User != nil {
		interests = rctx.User.Interests
	}

	out := make([]*core.Item, 0)
	for _, node := range r.Graph.NodesOfType(graph.NodeDeal) {
		// 已过期 / 过期时间不可解析的 deal 在打分前即被排除
		score, ok := r.Scorer.Score(rctx.UserID, node.Key, interests)
		if !ok {
			continue
		}
		it := core.NewItem(node.Key)
		it.Score = score
		for k, v := range node.Attrs {
			it.Meta[k] = v
		}
		it.PutLabel("recall_source", utils.Label{Value: "graph", Source: "recall"})
		it.PutLabel("relevance_score", utils.Label{Value: fmt.Sprintf("%.4f", score), Source: "recall"})
		out = append(out, it)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	topN := r.TopN
	if topN <= 0 {
		topN = 10
	}
	if len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

var (
	_ Source        = (*GraphRecall)(nil)
	_ pipeline.Node = (*GraphRecall)(nil)
)
