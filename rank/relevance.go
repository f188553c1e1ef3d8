// Package rank 提供候选打分与排序节点。
package rank

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rushteam/dealkit/core"
	"github.com/rushteam/dealkit/graph"
	"github.com/rushteam/dealkit/pipeline"
	"github.com/rushteam/dealkit/pkg/conv"
	"github.com/rushteam/dealkit/pkg/utils"
)

// RelevanceScorer 基于异构图计算 (user, deal) 的相关性分数。
//
// 分数是三个独立项之和：
//   - 兴趣匹配项：用户兴趣与 deal 的 belongs_to 类目邻居的重合比例；
//     兴趣为空时为 0（显式规避除零，绝不产出 NaN）
//   - 交互项：交互边的加权计数（view/click/activate）乘以
//     exp(-距最近交互天数/衰减窗口) 的时间衰减；无交互边为 0
//   - 时效项：min(1, 距过期天数/30)，clamp 到 [0,1]
//
// 已过期（或过期时间不可解析）的 deal 不参与打分：Score 返回 ok=false，
// 调用方应在打分前就将其剔出候选集。
type RelevanceScorer struct {
	Graph   *graph.Graph
	Weights core.InteractionWeights

	// Now 可注入，便于测试；为空时取 time.Now
	Now func() time.Time
}

// 时效项的饱和窗口（天）：过期还早于 30 天的 deal 时效项封顶为 1。
const timeRelevanceWindowDays = 30

// Score 计算相关性分数。deal 已过期或无法确定过期时间时返回 (0, false)。
func (s *RelevanceScorer) Score(userID, dealID string, interests []string) (float64, bool) {
	if s.Graph == nil {
		return 0, false
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	expiry, ok := s.dealExpiry(dealID)
	if !ok || expiry.Before(now) {
		return 0, false
	}

	score := s.interestTerm(dealID, interests) +
		s.interactionTerm(userID, dealID, now) +
		timeRelevanceTerm(expiry, now)
	return score, true
}

// dealExpiry 读取 deal 节点的过期时间属性。
func (s *RelevanceScorer) dealExpiry(dealID string) (time.Time, bool) {
	node, ok := s.Graph.GetNode(dealID)
	if !ok {
		return time.Time{}, false
	}
	raw, ok := conv.ToString(node.Attrs[graph.AttrExpirationDate])
	if !ok || raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// interestTerm 计算兴趣重合比例。
func (s *RelevanceScorer) interestTerm(dealID string, interests []string) float64 {
	if len(interests) == 0 {
		return 0
	}
	categories := make(map[string]struct{})
	for _, c := range s.Graph.Neighbors(dealID, graph.DirOut, graph.EdgeBelongsTo) {
		categories[c] = struct{}{}
	}
	matched := 0
	for _, interest := range interests {
		if _, ok := categories[interest]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(interests))
}

// interactionTerm 计算带时间衰减的交互项。
func (s *RelevanceScorer) interactionTerm(userID, dealID string, now time.Time) float64 {
	edge, ok := s.Graph.GetEdge(userID, dealID, graph.EdgeInterestedIn)
	if !ok {
		return 0
	}
	raw := s.Weights.View*edge.Counters[graph.AttrView] +
		s.Weights.Click*edge.Counters[graph.AttrClick] +
		s.Weights.Activate*edge.Counters[graph.AttrActivate]
	if raw == 0 {
		return 0
	}
	days := now.Sub(edge.Timestamp).Hours() / 24
	if days < 0 {
		days = 0
	}
	decayDays := s.Weights.DecayDays
	if decayDays <= 0 {
		decayDays = 30
	}
	return raw * math.Exp(-days/decayDays)
}

// timeRelevanceTerm 计算时效项。
func timeRelevanceTerm(expiry, now time.Time) float64 {
	days := expiry.Sub(now).Hours() / 24
	if days <= 0 {
		return 0
	}
	term := days / timeRelevanceWindowDays
	if term > 1 {
		return 1
	}
	return term
}

// RelevanceNode 是把 RelevanceScorer 接入 Pipeline 的 Rank 节点。
// 打分失败（已过期）的候选被剔除；结果按分数降序，平分次序不保证。
type RelevanceNode struct {
	Scorer *RelevanceScorer
}

func (n *RelevanceNode) Name() string        { return "rank.relevance" }
func (n *RelevanceNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *RelevanceNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Scorer == nil || rctx == nil || len(items) == 0 {
		return items, nil
	}
	var interests []string
	if rctx.User != nil {
		interests = rctx.User.Interests
	}

	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		score, ok := n.Scorer.Score(rctx.UserID, it.ID, interests)
		if !ok {
			continue
		}
		it.Score = score
		it.PutLabel("rank_model", utils.Label{Value: "graph_relevance", Source: "rank"})
		it.PutLabel("relevance_score", utils.Label{Value: fmt.Sprintf("%.4f", score), Source: "rank"})
		out = append(out, it)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

var _ pipeline.Node = (*RelevanceNode)(nil)
