package filter

import (
	"context"

	"github.com/rushteam/dealkit/core"
	"github.com/rushteam/dealkit/pkg/dsl"
)

// RuleFilter 是基于 CEL 表达式的规则过滤器：表达式描述"保留条件"，
// 求值为 false 的候选被过滤。适合配置驱动的投放约束，例如：
//
//	"SE" in deal.countries          // 只投放瑞典可用的 deal
//	deal.cashback >= 2.0            // 返现下限
//	label.recall_source == "graph"  // 只保留图通路候选
//
// 表达式求值出错时保留候选（规则引擎故障不应清空推荐结果）。
type RuleFilter struct {
	// Expr 是 CEL 保留条件表达式；为空时不过滤
	Expr string
}

// NewRuleFilter 创建规则过滤器。
func NewRuleFilter(expr string) *RuleFilter {
	return &RuleFilter{Expr: expr}
}

func (f *RuleFilter) Name() string {
	return "filter.rule"
}

func (f *RuleFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.Expr == "" || item == nil {
		return false, nil
	}
	keep, err := dsl.NewEval(item, rctx).Evaluate(f.Expr)
	if err != nil {
		// 求值失败时降级为保留
		return false, nil
	}
	return !keep, nil
}

var _ Filter = (*RuleFilter)(nil)
