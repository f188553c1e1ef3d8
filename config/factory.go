// Package config 提供配置驱动的 Pipeline 构建：把 YAML/JSON 里的节点
// 描述翻译成 pipeline.Node 实例。
package config

import (
	"fmt"

	"github.com/rushteam/dealkit/filter"
	"github.com/rushteam/dealkit/pipeline"
	"github.com/rushteam/dealkit/pkg/conv"
	"github.com/rushteam/dealkit/rerank"
)

// DefaultFactory 返回一个包含所有内置 Node 的默认工厂。
//
// 有状态节点（recall.vector / recall.graph / rank.relevance）依赖引擎
// 持有的图与索引，无法仅凭配置构建；需要引擎侧用
// factory.Register 自行注入。
func DefaultFactory() *pipeline.NodeFactory {
	factory := pipeline.NewNodeFactory()

	// 注册 Filter Nodes
	factory.Register("filter", buildFilterNode)

	// 注册 ReRank Nodes
	factory.Register("rerank.topn", buildTopNNode)

	// 有状态节点的占位：提示调用方注入
	factory.Register("rank.relevance", buildStatefulStub("rank.relevance"))
	factory.Register("recall.vector", buildStatefulStub("recall.vector"))
	factory.Register("recall.graph", buildStatefulStub("recall.graph"))
	factory.Register("recall.fanout", buildStatefulStub("recall.fanout"))

	return factory
}

func buildFilterNode(config map[string]any) (pipeline.Node, error) {
	filtersConfig, ok := config["filters"].([]any)
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}

	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		filterType := conv.ConfigGet[string](filterMap, "type", "")
		switch filterType {
		case "expired":
			// 无图兜底：过期时间仅从 item.Meta 读取
			filters = append(filters, &filter.ExpiredFilter{})

		case "rule":
			expr := conv.ConfigGet[string](filterMap, "expr", "")
			if expr == "" {
				return nil, fmt.Errorf("rule filter: expr not found")
			}
			filters = append(filters, filter.NewRuleFilter(expr))

		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}

	return &filter.FilterNode{Filters: filters}, nil
}

func buildTopNNode(config map[string]any) (pipeline.Node, error) {
	n := conv.ConfigGetInt64(config, "n", 0)
	return &rerank.TopNNode{N: int(n)}, nil
}

// buildStatefulStub 为依赖引擎状态的节点类型返回统一的构建错误。
func buildStatefulStub(nodeType string) func(map[string]any) (pipeline.Node, error) {
	return func(map[string]any) (pipeline.Node, error) {
		return nil, fmt.Errorf("%s requires engine state, register a custom builder", nodeType)
	}
}
