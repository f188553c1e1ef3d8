package core

import "github.com/rushteam/dealkit/pkg/utils"

// Item 是推荐链路中的统一承载结构：候选 Deal 的 ID、分数、元信息、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策。
//
// 注意：Vector 通路与 Graph 通路的 Score 不在同一尺度上（前者是
// 1-欧氏距离 的置信度，后者是图相关性分数），两条通路各自排序，
// 不做统一归一化。
type Item struct {
	ID     string
	Score  float64
	Meta   map[string]any
	Labels map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:     id,
		Score:  0,
		Meta:   make(map[string]any),
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}
