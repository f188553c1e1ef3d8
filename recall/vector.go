package recall

import (
	"context"
	"fmt"

	"github.com/rushteam/dealkit/core"
	"github.com/rushteam/dealkit/feature"
	"github.com/rushteam/dealkit/pipeline"
	"github.com/rushteam/dealkit/pkg/utils"
)

// VectorRecall 是向量通路召回源：把用户画像组合成 embedding，
// 在随机投影森林里做近似最近邻检索。
//
// 每个命中的置信度为 1 - 欧氏距离（查询向量与命中向量均已 L2 归一化，
// 距离落在 [0, 2]，置信度可为负，排序语义不受影响）。
type VectorRecall struct {
	Index      core.VectorIndex
	Vectorizer *feature.Vectorizer
	TopK       int

	// UserVector 如果提供，优先使用；否则从 rctx.User 组合
	UserVector []float64
}

func (r *VectorRecall) Name() string        { return "recall.vector" }
func (r *VectorRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *VectorRecall) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口。
// 无法得到合法 embedding（画像为空、全零组合向量、维度不符）时返回空结果，
// 不向上抛错：向量通路是尽力而为的个性化层。
func (r *VectorRecall) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Index == nil {
		return nil, nil
	}

	userVector := r.UserVector
	if len(userVector) == 0 {
		userVector = r.buildUserVector(rctx)
	}
	if len(userVector) == 0 {
		return nil, nil
	}

	topK := r.TopK
	if topK <= 0 {
		topK = 10
	}

	neighbors, err := r.Index.Search(ctx, userVector, topK)
	if err != nil {
		// 形状错误 / 索引不可用：降级为空结果
		return nil, nil
	}

	out := make([]*core.Item, 0, len(neighbors))
	for _, nb := range neighbors {
		it := core.NewItem(nb.Payload.DealID)
		it.Score = 1 - nb.Distance
		for k, v := range nb.Payload.Meta {
			it.Meta[k] = v
		}
		it.PutLabel("recall_source", utils.Label{Value: "vector", Source: "recall"})
		it.PutLabel("confidence", utils.Label{Value: fmt.Sprintf("%.4f", it.Score), Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}

// buildUserVector 把画像的四路信号组合成归一化 embedding：
// 兴趣+购物频率文本、问卷、地理、设备。组合失败（全零）返回 nil。
func (r *VectorRecall) buildUserVector(rctx *core.RecommendContext) []float64 {
	if rctx == nil || rctx.User == nil || r.Vectorizer == nil {
		return nil
	}
	u := rctx.User
	combined, err := feature.Combine(
		r.Vectorizer.Vectorize(u.InterestText()),
		r.Vectorizer.SurveyVector(u.SurveyAnswers),
		r.Vectorizer.GeoVector(u.Geo),
		r.Vectorizer.DeviceVector(u.Device),
	)
	if err != nil {
		return nil
	}
	return combined
}

var (
	_ Source        = (*VectorRecall)(nil)
	_ pipeline.Node = (*VectorRecall)(nil)
)
