// Package vector 提供会话级内存向量索引的实现。
//
// Forest 是随机投影森林（random projection forest）：多棵二分空间划分树
// 独立划分同一批向量，检索时对各树叶子候选取并集后做精确距离排序。
// 这是近似检索：落在未访问叶子中的真实最近邻不会被找到；树越多、
// 叶子越小，召回率越高，代价是建索引与检索耗时。
package vector

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/dealkit/core"
	"github.com/rushteam/dealkit/feature"
)

// Forest 是 core.VectorIndex 的随机投影森林实现。
//
// 约束：
//   - 插入后不可更新/删除；索引随会话重建
//   - 树的构建推迟到首次 Search（插入全部完成后查询，候选集与
//     逐条构建等价）
//   - Add/Search 线程安全；但构建期间的 Add 会使已建森林失效并在
//     下次 Search 时重建
type Forest struct {
	length      int
	forestSize  int
	maxLeafSize int

	// seed 固定时构建可复现，用于测试；为 0 时取当前时间
	seed int64

	mu    sync.RWMutex
	items []*indexedItem
	trees []*treeNode
	dirty bool
}

type indexedItem struct {
	vec     []float64
	payload core.IndexPayload
}

// treeNode 既是内部节点（refA/refB 定义划分超平面）也是叶子（items 非空）。
type treeNode struct {
	refA, refB []float64
	left       *treeNode
	right      *treeNode
	items      []*indexedItem
}

// ForestOption 配置 Forest。
type ForestOption func(*Forest)

// WithSeed 固定随机种子，使森林构建可复现（测试用）。
func WithSeed(seed int64) ForestOption {
	return func(f *Forest) { f.seed = seed }
}

// NewForest 创建随机投影森林索引。
// 非法参数回退默认值：length=1000、forestSize=10、maxLeafSize=50。
func NewForest(length, forestSize, maxLeafSize int, opts ...ForestOption) *Forest {
	if length <= 0 {
		length = core.DefaultVectorLen
	}
	if forestSize <= 0 {
		forestSize = core.DefaultForestSize
	}
	if maxLeafSize <= 0 {
		maxLeafSize = core.DefaultMaxLeafSize
	}
	f := &Forest{
		length:      length,
		forestSize:  forestSize,
		maxLeafSize: maxLeafSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var _ core.VectorIndex = (*Forest)(nil)

// Add 插入一个向量与其 payload。维度不符快速失败，绝不截断/补齐。
func (f *Forest) Add(vec []float64, payload core.IndexPayload) error {
	if len(vec) != f.length {
		return core.ErrVectorDimMismatch
	}
	cp := make([]float64, len(vec))
	copy(cp, vec)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, &indexedItem{vec: cp, payload: payload})
	f.dirty = true
	return nil
}

// Len 返回已插入条目数。
func (f *Forest) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.items)
}

// Search 返回与 query 近似最近的 topK 条目（按精确欧氏距离升序）。
// 空索引返回空切片；维度不符返回 INVALID_INPUT。
func (f *Forest) Search(ctx context.Context, query []float64, topK int) ([]core.Neighbor, error) {
	if len(query) != f.length {
		return nil, core.ErrVectorDimMismatch
	}
	if topK <= 0 {
		topK = 10
	}

	if err := f.ensureBuilt(ctx); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.items) == 0 {
		return []core.Neighbor{}, nil
	}

	// 1. 各树叶子候选取并集，按 DealID 去重
	candidates := make(map[string]*indexedItem)
	for _, root := range f.trees {
		leaf := descend(root, query)
		for _, it := range leaf.items {
			candidates[it.payload.DealID] = it
		}
	}

	// 2. 对候选做精确距离排序
	out := make([]core.Neighbor, 0, len(candidates))
	for _, it := range candidates {
		out = append(out, core.Neighbor{
			Distance: feature.EuclideanDistance(query, it.vec),
			Vector:   it.vec,
			Payload:  it.payload,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })

	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// ensureBuilt 在首次查询或插入后的查询前重建森林。
// 各树随机化互相独立，用 errgroup 并行构建；ctx 取消时放弃整座在建森林，
// 不向树内部注入中途取消。
func (f *Forest) ensureBuilt(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dirty {
		return nil
	}

	seed := f.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	trees := make([]*treeNode, f.forestSize)
	eg, _ := errgroup.WithContext(ctx)
	for i := 0; i < f.forestSize; i++ {
		i := i
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seed + int64(i)))
			trees[i] = buildTree(f.items, f.maxLeafSize, rng)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	f.trees = trees
	f.dirty = false
	return nil
}

// buildTree 递归划分：随机取两个成员向量为参照，按"离谁更近"二分，
// 直到节点持有不超过 maxLeafSize 个点。无法有效二分（参照重合、
// 点全部落向一侧）时提前成叶，避免死递归。
func buildTree(items []*indexedItem, maxLeafSize int, rng *rand.Rand) *treeNode {
	if len(items) <= maxLeafSize {
		return &treeNode{items: items}
	}

	a := items[rng.Intn(len(items))]
	b := items[rng.Intn(len(items))]
	for i := 0; b == a && i < 3; i++ {
		b = items[rng.Intn(len(items))]
	}
	if b == a {
		return &treeNode{items: items}
	}

	left := make([]*indexedItem, 0, len(items)/2)
	right := make([]*indexedItem, 0, len(items)/2)
	for _, it := range items {
		if closerToA(it.vec, a.vec, b.vec) {
			left = append(left, it)
		} else {
			right = append(right, it)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &treeNode{items: items}
	}

	return &treeNode{
		refA:  a.vec,
		refB:  b.vec,
		left:  buildTree(left, maxLeafSize, rng),
		right: buildTree(right, maxLeafSize, rng),
	}
}

// descend 沿构建时相同的超平面测试下行到叶子。
func descend(node *treeNode, query []float64) *treeNode {
	for node.items == nil {
		if closerToA(query, node.refA, node.refB) {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node
}

// closerToA 判断 p 位于 a/b 等距超平面靠 a 的一侧。
// 展开后等价于比较到 a、b 的平方距离，免开方。
func closerToA(p, a, b []float64) bool {
	var da, db float64
	for i := range p {
		d1 := p[i] - a[i]
		d2 := p[i] - b[i]
		da += d1 * d1
		db += d2 * d2
	}
	return da <= db
}
