// Package graph 提供会话级内存异构图：多类节点与多类边共用同一存储结构。
//
// 图承载 deal / merchant / category / user / interest 五类节点，以及
// offered_by / belongs_to / interested_in / similar 四类边。同一对节点
// 允许存在不同类型的多条边；同 (src, dst, type) 的边做数值属性累加合并，
// 不产生重复边。
//
// 图由引擎显式持有并传递，不做包级全局实例。节点只增不删。
package graph

import (
	"sync"
	"time"

	"github.com/rushteam/dealkit/feature"
)

// NodeType 是节点类型标签。
type NodeType string

const (
	NodeDeal     NodeType = "deal"
	NodeMerchant NodeType = "merchant"
	NodeCategory NodeType = "category"
	NodeUser     NodeType = "user"
	NodeInterest NodeType = "interest"
)

// EdgeType 是边类型标签。
type EdgeType string

const (
	EdgeOfferedBy    EdgeType = "offered_by"    // deal -> merchant
	EdgeBelongsTo    EdgeType = "belongs_to"    // deal -> category
	EdgeInterestedIn EdgeType = "interested_in" // user -> deal（交互边，带计数器）
	EdgeSimilar      EdgeType = "similar"       // deal <-> deal（对称写入两个方向）
)

// Direction 是邻居查询方向。
type Direction int

const (
	DirOut Direction = iota // 以 key 为 src
	DirIn                   // 以 key 为 dst
	DirBoth
)

// 交互计数器的属性名。
const (
	AttrWeight   = "weight"
	AttrView     = "view"
	AttrClick    = "click"
	AttrActivate = "activate"
)

// AttrExpirationDate 是 deal 节点的过期时间属性（RFC 3339 字符串）。
const AttrExpirationDate = "expirationDate"

// Node 是图节点：字符串主键全图唯一，类型标签 + 定型字段 + 开放属性。
// Vector 与 Attrs 按变体使用：deal 节点携带 Vector 与 expirationDate，
// 其余类型通常只有 Attrs 透传。
type Node struct {
	Key  string
	Type NodeType

	// Vector 是 deal 节点的 embedding，供 ConnectSimilarDeals 使用
	Vector []float64

	// Attrs 承载开放式 payload（如 deal 的 expirationDate、商户 logo）
	Attrs map[string]any
}

// Edge 是类型化的边：数值属性固定建模为 Weight 与 Counters，
// Timestamp 记录最近一次更新（交互边的衰减基准）。
type Edge struct {
	Src  string
	Dst  string
	Type EdgeType

	Weight    float64
	Counters  map[string]float64
	Timestamp time.Time
}

// Graph 是异构图存储。读写经 RWMutex 保护；构建阶段的先后次序
// （先 deal 后 user、先建图后打分）由调用方保证。
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	// out: src -> dst -> type -> edge；in 是反向索引，复用同一 *Edge
	out map[string]map[string]map[EdgeType]*Edge
	in  map[string]map[string]map[EdgeType]*Edge
}

// New 创建空图。
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		out:   make(map[string]map[string]map[EdgeType]*Edge),
		in:    make(map[string]map[string]map[EdgeType]*Edge),
	}
}

// AddNode 创建节点；节点已存在时是 no-op：盲加不覆盖既有属性，
// 修改属性必须走 SetNodeAttribute / SetNodeVector。
func (g *Graph) AddNode(key string, typ NodeType, attrs map[string]any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ensureNode(key, typ, attrs)
}

// ensureNode 惰性创建节点。已存在但类型为空时补全类型（边引用先行创建的占位节点）。
func (g *Graph) ensureNode(key string, typ NodeType, attrs map[string]any) *Node {
	if n, ok := g.nodes[key]; ok {
		if n.Type == "" && typ != "" {
			n.Type = typ
		}
		return n
	}
	n := &Node{Key: key, Type: typ, Attrs: make(map[string]any)}
	for k, v := range attrs {
		n.Attrs[k] = v
	}
	g.nodes[key] = n
	return n
}

// SetNodeAttribute 写入节点属性；节点不存在时惰性创建（类型留空，
// 待后续 AddNode 补全）。
func (g *Graph) SetNodeAttribute(key, attr string, value any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.ensureNode(key, "", nil)
	n.Attrs[attr] = value
}

// SetNodeVector 写入 deal 节点的 embedding。
func (g *Graph) SetNodeVector(key string, vec []float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.ensureNode(key, "", nil)
	cp := make([]float64, len(vec))
	copy(cp, vec)
	n.Vector = cp
}

// HasNode 判断节点是否存在。
func (g *Graph) HasNode(key string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[key]
	return ok
}

// GetNode 返回节点快照；Attrs 为浅拷贝。
func (g *Graph) GetNode(key string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[key]
	if !ok {
		return Node{}, false
	}
	return snapshotNode(n), true
}

// NodesOfType 返回指定类型的全部节点快照。
func (g *Graph) NodesOfType(typ NodeType) []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, 0)
	for _, n := range g.nodes {
		if n.Type == typ {
			out = append(out, snapshotNode(n))
		}
	}
	return out
}

func snapshotNode(n *Node) Node {
	cp := Node{Key: n.Key, Type: n.Type, Vector: n.Vector}
	cp.Attrs = make(map[string]any, len(n.Attrs))
	for k, v := range n.Attrs {
		cp.Attrs[k] = v
	}
	return cp
}

// AddEdge 创建或合并一条边：同 (src, dst, type) 已存在时数值属性累加，
// 不产生重复边；端点节点惰性创建。attrs 中 AttrWeight 进 Weight，
// 其余进 Counters。
func (g *Graph) AddEdge(src, dst string, typ EdgeType, attrs map[string]float64) {
	g.AddEdgeAt(src, dst, typ, attrs, time.Time{})
}

// AddEdgeAt 同 AddEdge，并把边的 Timestamp 推进到 ts（非零时）。
// 交互边用交互发生时刻作为衰减基准。
func (g *Graph) AddEdgeAt(src, dst string, typ EdgeType, attrs map[string]float64, ts time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ensureNode(src, "", nil)
	g.ensureNode(dst, "", nil)

	e := g.edgeOrCreateLocked(src, dst, typ)
	for k, v := range attrs {
		if k == AttrWeight {
			e.Weight += v
			continue
		}
		e.Counters[k] += v
	}
	if !ts.IsZero() && ts.After(e.Timestamp) {
		e.Timestamp = ts
	}
}

func (g *Graph) edgeLocked(src, dst string, typ EdgeType) *Edge {
	if m, ok := g.out[src]; ok {
		if tm, ok := m[dst]; ok {
			return tm[typ]
		}
	}
	return nil
}

// edgeOrCreateLocked 取出或创建 (src, dst, type) 边，并维护正反向索引。
func (g *Graph) edgeOrCreateLocked(src, dst string, typ EdgeType) *Edge {
	e := g.edgeLocked(src, dst, typ)
	if e != nil {
		return e
	}
	e = &Edge{Src: src, Dst: dst, Type: typ, Counters: make(map[string]float64)}
	if g.out[src] == nil {
		g.out[src] = make(map[string]map[EdgeType]*Edge)
	}
	if g.out[src][dst] == nil {
		g.out[src][dst] = make(map[EdgeType]*Edge)
	}
	g.out[src][dst][typ] = e
	if g.in[dst] == nil {
		g.in[dst] = make(map[string]map[EdgeType]*Edge)
	}
	if g.in[dst][src] == nil {
		g.in[dst][src] = make(map[EdgeType]*Edge)
	}
	g.in[dst][src][typ] = e
	return e
}

// HasEdge 判断同类型边是否存在。
func (g *Graph) HasEdge(src, dst string, typ EdgeType) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edgeLocked(src, dst, typ) != nil
}

// GetEdge 返回边的快照；Counters 为拷贝。
func (g *Graph) GetEdge(src, dst string, typ EdgeType) (Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e := g.edgeLocked(src, dst, typ)
	if e == nil {
		return Edge{}, false
	}
	cp := *e
	cp.Counters = make(map[string]float64, len(e.Counters))
	for k, v := range e.Counters {
		cp.Counters[k] = v
	}
	return cp, true
}

// Neighbors 返回 key 沿指定方向、指定边类型可达的节点键集合。
// typ 为空串时不限边类型。
func (g *Graph) Neighbors(key string, dir Direction, typ EdgeType) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]struct{})
	collect := func(adj map[string]map[string]map[EdgeType]*Edge) {
		for other, types := range adj[key] {
			if typ == "" {
				seen[other] = struct{}{}
				continue
			}
			if _, ok := types[typ]; ok {
				seen[other] = struct{}{}
			}
		}
	}
	if dir == DirOut || dir == DirBoth {
		collect(g.out)
	}
	if dir == DirIn || dir == DirBoth {
		collect(g.in)
	}

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	return out
}

// RelatedDeals 返回与 dealKey 同商户（offered_by 目标重合）或同类目
// （belongs_to 目标重合）的其它 deal 键集合，不含 dealKey 自身。
func (g *Graph) RelatedDeals(dealKey string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, typ := range []EdgeType{EdgeOfferedBy, EdgeBelongsTo} {
		for target, types := range g.out[dealKey] {
			if _, ok := types[typ]; !ok {
				continue
			}
			for sibling, sibTypes := range g.in[target] {
				if _, ok := sibTypes[typ]; !ok {
					continue
				}
				if sibling == dealKey {
					continue
				}
				if n, ok := g.nodes[sibling]; ok && n.Type == NodeDeal {
					seen[sibling] = struct{}{}
				}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	return out
}

// ConnectSimilarDeals 对所有携带 Vector 的 deal 节点两两计算余弦相似度，
// 超过 threshold 的无序对写入 similar 边（对称写两个方向），边权为相似度。
//
// O(n^2)：只应在 deal 集加载完成后跑一次，不要按查询触发。
func (g *Graph) ConnectSimilarDeals(threshold float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	deals := make([]*Node, 0)
	for _, n := range g.nodes {
		if n.Type == NodeDeal && len(n.Vector) > 0 {
			deals = append(deals, n)
		}
	}

	for i := 0; i < len(deals); i++ {
		for j := i + 1; j < len(deals); j++ {
			sim := feature.CosineSimilarity(deals[i].Vector, deals[j].Vector)
			if sim <= threshold {
				continue
			}
			g.linkSimilarLocked(deals[i].Key, deals[j].Key, sim)
			g.linkSimilarLocked(deals[j].Key, deals[i].Key, sim)
		}
	}
}

func (g *Graph) linkSimilarLocked(src, dst string, sim float64) {
	e := g.edgeOrCreateLocked(src, dst, EdgeSimilar)
	e.Weight += sim
}
