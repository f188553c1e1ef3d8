package graph

import (
	"fmt"
	"sync"
	"time"

	"github.com/rushteam/dealkit/core"
	"github.com/rushteam/dealkit/pkg/conv"
)

// Kind 是交互类型。
type Kind string

const (
	KindView     Kind = "view"
	KindClick    Kind = "click"
	KindActivate Kind = "activate"
)

// ValidKind 校验交互类型。
func ValidKind(k Kind) bool {
	switch k {
	case KindView, KindClick, KindActivate:
		return true
	}
	return false
}

// Record 是一条交互记录。只追加，从不删除。
type Record struct {
	// ID 唯一标识一条交互；为空时由 Log.Append 生成
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	DealID    string    `json:"dealId"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// Row 把记录编码为表行（时间取 RFC 3339）。
func (r Record) Row() core.Row {
	return core.Row{
		"id":        r.ID,
		"userId":    r.UserID,
		"dealId":    r.DealID,
		"kind":      string(r.Kind),
		"timestamp": r.Timestamp.Format(time.RFC3339),
	}
}

// RecordFromRow 从表行解码记录；userId/dealId/kind 缺失或非法时返回 false。
func RecordFromRow(row core.Row) (Record, bool) {
	userID, _ := conv.ToString(row["userId"])
	dealID, _ := conv.ToString(row["dealId"])
	kind, _ := conv.ToString(row["kind"])
	if userID == "" || dealID == "" || !ValidKind(Kind(kind)) {
		return Record{}, false
	}
	rec := Record{UserID: userID, DealID: dealID, Kind: Kind(kind)}
	rec.ID, _ = conv.ToString(row["id"])
	if raw, ok := conv.ToString(row["timestamp"]); ok {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			rec.Timestamp = ts
		}
	}
	return rec, true
}

// Log 是交互日志：追加式记录集合，回放进图累积边权。
//
// 回放语义：Fold 对同一条记录重复调用会重复累加（计数器语义），
// Replay 以记录 ID 去重，同一会话内重复 load 不会重复计权。
type Log struct {
	mu       sync.Mutex
	records  []Record
	replayed map[string]struct{}
}

// NewLog 创建空交互日志。
func NewLog() *Log {
	return &Log{replayed: make(map[string]struct{})}
}

// Append 追加一条记录并返回补全 ID 后的副本。
func (l *Log) Append(rec Record) Record {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("%s:%s:%s:%d", rec.UserID, rec.DealID, rec.Kind, rec.Timestamp.UnixNano())
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return rec
}

// Records 返回记录快照。
func (l *Log) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Fold 把单条记录折叠进图：惰性建 user / deal 节点，交互边按类型计数 +1、
// 按类型权重累加 Weight，边时间戳推进到记录时刻。
// 重复折叠同一条记录会再次累加：这是计数器语义，不是幂等写。
func (l *Log) Fold(g *Graph, rec Record, w core.InteractionWeights) {
	if g == nil || rec.UserID == "" || rec.DealID == "" || !ValidKind(rec.Kind) {
		return
	}
	g.AddNode(rec.UserID, NodeUser, nil)
	g.AddNode(rec.DealID, NodeDeal, nil)

	attrs := map[string]float64{
		string(rec.Kind): 1,
		AttrWeight:       kindWeight(rec.Kind, w),
	}
	g.AddEdgeAt(rec.UserID, rec.DealID, EdgeInterestedIn, attrs, rec.Timestamp)
}

// Replay 把尚未回放过的记录折叠进图。以记录 ID 去重：
// 同一会话内重复调用（如重复 load）不会重复累加边权。
// 返回本次实际折叠的记录数。
func (l *Log) Replay(g *Graph, w core.InteractionWeights) int {
	l.mu.Lock()
	pending := make([]Record, 0, len(l.records))
	for _, rec := range l.records {
		if _, done := l.replayed[rec.ID]; done {
			continue
		}
		l.replayed[rec.ID] = struct{}{}
		pending = append(pending, rec)
	}
	l.mu.Unlock()

	for _, rec := range pending {
		l.Fold(g, rec, w)
	}
	return len(pending)
}

func kindWeight(k Kind, w core.InteractionWeights) float64 {
	switch k {
	case KindView:
		return w.View
	case KindClick:
		return w.Click
	case KindActivate:
		return w.Activate
	}
	return 0
}
