// Package engine 是推荐引擎的编排层：从上游 catalog/画像数据构建异构图
// 与向量索引，对外提供两条独立的推荐通路，并把结果落表。
//
// 两条通路：
//   - 向量通路 GetPersonalizedRecommendations：画像组合向量 -> 森林检索
//     -> 置信度排序 -> 落 recommendations 表
//   - 图通路 GetRecommendations：图中打相关性分 -> TopN
//
// 通路彼此独立、分数不同尺度，引擎不做统一排序。
//
// 图与索引都是会话级内存态，由引擎实例显式持有（没有包级全局图）；
// Load/Save 是仅有的 I/O 挂起点，构建阶段的次序（先 deal 后 user、
// 先建图后打分）由引擎方法的调用次序保证。
package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rushteam/dealkit/core"
	"github.com/rushteam/dealkit/feast"
	"github.com/rushteam/dealkit/feature"
	"github.com/rushteam/dealkit/graph"
	"github.com/rushteam/dealkit/pkg/conv"
	"github.com/rushteam/dealkit/rank"
	"github.com/rushteam/dealkit/recall"
	"github.com/rushteam/dealkit/vector"
)

// Engine 是推荐引擎实例。非并发安全的构建阶段方法（Build*、Load*）
// 必须在查询前串行完成。
type Engine struct {
	cfg core.EngineConfig
	log *zap.Logger

	store        core.TableStore
	graph        *graph.Graph
	index        core.VectorIndex
	interactions *graph.Log
	vectorizer   *feature.Vectorizer
	scorer       *rank.RelevanceScorer

	// prefs 可选：从 Feature Store 拉取用户类目偏好，增强图通路兴趣信号
	prefs feast.PreferenceLoader

	now func() time.Time
}

// Option 配置 Engine。
type Option func(*Engine)

// WithConfig 指定引擎配置（缺省字段自动回填默认值）。
func WithConfig(cfg core.EngineConfig) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger 指定日志器；默认 zap.NewNop()。
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithPreferenceLoader 挂载 Feast 偏好加载器（可选增强）。
func WithPreferenceLoader(p feast.PreferenceLoader) Option {
	return func(e *Engine) { e.prefs = p }
}

// WithIndex 替换向量索引实现（默认随机投影森林）。
func WithIndex(idx core.VectorIndex) Option {
	return func(e *Engine) { e.index = idx }
}

// WithClock 注入时钟，便于测试。
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New 创建引擎实例。store 为必选的外部表存储。
func New(store core.TableStore, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cfg.Normalize()
	if e.log == nil {
		e.log = zap.NewNop()
	}
	e.graph = graph.New()
	e.interactions = graph.NewLog()
	e.vectorizer = feature.NewVectorizer(e.cfg.VectorLen)
	if e.index == nil {
		e.index = vector.NewForest(e.cfg.VectorLen, e.cfg.ForestSize, e.cfg.MaxLeafSize)
	}
	e.scorer = &rank.RelevanceScorer{
		Graph:   e.graph,
		Weights: e.cfg.Interaction,
		Now:     func() time.Time { return e.now() },
	}
	return e
}

// Graph 返回引擎持有的异构图（供调用方只读查询，如 RelatedDeals）。
func (e *Engine) Graph() *graph.Graph { return e.graph }

// Index 返回引擎持有的向量索引。
func (e *Engine) Index() core.VectorIndex { return e.index }

// Load 从外部表存储拉取持久化数据。无数据/不可达都降级为空表，
// 记日志但不阻塞会话。
func (e *Engine) Load(ctx context.Context) {
	if err := e.store.Load(ctx); err != nil {
		if core.IsNotFound(err) {
			e.log.Info("table store empty, starting fresh", zap.String("store", e.store.Name()))
			return
		}
		e.log.Warn("table store load failed, degrading to defaults",
			zap.String("store", e.store.Name()), zap.Error(err))
	}
}

// Commit 把当前内存表持久化。失败只记日志：持久化是尽力而为的。
func (e *Engine) Commit(ctx context.Context) {
	if err := e.store.Save(ctx); err != nil {
		e.log.Warn("table store save failed", zap.String("store", e.store.Name()), zap.Error(err))
	}
}

// BuildFromCatalog 把上游 catalog 构建进图与索引：
// 每个 deal 生成文本 embedding 入索引，同时写 deal/merchant/category
// 节点与 offered_by/belongs_to 边；全量载入后跑一次 similar 连边。
//
// 向量化读取的商户描述/产品范围来自最近一次成功 Load 的 merchants 表。
func (e *Engine) BuildFromCatalog(ctx context.Context, deals []core.Deal) {
	indexed := 0
	for i := range deals {
		d := &deals[i]
		key := d.Key()
		if key == "" {
			e.log.Warn("deal without id skipped")
			continue
		}

		e.addDealToGraph(d)
		e.store.SetRow(core.TableDeals, key, dealRow(d))

		vec, err := feature.Combine(e.vectorizer.Vectorize(e.dealText(d)))
		if err != nil {
			// 无文本信号的 deal 不入索引，仍参与图通路
			e.log.Info("deal has no embedding, graph-only", zap.String("deal", key))
			continue
		}
		e.graph.SetNodeVector(key, vec)

		payload := core.IndexPayload{
			DealID: key,
			Meta: map[string]any{
				"merchantName":            d.MerchantName,
				graph.AttrExpirationDate: expirationString(d),
			},
		}
		if err := e.index.Add(vec, payload); err != nil {
			e.log.Warn("index add rejected", zap.String("deal", key), zap.Error(err))
			continue
		}
		indexed++
	}

	e.graph.ConnectSimilarDeals(e.cfg.SimilarThreshold)
	e.Commit(ctx)
	e.log.Info("catalog built",
		zap.Int("deals", len(deals)),
		zap.Int("indexed", indexed),
		zap.Int("index_size", e.index.Len()))
}

// addDealToGraph 写 deal 节点及其 merchant/category 邻接。
func (e *Engine) addDealToGraph(d *core.Deal) {
	key := d.Key()
	e.graph.AddNode(key, graph.NodeDeal, map[string]any{
		"merchantName": d.MerchantName,
		"cashbackType": d.CashbackType,
		"cashback":     d.Cashback,
	})
	if exp := expirationString(d); exp != "" {
		e.graph.SetNodeAttribute(key, graph.AttrExpirationDate, exp)
	}

	if d.MerchantName != "" {
		e.graph.AddNode(d.MerchantName, graph.NodeMerchant, nil)
		e.graph.AddEdge(key, d.MerchantName, graph.EdgeOfferedBy, map[string]float64{graph.AttrWeight: 1})
	}
	for _, cat := range d.Categories {
		if cat == "" {
			continue
		}
		e.graph.AddNode(cat, graph.NodeCategory, nil)
		e.graph.AddEdge(key, cat, graph.EdgeBelongsTo, map[string]float64{graph.AttrWeight: 1})
	}
}

// dealText 拼出 deal 的向量化文本：商户名、返现类型与数值，外加
// merchants 表里的商户描述与产品范围。
func (e *Engine) dealText(d *core.Deal) string {
	text := fmt.Sprintf("%s %s %g", d.MerchantName, d.CashbackType, d.Cashback)
	if desc, ok := e.store.GetCell(core.TableMerchants, d.MerchantName, "description"); ok {
		if s, ok := conv.ToString(desc); ok {
			text += " " + s
		}
	}
	if products, ok := e.store.GetCell(core.TableProductRanges, d.MerchantName, "products"); ok {
		if s, ok := conv.ToString(products); ok {
			text += " " + s
		}
	}
	return text
}

// RegisterUser 把用户画像写进图与 profiles 表：user 节点、interest 节点
// 与 interested_in 边（声明兴趣，权重 1）。
func (e *Engine) RegisterUser(ctx context.Context, profile *core.UserProfile) {
	if profile == nil || profile.UserID == "" {
		e.log.Warn("profile without user id rejected")
		return
	}
	e.graph.AddNode(profile.UserID, graph.NodeUser, nil)
	for _, interest := range profile.Interests {
		if interest == "" {
			continue
		}
		e.graph.AddNode(interest, graph.NodeInterest, nil)
		e.graph.AddEdge(profile.UserID, interest, graph.EdgeInterestedIn, map[string]float64{graph.AttrWeight: 1})
	}
	e.store.SetRow(core.TableProfiles, profile.UserID, profileRow(profile))
	e.Commit(ctx)
}

// RecordInteraction 记录一次用户交互：追加日志、折叠进图、落 interactions 表。
func (e *Engine) RecordInteraction(ctx context.Context, userID, dealID string, kind graph.Kind) {
	if userID == "" || dealID == "" || !graph.ValidKind(kind) {
		e.log.Warn("interaction rejected",
			zap.String("user", userID), zap.String("deal", dealID), zap.String("kind", string(kind)))
		return
	}
	rec := e.interactions.Append(graph.Record{
		UserID:    userID,
		DealID:    dealID,
		Kind:      kind,
		Timestamp: e.now(),
	})
	// Replay 折叠新记录并按 ID 标记，后续重复回放不再计权
	e.interactions.Replay(e.graph, e.cfg.Interaction)
	e.store.SetRow(core.TableInteractions, rec.ID, rec.Row())
	e.Commit(ctx)
}

// LoadInteractions 把 interactions 表回放进图。以记录 ID 去重：
// 同一会话内重复调用不会重复累加边权。
func (e *Engine) LoadInteractions(_ context.Context) int {
	rows, ok := e.store.GetTable(core.TableInteractions)
	if !ok {
		return 0
	}
	for key, row := range rows {
		rec, valid := graph.RecordFromRow(row)
		if !valid {
			e.log.Warn("corrupt interaction row skipped", zap.String("row", key))
			continue
		}
		if rec.ID == "" {
			rec.ID = key
		}
		e.interactions.Append(rec)
	}
	folded := e.interactions.Replay(e.graph, e.cfg.Interaction)
	e.log.Info("interactions replayed", zap.Int("folded", folded))
	return folded
}

// GetPersonalizedRecommendations 是向量通路：画像组合向量检索近似最近邻，
// 置信度 = 1 - 欧氏距离，降序排序，结果按名次落 recommendations 表。
//
// 画像无法得到合法 embedding（全零组合向量等形状问题）时记日志并
// 返回空结果，绝不让形状错误击穿会话。
func (e *Engine) GetPersonalizedRecommendations(ctx context.Context, profile *core.UserProfile, topK int) []*core.Item {
	if profile == nil {
		e.log.Warn("nil profile rejected")
		return nil
	}
	if topK <= 0 {
		topK = e.cfg.TopN
	}
	e.HydrateProfile(profile)

	src := &recall.VectorRecall{
		Index:      e.index,
		Vectorizer: e.vectorizer,
		TopK:       topK,
	}
	rctx := &core.RecommendContext{UserID: profile.UserID, User: profile}
	items, err := src.Recall(ctx, rctx)
	if err != nil || len(items) == 0 {
		e.log.Info("vector pathway empty", zap.String("user", profile.UserID), zap.Error(err))
		return nil
	}

	e.persistRecommendations(ctx, items)
	return items
}

// GetRecommendations 是图通路：要求用户已存在于图中（有画像或有交互），
// 过滤掉已过期 deal 后按相关性分取 TopN。用户不在图中时返回空结果。
func (e *Engine) GetRecommendations(ctx context.Context, userID string, n int) []*core.Item {
	if userID == "" || !e.graph.HasNode(userID) {
		e.log.Info("unknown user, graph pathway empty", zap.String("user", userID))
		return nil
	}
	if n <= 0 {
		n = e.cfg.TopN
	}

	profile := e.loadProfile(ctx, userID)
	src := &recall.GraphRecall{
		Graph:  e.graph,
		Scorer: e.scorer,
		TopN:   n,
	}
	rctx := &core.RecommendContext{UserID: userID, User: profile}
	items, _ := src.Recall(ctx, rctx)
	return items
}

// HydrateProfile 用外部表补全画像里缺失的信号：answeredQuestions 表
// 填问卷回答，geolocation 表的 userGeo 行填地理位置。缺表缺行都静默
// 跳过，画像保持原样（零向量降级在向量化阶段发生）。
func (e *Engine) HydrateProfile(profile *core.UserProfile) {
	if profile == nil {
		return
	}

	if len(profile.SurveyAnswers) == 0 {
		if rows, ok := e.store.GetTable(core.TableSurveyAnswers); ok {
			for _, row := range rows {
				question, _ := conv.ToString(row["question"])
				answer, _ := conv.ToString(row["answer"])
				if question == "" || answer == "" {
					continue
				}
				if profile.SurveyAnswers == nil {
					profile.SurveyAnswers = make(map[string]string)
				}
				profile.SurveyAnswers[question] = answer
			}
		}
	}

	if profile.Geo == nil {
		if row, ok := e.store.GetRow(core.TableGeolocation, core.RowUserGeo); ok {
			country, _ := conv.ToString(row["countryCode"])
			ip, _ := conv.ToString(row["ip"])
			if country != "" || ip != "" {
				profile.Geo = &core.Geolocation{CountryCode: country, IP: ip}
			}
		}
	}
}

// loadProfile 组装图通路用的画像：profiles 表里的兴趣，加上图中的
// 声明兴趣边，再并入 Feast 偏好（可选、失败降级）。
func (e *Engine) loadProfile(ctx context.Context, userID string) *core.UserProfile {
	profile := core.NewUserProfile(userID)

	if row, ok := e.store.GetRow(core.TableProfiles, userID); ok {
		for _, interest := range conv.SliceAnyToString(row["interests"]) {
			profile.AddInterest(interest)
		}
	}
	for _, key := range e.graph.Neighbors(userID, graph.DirOut, graph.EdgeInterestedIn) {
		if node, ok := e.graph.GetNode(key); ok && node.Type == graph.NodeInterest {
			profile.AddInterest(key)
		}
	}

	if e.prefs != nil {
		weights, err := e.prefs.UserInterests(ctx, userID)
		if err != nil {
			e.log.Warn("preference loader failed, ignoring", zap.String("user", userID), zap.Error(err))
		} else {
			for category := range weights {
				profile.AddInterest(category)
			}
		}
	}
	return profile
}

// persistRecommendations 以名次为行键整表覆盖写 recommendations，
// 随后走一次显式 Commit（集中挂起点，不做散落的 fire-and-forget 持久化）。
func (e *Engine) persistRecommendations(ctx context.Context, items []*core.Item) {
	table := make(core.Table, len(items))
	for i, it := range items {
		table[strconv.Itoa(i)] = core.Row{
			"dealId":     it.ID,
			"confidence": it.Score,
		}
	}
	e.store.SetTable(core.TableRecommendations, table)
	e.Commit(ctx)
}

func expirationString(d *core.Deal) string {
	if d.ExpirationDate != "" {
		return d.ExpirationDate
	}
	return d.EndDate
}

func dealRow(d *core.Deal) core.Row {
	return core.Row{
		"id":             d.ID,
		"dealId":         d.DealID,
		"merchantName":   d.MerchantName,
		"cashbackType":   d.CashbackType,
		"cashback":       d.Cashback,
		"currency":       d.Currency,
		"expirationDate": expirationString(d),
	}
}

func profileRow(p *core.UserProfile) core.Row {
	interests := make([]any, 0, len(p.Interests))
	for _, c := range p.Interests {
		interests = append(interests, c)
	}
	return core.Row{
		"userId":            p.UserID,
		"interests":         interests,
		"shoppingFrequency": p.ShoppingFrequency,
	}
}
