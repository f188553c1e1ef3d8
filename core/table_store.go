package core

import "context"

// Row 是表中的一行：列名 -> 值。
type Row = map[string]any

// Table 是一张表：行键 -> 行。
type Table = map[string]Row

// TableStore 是外部 KV 表存储的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//   - Load/Save 是仅有的 I/O 挂起点；引擎在使用数据前必须等待 Load 完成
//
// 语义约定：
//   - Load 失败视为"无数据"，实现方自行记录，不向上抛致命错误
//   - Save 持久化当前全部内存表；跨进程并发写为 last-write-wins
//   - Get* 对缺失的 表/行/单元格 返回零值与 false，不报错
//
// 实现：
//   - store.MemoryTableStore 实现此接口
//   - store.RedisTableStore 实现此接口
type TableStore interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// Load 从持久层加载全部表到内存
	Load(ctx context.Context) error

	// Save 把当前内存表持久化
	Save(ctx context.Context) error

	GetTable(name string) (Table, bool)
	SetTable(name string, rows Table)

	GetRow(table, key string) (Row, bool)
	SetRow(table, key string, row Row)

	GetCell(table, key, column string) (any, bool)
	SetCell(table, key, column string, value any)
}

// 引擎消费/产出的表名约定。
const (
	TableDeals           = "deals"             // catalog
	TableMerchants       = "merchants"         // 商户描述文本
	TableProductRanges   = "merchantsProducts" // 商户产品范围
	TableSurveyAnswers   = "answeredQuestions" // 问卷
	TableGeolocation     = "geolocation"       // 单行 userGeo
	TableProfiles        = "profiles"          // 用户画像
	TableInteractions    = "interactions"      // 交互追加日志
	TableRecommendations = "recommendations"   // 输出，按 rank 覆盖写
)

// RowUserGeo 是 geolocation 表中唯一一行的行键。
const RowUserGeo = "userGeo"

// Store 错误定义（使用统一的 DomainError）
var (
	// ErrStoreNotFound 表示 表/行 不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: not found")

	// ErrStoreUnavailable 表示持久层不可达
	ErrStoreUnavailable = NewDomainError(ModuleStore, ErrorCodeUnavailable, "store: backend unavailable")
)
