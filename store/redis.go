package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/rushteam/dealkit/core"
)

// RedisTableStore 是 Redis 实现的 TableStore，生产环境常用。
//
// 存储布局：
//   - "<prefix>tables"            SET，已持久化的表名注册表
//   - "<prefix>table:<name>"      HASH，field 为行键，value 为 JSON 编码的行
//
// 读写走内存表，Load/Save 是仅有的网络往返：Load 拉全量，Save 整表
// 覆盖写（跨进程并发写为 last-write-wins，与表粒度的约定一致）。
type RedisTableStore struct {
	client *redis.Client
	prefix string

	mu     sync.RWMutex
	tables map[string]core.Table
}

// NewRedisTableStore 创建 Redis 表存储并探活。
func NewRedisTableStore(addr string, db int, prefix string) (*RedisTableStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, core.ErrStoreUnavailable
	}
	if prefix == "" {
		prefix = "dealkit:"
	}
	return &RedisTableStore{
		client: client,
		prefix: prefix,
		tables: make(map[string]core.Table),
	}, nil
}

var _ core.TableStore = (*RedisTableStore)(nil)

func (r *RedisTableStore) Name() string { return "redis" }

func (r *RedisTableStore) registryKey() string     { return r.prefix + "tables" }
func (r *RedisTableStore) tableKey(n string) string { return r.prefix + "table:" + n }

// Load 拉取注册表中的全部表到内存。注册表为空视为"无数据"。
func (r *RedisTableStore) Load(ctx context.Context) error {
	names, err := r.client.SMembers(ctx, r.registryKey()).Result()
	if err != nil {
		return core.ErrStoreUnavailable
	}
	if len(names) == 0 {
		return core.ErrStoreNotFound
	}

	loaded := make(map[string]core.Table, len(names))
	for _, name := range names {
		fields, err := r.client.HGetAll(ctx, r.tableKey(name)).Result()
		if err != nil {
			return core.ErrStoreUnavailable
		}
		t := make(core.Table, len(fields))
		for rowKey, raw := range fields {
			var row core.Row
			if json.Unmarshal([]byte(raw), &row) != nil {
				// 单行损坏跳过，不拖垮整表
				continue
			}
			t[rowKey] = row
		}
		loaded[name] = t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = loaded
	return nil
}

// Save 把当前全部内存表覆盖写回 Redis（pipeline 批量，整表 Del+HSet）。
func (r *RedisTableStore) Save(ctx context.Context) error {
	r.mu.RLock()
	snapshot := make(map[string]core.Table, len(r.tables))
	for name, t := range r.tables {
		snapshot[name] = copyTable(t)
	}
	r.mu.RUnlock()

	pipe := r.client.Pipeline()
	for name, t := range snapshot {
		key := r.tableKey(name)
		pipe.Del(ctx, key)
		for rowKey, row := range t {
			raw, err := json.Marshal(row)
			if err != nil {
				continue
			}
			pipe.HSet(ctx, key, rowKey, raw)
		}
		pipe.SAdd(ctx, r.registryKey(), name)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return core.ErrStoreUnavailable
	}
	return nil
}

// Close 关闭连接。
func (r *RedisTableStore) Close() error {
	return r.client.Close()
}

func (r *RedisTableStore) GetTable(name string) (core.Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[name]
	if !ok {
		return nil, false
	}
	return copyTable(t), true
}

func (r *RedisTableStore) SetTable(name string, rows core.Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[name] = copyTable(rows)
}

func (r *RedisTableStore) GetRow(table, key string) (core.Row, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[table]
	if !ok {
		return nil, false
	}
	row, ok := t[key]
	if !ok {
		return nil, false
	}
	return copyRow(row), true
}

func (r *RedisTableStore) SetRow(table, key string, row core.Row) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tables[table] == nil {
		r.tables[table] = make(core.Table)
	}
	r.tables[table][key] = copyRow(row)
}

func (r *RedisTableStore) GetCell(table, key, column string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[table]
	if !ok {
		return nil, false
	}
	row, ok := t[key]
	if !ok {
		return nil, false
	}
	v, ok := row[column]
	return v, ok
}

func (r *RedisTableStore) SetCell(table, key, column string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tables[table] == nil {
		r.tables[table] = make(core.Table)
	}
	if r.tables[table][key] == nil {
		r.tables[table][key] = make(core.Row)
	}
	r.tables[table][key][column] = value
}
