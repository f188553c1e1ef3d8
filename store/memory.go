// Package store 提供 core.TableStore 的实现。
//
// 注意：接口定义在 core 包，此包只包含实现。
//
// 示例：
//
//	var ts core.TableStore = store.NewMemoryTableStore("")
//	var ts core.TableStore = store.NewMemoryTableStore("/tmp/tables.json")
package store

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/rushteam/dealkit/core"
)

// MemoryTableStore 是内存实现的 TableStore，用于测试/开发/原型。
// 可选地挂一个 JSON 快照文件：Load 读入快照（文件缺失视为无数据），
// Save 整体覆盖写出。不挂文件时 Load/Save 是 no-op。
type MemoryTableStore struct {
	mu     sync.RWMutex
	tables map[string]core.Table

	// path 快照文件路径；为空时纯内存
	path string
}

// NewMemoryTableStore 创建内存表存储；path 为空时不做持久化。
func NewMemoryTableStore(path string) *MemoryTableStore {
	return &MemoryTableStore{
		tables: make(map[string]core.Table),
		path:   path,
	}
}

var _ core.TableStore = (*MemoryTableStore)(nil)

func (m *MemoryTableStore) Name() string { return "memory" }

// Load 从快照文件恢复全部表。文件不存在视为"无数据"，返回
// ErrStoreNotFound 由调用方降级处理，不是致命错误。
func (m *MemoryTableStore) Load(_ context.Context) error {
	if m.path == "" {
		return nil
	}
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return core.ErrStoreNotFound
		}
		return core.ErrStoreUnavailable
	}

	var tables map[string]core.Table
	if err := json.Unmarshal(data, &tables); err != nil {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInternalError, "store: corrupt snapshot")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables = tables
	if m.tables == nil {
		m.tables = make(map[string]core.Table)
	}
	return nil
}

// Save 把当前全部内存表覆盖写到快照文件（last-write-wins）。
func (m *MemoryTableStore) Save(_ context.Context) error {
	if m.path == "" {
		return nil
	}
	m.mu.RLock()
	data, err := json.Marshal(m.tables)
	m.mu.RUnlock()
	if err != nil {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInternalError, "store: encode snapshot")
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return core.ErrStoreUnavailable
	}
	return nil
}

func (m *MemoryTableStore) GetTable(name string) (core.Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[name]
	if !ok {
		return nil, false
	}
	return copyTable(t), true
}

func (m *MemoryTableStore) SetTable(name string, rows core.Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[name] = copyTable(rows)
}

func (m *MemoryTableStore) GetRow(table, key string) (core.Row, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[table]
	if !ok {
		return nil, false
	}
	row, ok := t[key]
	if !ok {
		return nil, false
	}
	return copyRow(row), true
}

func (m *MemoryTableStore) SetRow(table, key string, row core.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tables[table] == nil {
		m.tables[table] = make(core.Table)
	}
	m.tables[table][key] = copyRow(row)
}

func (m *MemoryTableStore) GetCell(table, key, column string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[table]
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

func (m *MemoryTableStore) SetCell(table, key, column string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tables[table] == nil {
		m.tables[table] = make(core.Table)
	}
	if m.tables[table][key] == nil {
		m.tables[table][key] = make(core.Row)
	}
	m.tables[table][key][column] = value
}

func copyTable(t core.Table) core.Table {
	out := make(core.Table, len(t))
	for k, row := range t {
		out[k] = copyRow(row)
	}
	return out
}

func copyRow(r core.Row) core.Row {
	out := make(core.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
