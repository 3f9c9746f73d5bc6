// Package kvstore 提供按服务划分的键值表，以及伴随每次写入产生的变更流（change stream）。
//
// 每个服务只拥有自己的表；表的每次 Put/Delete 都会原子地追加一条 ChangeRecord，
// 由 StreamRelay 读取并交给 CDC 转换器发布为领域事件。
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// batchSize 是一次批量写入的最大行数
const batchSize = 25

var (
	// ErrNotFound 表示请求的键不存在
	ErrNotFound = errors.New("kvstore: item not found")
)

// Key 是表中一行的主键。SK 为空表示该表只有分区键。
type Key struct {
	PK string `json:"pk"`
	SK string `json:"sk,omitempty"`
}

func (k Key) String() string {
	if k.SK == "" {
		return k.PK
	}
	return k.PK + "/" + k.SK
}

// Item 是可以写入表的实体。
type Item interface {
	TableKey() Key
}

// Indexed 由拥有（稀疏）二级索引的实体实现；返回 false 表示该行不进入索引。
type Indexed interface {
	IndexKey() (Key, bool)
}

// EventName 是变更记录的类型
type EventName string

const (
	EventInsert EventName = "INSERT"
	EventModify EventName = "MODIFY"
	EventRemove EventName = "REMOVE"
)

// ChangeRecord 是一次行级变更的前后镜像。
type ChangeRecord struct {
	ID        int64           `json:"id"`
	Table     string          `json:"table"`
	EventName EventName       `json:"eventName"`
	Keys      Key             `json:"keys"`
	OldImage  json.RawMessage `json:"oldImage,omitempty"`
	NewImage  json.RawMessage `json:"newImage,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Row 是后端存储的一行原始数据。
type Row struct {
	Key   Key
	Index *Key
	Data  json.RawMessage
}

// Page 描述分页参数；StartKey 为上一页返回的 NextKey（不包含）。
type Page struct {
	Limit    int
	StartKey string
}

// RowPage 是一页原始数据，NextKey 为空表示没有更多数据。
type RowPage struct {
	Rows    []Row
	NextKey string
}

// Backend 是键值表的存储实现（MySQL/GORM 或内存）。
type Backend interface {
	Get(ctx context.Context, table string, key Key) (Row, error)
	Put(ctx context.Context, table string, rows ...Row) error
	Delete(ctx context.Context, table string, keys ...Key) error
	// Query 返回分区键下的所有行，按 SK 排序
	Query(ctx context.Context, table, pk string) ([]Row, error)
	// QueryIndex 按二级索引查询，按索引 SK 排序；StartKey 为索引 SK
	QueryIndex(ctx context.Context, table, indexPK string, page Page) (RowPage, error)
	// Scan 按分区键顺序遍历整张表；StartKey 为分区键
	Scan(ctx context.Context, table string, page Page) (RowPage, error)
}

// Stream 是表的变更流。
type Stream interface {
	Pending(ctx context.Context, table string, limit int) ([]ChangeRecord, error)
	Ack(ctx context.Context, table string, ids ...int64) error
}

// Store 同时提供表和变更流。
type Store interface {
	Backend
	Stream
}

// Table 是 Backend 上的类型化视图。
type Table[T Item] struct {
	name    string
	backend Backend
}

// NewTable 创建一个名为 name 的类型化表
func NewTable[T Item](backend Backend, name string) *Table[T] {
	return &Table[T]{name: name, backend: backend}
}

// Name 返回表名
func (t *Table[T]) Name() string { return t.name }

// Get 读取一行；不存在时返回 ErrNotFound
func (t *Table[T]) Get(ctx context.Context, key Key) (T, error) {
	var item T
	row, err := t.backend.Get(ctx, t.name, key)
	if err != nil {
		return item, err
	}
	if err := json.Unmarshal(row.Data, &item); err != nil {
		return item, fmt.Errorf("kvstore: decode %s/%s: %w", t.name, key, err)
	}
	return item, nil
}

// Put 整行覆盖写入
func (t *Table[T]) Put(ctx context.Context, items ...T) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		row, err := toRow(item)
		if err != nil {
			return fmt.Errorf("kvstore: encode %s/%s: %w", t.name, item.TableKey(), err)
		}
		rows = append(rows, row)
	}
	return t.backend.Put(ctx, t.name, rows...)
}

// Delete 删除若干行，不存在的键被忽略
func (t *Table[T]) Delete(ctx context.Context, keys ...Key) error {
	if len(keys) == 0 {
		return nil
	}
	return t.backend.Delete(ctx, t.name, keys...)
}

// BatchPut 按 batchSize 分批写入大量条目
func (t *Table[T]) BatchPut(ctx context.Context, items []T) error {
	for start := 0; start < len(items); start += batchSize {
		end := min(start+batchSize, len(items))
		if err := t.Put(ctx, items[start:end]...); err != nil {
			return err
		}
	}
	return nil
}

// BatchDelete 按 batchSize 分批删除
func (t *Table[T]) BatchDelete(ctx context.Context, keys []Key) error {
	for start := 0; start < len(keys); start += batchSize {
		end := min(start+batchSize, len(keys))
		if err := t.Delete(ctx, keys[start:end]...); err != nil {
			return err
		}
	}
	return nil
}

// Query 返回分区键下的所有行
func (t *Table[T]) Query(ctx context.Context, pk string) ([]T, error) {
	rows, err := t.backend.Query(ctx, t.name, pk)
	if err != nil {
		return nil, err
	}
	return decodeRows[T](t.name, rows)
}

// QueryIndex 按二级索引分页查询，返回条目与下一页的 token
func (t *Table[T]) QueryIndex(ctx context.Context, indexPK string, page Page) ([]T, string, error) {
	res, err := t.backend.QueryIndex(ctx, t.name, indexPK, page)
	if err != nil {
		return nil, "", err
	}
	items, err := decodeRows[T](t.name, res.Rows)
	return items, res.NextKey, err
}

// Scan 分页遍历整张表
func (t *Table[T]) Scan(ctx context.Context, page Page) ([]T, string, error) {
	res, err := t.backend.Scan(ctx, t.name, page)
	if err != nil {
		return nil, "", err
	}
	items, err := decodeRows[T](t.name, res.Rows)
	return items, res.NextKey, err
}

func toRow(item Item) (Row, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return Row{}, err
	}
	row := Row{Key: item.TableKey(), Data: data}
	if indexed, ok := item.(Indexed); ok {
		if key, ok := indexed.IndexKey(); ok {
			row.Index = &key
		}
	}
	return row, nil
}

func decodeRows[T Item](table string, rows []Row) ([]T, error) {
	items := make([]T, 0, len(rows))
	for _, row := range rows {
		var item T
		if err := json.Unmarshal(row.Data, &item); err != nil {
			return nil, fmt.Errorf("kvstore: decode %s/%s: %w", table, row.Key, err)
		}
		items = append(items, item)
	}
	return items, nil
}
