package kvstore

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore 是 Store 的内存实现，用于 local-stack 和单元测试。
type MemoryStore struct {
	mu      sync.RWMutex
	tables  map[string]map[Key]Row
	streams map[string][]ChangeRecord
	seq     int64
	now     func() time.Time
}

// NewMemoryStore 创建一个空的内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables:  make(map[string]map[Key]Row),
		streams: make(map[string][]ChangeRecord),
		now:     time.Now,
	}
}

func (s *MemoryStore) table(name string) map[Key]Row {
	t, ok := s.tables[name]
	if !ok {
		t = make(map[Key]Row)
		s.tables[name] = t
	}
	return t
}

func (s *MemoryStore) appendRecord(table string, name EventName, key Key, oldImage, newImage []byte) {
	s.seq++
	s.streams[table] = append(s.streams[table], ChangeRecord{
		ID:        s.seq,
		Table:     table,
		EventName: name,
		Keys:      key,
		OldImage:  cloneBytes(oldImage),
		NewImage:  cloneBytes(newImage),
		CreatedAt: s.now(),
	})
}

func (s *MemoryStore) Get(_ context.Context, table string, key Key) (Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.tables[table][key]
	if !ok {
		return Row{}, ErrNotFound
	}
	return cloneRow(row), nil
}

func (s *MemoryStore) Put(_ context.Context, table string, rows ...Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(table)
	for _, row := range rows {
		old, exists := t[row.Key]
		t[row.Key] = cloneRow(row)
		if exists {
			s.appendRecord(table, EventModify, row.Key, old.Data, row.Data)
		} else {
			s.appendRecord(table, EventInsert, row.Key, nil, row.Data)
		}
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, table string, keys ...Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(table)
	for _, key := range keys {
		old, exists := t[key]
		if !exists {
			continue
		}
		delete(t, key)
		s.appendRecord(table, EventRemove, key, old.Data, nil)
	}
	return nil
}

func (s *MemoryStore) Query(_ context.Context, table, pk string) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []Row
	for key, row := range s.tables[table] {
		if key.PK == pk {
			rows = append(rows, cloneRow(row))
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key.SK < rows[j].Key.SK })
	return rows, nil
}

func (s *MemoryStore) QueryIndex(_ context.Context, table, indexPK string, page Page) (RowPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []Row
	for _, row := range s.tables[table] {
		if row.Index == nil || row.Index.PK != indexPK {
			continue
		}
		if page.StartKey != "" && row.Index.SK <= page.StartKey {
			continue
		}
		rows = append(rows, cloneRow(row))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Index.SK < rows[j].Index.SK })
	return paginate(rows, page.Limit, func(r Row) string { return r.Index.SK }), nil
}

func (s *MemoryStore) Scan(_ context.Context, table string, page Page) (RowPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []Row
	for key, row := range s.tables[table] {
		if page.StartKey != "" && key.PK <= page.StartKey {
			continue
		}
		rows = append(rows, cloneRow(row))
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Key.PK != rows[j].Key.PK {
			return rows[i].Key.PK < rows[j].Key.PK
		}
		return rows[i].Key.SK < rows[j].Key.SK
	})
	return paginate(rows, page.Limit, func(r Row) string { return r.Key.PK }), nil
}

func (s *MemoryStore) Pending(_ context.Context, table string, limit int) ([]ChangeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.streams[table]
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	out := make([]ChangeRecord, len(records))
	copy(out, records)
	return out, nil
}

func (s *MemoryStore) Ack(_ context.Context, table string, ids ...int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acked := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		acked[id] = struct{}{}
	}
	kept := s.streams[table][:0]
	for _, rec := range s.streams[table] {
		if _, ok := acked[rec.ID]; !ok {
			kept = append(kept, rec)
		}
	}
	s.streams[table] = kept
	return nil
}

func paginate(rows []Row, limit int, keyOf func(Row) string) RowPage {
	if limit <= 0 || len(rows) <= limit {
		return RowPage{Rows: rows}
	}
	rows = rows[:limit]
	return RowPage{Rows: rows, NextKey: keyOf(rows[len(rows)-1])}
}

func cloneRow(row Row) Row {
	out := Row{Key: row.Key, Data: cloneBytes(row.Data)}
	if row.Index != nil {
		idx := *row.Index
		out.Index = &idx
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return bytes.Clone(b)
}
