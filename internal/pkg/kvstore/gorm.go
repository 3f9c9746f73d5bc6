package kvstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// itemModel 是所有服务表共享的物理表，通过 tbl 列区分逻辑表
type itemModel struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Tbl       string    `gorm:"column:tbl;size:64;not null;uniqueIndex:idx_kv_key,priority:1;index:idx_kv_index,priority:1"`
	PK        string    `gorm:"column:pk;size:191;not null;uniqueIndex:idx_kv_key,priority:2"`
	SK        string    `gorm:"column:sk;size:191;not null;uniqueIndex:idx_kv_key,priority:3"`
	IndexPK   *string   `gorm:"column:index_pk;size:191;index:idx_kv_index,priority:2"`
	IndexSK   *string   `gorm:"column:index_sk;size:191;index:idx_kv_index,priority:3"`
	Data      []byte    `gorm:"column:data;type:json;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (itemModel) TableName() string { return "kv_items" }

// streamModel 是变更流的 outbox 表，与 itemModel 在同一事务中写入
type streamModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Tbl       string    `gorm:"column:tbl;size:64;not null;index:idx_kv_stream_pending,priority:1"`
	EventName string    `gorm:"column:event_name;size:16;not null"`
	PK        string    `gorm:"column:pk;size:191;not null"`
	SK        string    `gorm:"column:sk;size:191;not null"`
	OldImage  []byte    `gorm:"column:old_image;type:json"`
	NewImage  []byte    `gorm:"column:new_image;type:json"`
	Published bool      `gorm:"column:published;not null;default:false;index:idx_kv_stream_pending,priority:2"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (streamModel) TableName() string { return "kv_stream_records" }

func (m itemModel) toRow() Row {
	row := Row{Key: Key{PK: m.PK, SK: m.SK}, Data: m.Data}
	if m.IndexPK != nil && m.IndexSK != nil {
		row.Index = &Key{PK: *m.IndexPK, SK: *m.IndexSK}
	}
	return row
}

func (m streamModel) toRecord() ChangeRecord {
	return ChangeRecord{
		ID:        m.ID,
		Table:     m.Tbl,
		EventName: EventName(m.EventName),
		Keys:      Key{PK: m.PK, SK: m.SK},
		OldImage:  m.OldImage,
		NewImage:  m.NewImage,
		CreatedAt: m.CreatedAt,
	}
}

// GormStore 是基于 MySQL（GORM）的 Store 实现
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 使用已建立的 *gorm.DB 创建存储
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate 创建或更新 kv_items 与 kv_stream_records 表
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&itemModel{}, &streamModel{}); err != nil {
		return errors.Wrap(err, "kvstore: migrate")
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, table string, key Key) (Row, error) {
	var m itemModel
	err := s.db.WithContext(ctx).
		Where("tbl = ? AND pk = ? AND sk = ?", table, key.PK, key.SK).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Row{}, ErrNotFound
	}
	if err != nil {
		return Row{}, errors.Wrapf(err, "kvstore: get %s/%s", table, key)
	}
	return m.toRow(), nil
}

func (s *GormStore) Put(ctx context.Context, table string, rows ...Row) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			var existing itemModel
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("tbl = ? AND pk = ? AND sk = ?", table, row.Key.PK, row.Key.SK).
				Take(&existing).Error

			record := streamModel{Tbl: table, PK: row.Key.PK, SK: row.Key.SK, NewImage: row.Data}
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				m := itemModel{Tbl: table, PK: row.Key.PK, SK: row.Key.SK, Data: row.Data}
				setIndex(&m, row.Index)
				if err := tx.Create(&m).Error; err != nil {
					return errors.Wrapf(err, "kvstore: insert %s/%s", table, row.Key)
				}
				record.EventName = string(EventInsert)
			case err != nil:
				return errors.Wrapf(err, "kvstore: lock %s/%s", table, row.Key)
			default:
				record.OldImage = existing.Data
				existing.Data = row.Data
				setIndex(&existing, row.Index)
				if err := tx.Save(&existing).Error; err != nil {
					return errors.Wrapf(err, "kvstore: update %s/%s", table, row.Key)
				}
				record.EventName = string(EventModify)
			}
			if err := tx.Create(&record).Error; err != nil {
				return errors.Wrapf(err, "kvstore: append stream %s/%s", table, row.Key)
			}
		}
		return nil
	})
}

func (s *GormStore) Delete(ctx context.Context, table string, keys ...Key) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range keys {
			var existing itemModel
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("tbl = ? AND pk = ? AND sk = ?", table, key.PK, key.SK).
				Take(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return errors.Wrapf(err, "kvstore: lock %s/%s", table, key)
			}
			if err := tx.Delete(&existing).Error; err != nil {
				return errors.Wrapf(err, "kvstore: delete %s/%s", table, key)
			}
			record := streamModel{
				Tbl:       table,
				EventName: string(EventRemove),
				PK:        key.PK,
				SK:        key.SK,
				OldImage:  existing.Data,
			}
			if err := tx.Create(&record).Error; err != nil {
				return errors.Wrapf(err, "kvstore: append stream %s/%s", table, key)
			}
		}
		return nil
	})
}

func (s *GormStore) Query(ctx context.Context, table, pk string) ([]Row, error) {
	var models []itemModel
	err := s.db.WithContext(ctx).
		Where("tbl = ? AND pk = ?", table, pk).
		Order("sk").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrapf(err, "kvstore: query %s/%s", table, pk)
	}
	rows := make([]Row, 0, len(models))
	for _, m := range models {
		rows = append(rows, m.toRow())
	}
	return rows, nil
}

func (s *GormStore) QueryIndex(ctx context.Context, table, indexPK string, page Page) (RowPage, error) {
	q := s.db.WithContext(ctx).Where("tbl = ? AND index_pk = ?", table, indexPK)
	if page.StartKey != "" {
		q = q.Where("index_sk > ?", page.StartKey)
	}
	rows, err := s.page(q.Order("index_sk"), page.Limit)
	if err != nil {
		return RowPage{}, errors.Wrapf(err, "kvstore: query index %s/%s", table, indexPK)
	}
	return paginate(rows, page.Limit, func(r Row) string { return r.Index.SK }), nil
}

func (s *GormStore) Scan(ctx context.Context, table string, page Page) (RowPage, error) {
	q := s.db.WithContext(ctx).Where("tbl = ?", table)
	if page.StartKey != "" {
		q = q.Where("pk > ?", page.StartKey)
	}
	rows, err := s.page(q.Order("pk").Order("sk"), page.Limit)
	if err != nil {
		return RowPage{}, errors.Wrapf(err, "kvstore: scan %s", table)
	}
	return paginate(rows, page.Limit, func(r Row) string { return r.Key.PK }), nil
}

// page 多取一行，用于判断是否还有下一页
func (s *GormStore) page(q *gorm.DB, limit int) ([]Row, error) {
	if limit > 0 {
		q = q.Limit(limit + 1)
	}
	var models []itemModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(models))
	for _, m := range models {
		rows = append(rows, m.toRow())
	}
	return rows, nil
}

func (s *GormStore) Pending(ctx context.Context, table string, limit int) ([]ChangeRecord, error) {
	q := s.db.WithContext(ctx).
		Where("tbl = ? AND published = ?", table, false).
		Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var models []streamModel
	if err := q.Find(&models).Error; err != nil {
		return nil, errors.Wrapf(err, "kvstore: pending %s", table)
	}
	records := make([]ChangeRecord, 0, len(models))
	for _, m := range models {
		records = append(records, m.toRecord())
	}
	return records, nil
}

func (s *GormStore) Ack(ctx context.Context, table string, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Model(&streamModel{}).
		Where("tbl = ? AND id IN ?", table, ids).
		Update("published", true).Error
	return errors.Wrapf(err, "kvstore: ack %s", table)
}

func setIndex(m *itemModel, index *Key) {
	if index == nil {
		m.IndexPK, m.IndexSK = nil, nil
		return
	}
	pk, sk := index.PK, index.SK
	m.IndexPK, m.IndexSK = &pk, &sk
}
