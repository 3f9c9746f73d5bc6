package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"ecommerce/internal/pkg/kvstore"
	"ecommerce/internal/service/warehouse/domain"
)

// TableName 是仓库打包表的表名；主键 (orderId, productId)
const TableName = "warehouse"

// newIndexPK 是待打包索引的分区键
const newIndexPK = "NEW"

type metadataRecord struct {
	domain.Metadata
}

func (r metadataRecord) TableKey() kvstore.Key {
	return kvstore.Key{PK: r.OrderID, SK: domain.MetadataKey}
}

// IndexKey 只有 NEW 状态的元数据行进入待打包索引
func (r metadataRecord) IndexKey() (kvstore.Key, bool) {
	if r.NewDate == "" {
		return kvstore.Key{}, false
	}
	return kvstore.Key{PK: newIndexPK, SK: r.NewDate + "#" + r.OrderID}, true
}

type itemRecord struct {
	domain.Item
}

func (r itemRecord) TableKey() kvstore.Key {
	return kvstore.Key{PK: r.OrderID, SK: r.ProductID}
}

// KVRepository 是 domain.Repository 基于 kvstore 的实现
type KVRepository struct {
	metadata *kvstore.Table[metadataRecord]
	items    *kvstore.Table[itemRecord]
}

func NewKVRepository(backend kvstore.Backend) *KVRepository {
	return &KVRepository{
		metadata: kvstore.NewTable[metadataRecord](backend, TableName),
		items:    kvstore.NewTable[itemRecord](backend, TableName),
	}
}

func (r *KVRepository) GetMetadata(ctx context.Context, orderID string) (*domain.Metadata, error) {
	rec, err := r.metadata.Get(ctx, kvstore.Key{PK: orderID, SK: domain.MetadataKey})
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, domain.ErrPackagingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get metadata for %s: %w", orderID, err)
	}
	return &rec.Metadata, nil
}

func (r *KVRepository) SaveMetadata(ctx context.Context, m *domain.Metadata) error {
	m.ProductID = domain.MetadataKey
	return r.metadata.Put(ctx, metadataRecord{Metadata: *m})
}

func (r *KVRepository) DeleteMetadata(ctx context.Context, orderID string) error {
	return r.metadata.Delete(ctx, kvstore.Key{PK: orderID, SK: domain.MetadataKey})
}

func (r *KVRepository) ListItems(ctx context.Context, orderID string) ([]domain.Item, error) {
	recs, err := r.items.Query(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list items for %s: %w", orderID, err)
	}
	items := make([]domain.Item, 0, len(recs))
	for _, rec := range recs {
		if rec.ProductID == domain.MetadataKey {
			continue
		}
		items = append(items, rec.Item)
	}
	return items, nil
}

func (r *KVRepository) SaveItems(ctx context.Context, items []domain.Item) error {
	recs := make([]itemRecord, 0, len(items))
	for _, item := range items {
		recs = append(recs, itemRecord{Item: item})
	}
	return r.items.BatchPut(ctx, recs)
}

func (r *KVRepository) DeleteItems(ctx context.Context, orderID string, productIDs []string) error {
	keys := make([]kvstore.Key, 0, len(productIDs))
	for _, id := range productIDs {
		if id == domain.MetadataKey {
			continue
		}
		keys = append(keys, kvstore.Key{PK: orderID, SK: id})
	}
	return r.items.BatchDelete(ctx, keys)
}

func (r *KVRepository) ListNew(ctx context.Context, nextToken string, limit int) ([]domain.Metadata, string, error) {
	recs, next, err := r.metadata.QueryIndex(ctx, newIndexPK, kvstore.Page{Limit: limit, StartKey: nextToken})
	if err != nil {
		return nil, "", fmt.Errorf("list new packaging requests: %w", err)
	}
	out := make([]domain.Metadata, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Metadata)
	}
	return out, next, nil
}
