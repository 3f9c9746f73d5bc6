package infrastructure

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"

	"ecommerce/internal/pkg/kvstore"
	"ecommerce/internal/service/delivery/domain"
)

// TableName 是配送表的表名；主键 orderId
const TableName = "delivery"

type deliveryRecord struct {
	domain.Delivery
}

func (r deliveryRecord) TableKey() kvstore.Key {
	return kvstore.Key{PK: r.OrderID}
}

// IndexKey 只有带 isNew 的记录进入待配送索引
func (r deliveryRecord) IndexKey() (kvstore.Key, bool) {
	if r.IsNew == "" {
		return kvstore.Key{}, false
	}
	return kvstore.Key{PK: r.IsNew, SK: r.OrderID}, true
}

// KVRepository 是 domain.Repository 基于 kvstore 的实现
type KVRepository struct {
	table *kvstore.Table[deliveryRecord]
}

func NewKVRepository(backend kvstore.Backend) *KVRepository {
	return &KVRepository{table: kvstore.NewTable[deliveryRecord](backend, TableName)}
}

func (r *KVRepository) Get(ctx context.Context, orderID string) (*domain.Delivery, error) {
	rec, err := r.table.Get(ctx, kvstore.Key{PK: orderID})
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, domain.ErrDeliveryNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "get delivery %s", orderID)
	}
	return &rec.Delivery, nil
}

func (r *KVRepository) Save(ctx context.Context, d *domain.Delivery) error {
	return pkgerrors.Wrapf(r.table.Put(ctx, deliveryRecord{Delivery: *d}), "save delivery %s", d.OrderID)
}

func (r *KVRepository) ListNew(ctx context.Context, nextToken string, limit int) ([]domain.Delivery, string, error) {
	recs, next, err := r.table.QueryIndex(ctx, "true", kvstore.Page{Limit: limit, StartKey: nextToken})
	if err != nil {
		return nil, "", pkgerrors.Wrap(err, "list new deliveries")
	}
	out := make([]domain.Delivery, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Delivery)
	}
	return out, next, nil
}
