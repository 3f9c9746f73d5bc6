package infrastructure

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"

	"ecommerce/internal/pkg/kvstore"
	"ecommerce/internal/service/payment/domain"
)

// TableName 是支付表的表名；主键 orderId
const TableName = "payment"

type paymentRecord struct {
	domain.Payment
}

func (r paymentRecord) TableKey() kvstore.Key {
	return kvstore.Key{PK: r.OrderID}
}

// KVRepository 是 domain.Repository 基于 kvstore 的实现
type KVRepository struct {
	table *kvstore.Table[paymentRecord]
}

func NewKVRepository(backend kvstore.Backend) *KVRepository {
	return &KVRepository{table: kvstore.NewTable[paymentRecord](backend, TableName)}
}

func (r *KVRepository) Get(ctx context.Context, orderID string) (*domain.Payment, error) {
	rec, err := r.table.Get(ctx, kvstore.Key{PK: orderID})
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "get payment for order %s", orderID)
	}
	return &rec.Payment, nil
}

func (r *KVRepository) Save(ctx context.Context, p *domain.Payment) error {
	return pkgerrors.Wrapf(r.table.Put(ctx, paymentRecord{Payment: *p}), "save payment for order %s", p.OrderID)
}

func (r *KVRepository) Delete(ctx context.Context, orderID string) error {
	return pkgerrors.Wrapf(r.table.Delete(ctx, kvstore.Key{PK: orderID}), "delete payment for order %s", orderID)
}
