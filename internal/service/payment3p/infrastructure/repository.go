package infrastructure

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"

	"ecommerce/internal/pkg/kvstore"
	"ecommerce/internal/service/payment3p/domain"
)

// TableName 是预授权表的表名；主键 paymentToken
const TableName = "payment-3p"

type tokenRecord struct {
	domain.Token
}

func (r tokenRecord) TableKey() kvstore.Key {
	return kvstore.Key{PK: r.PaymentToken}
}

// KVRepository 是 domain.Repository 基于 kvstore 的实现
type KVRepository struct {
	table *kvstore.Table[tokenRecord]
}

func NewKVRepository(backend kvstore.Backend) *KVRepository {
	return &KVRepository{table: kvstore.NewTable[tokenRecord](backend, TableName)}
}

func (r *KVRepository) Get(ctx context.Context, paymentToken string) (*domain.Token, error) {
	rec, err := r.table.Get(ctx, kvstore.Key{PK: paymentToken})
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "get payment token")
	}
	return &rec.Token, nil
}

func (r *KVRepository) Save(ctx context.Context, t *domain.Token) error {
	return pkgerrors.Wrap(r.table.Put(ctx, tokenRecord{Token: *t}), "save payment token")
}

func (r *KVRepository) Delete(ctx context.Context, paymentToken string) error {
	return pkgerrors.Wrap(r.table.Delete(ctx, kvstore.Key{PK: paymentToken}), "delete payment token")
}
