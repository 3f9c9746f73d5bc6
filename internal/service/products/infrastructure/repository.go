package infrastructure

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"

	"ecommerce/internal/pkg/kvstore"
	"ecommerce/internal/service/products/domain"
)

// TableName 是商品表的表名；主键 productId
const TableName = "products"

type productRecord struct {
	domain.Product
}

func (r productRecord) TableKey() kvstore.Key {
	return kvstore.Key{PK: r.ProductID}
}

// KVRepository 是 domain.Repository 基于 kvstore 的实现
type KVRepository struct {
	table *kvstore.Table[productRecord]
}

func NewKVRepository(backend kvstore.Backend) *KVRepository {
	return &KVRepository{table: kvstore.NewTable[productRecord](backend, TableName)}
}

func (r *KVRepository) Get(ctx context.Context, productID string) (*domain.Product, error) {
	rec, err := r.table.Get(ctx, kvstore.Key{PK: productID})
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "get product %s", productID)
	}
	return &rec.Product, nil
}

func (r *KVRepository) Save(ctx context.Context, p *domain.Product) error {
	return pkgerrors.Wrapf(r.table.Put(ctx, productRecord{Product: *p}), "save product %s", p.ProductID)
}

func (r *KVRepository) Delete(ctx context.Context, productID string) error {
	return pkgerrors.Wrapf(r.table.Delete(ctx, kvstore.Key{PK: productID}), "delete product %s", productID)
}

// List 按 productId 顺序分页遍历商品表
func (r *KVRepository) List(ctx context.Context, nextToken string, limit int) ([]domain.Product, string, error) {
	recs, next, err := r.table.Scan(ctx, kvstore.Page{Limit: limit, StartKey: nextToken})
	if err != nil {
		return nil, "", pkgerrors.Wrap(err, "list products")
	}
	out := make([]domain.Product, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Product)
	}
	return out, next, nil
}
