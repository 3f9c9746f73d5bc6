package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"ecommerce/internal/pkg/kvstore"
	"ecommerce/internal/service/orders/domain"
)

// TableName 是订单表的表名
const TableName = "orders"

// orderRecord 是订单在键值表中的一行；主键 orderId，用户索引 (userId, createdDate)
type orderRecord struct {
	domain.Order
}

func (r orderRecord) TableKey() kvstore.Key {
	return kvstore.Key{PK: r.OrderID}
}

func (r orderRecord) IndexKey() (kvstore.Key, bool) {
	if r.UserID == "" {
		return kvstore.Key{}, false
	}
	return kvstore.Key{PK: r.UserID, SK: domain.FormatDate(r.CreatedDate)}, true
}

// KVOrderRepository 是 domain.OrderRepository 基于 kvstore 的实现
type KVOrderRepository struct {
	table *kvstore.Table[orderRecord]
}

// NewKVOrderRepository 创建订单仓储
func NewKVOrderRepository(backend kvstore.Backend) *KVOrderRepository {
	return &KVOrderRepository{table: kvstore.NewTable[orderRecord](backend, TableName)}
}

func (r *KVOrderRepository) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	rec, err := r.table.Get(ctx, kvstore.Key{PK: orderID})
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return &rec.Order, nil
}

func (r *KVOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	if err := r.table.Put(ctx, orderRecord{Order: *order}); err != nil {
		return fmt.Errorf("save order %s: %w", order.OrderID, err)
	}
	return nil
}

func (r *KVOrderRepository) ListByUser(ctx context.Context, userID, nextToken string, limit int) ([]domain.Order, string, error) {
	recs, next, err := r.table.QueryIndex(ctx, userID, kvstore.Page{Limit: limit, StartKey: nextToken})
	if err != nil {
		return nil, "", fmt.Errorf("list orders for %s: %w", userID, err)
	}
	orders := make([]domain.Order, 0, len(recs))
	for _, rec := range recs {
		orders = append(orders, rec.Order)
	}
	return orders, next, nil
}
