package domain

import "context"

// Repository 定义了配送表的持久化接口
type Repository interface {
	// Get 不存在时返回 ErrDeliveryNotFound
	Get(ctx context.Context, orderID string) (*Delivery, error)
	Save(ctx context.Context, d *Delivery) error
	// ListNew 分页返回 NEW 状态的配送任务
	ListNew(ctx context.Context, nextToken string, limit int) ([]Delivery, string, error)
}
