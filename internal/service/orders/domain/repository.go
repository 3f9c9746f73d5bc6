package domain

import "context"

// OrderRepository 定义了订单的持久化接口
type OrderRepository interface {
	Get(ctx context.Context, orderID string) (*Order, error)
	Save(ctx context.Context, order *Order) error
	// ListByUser 按创建时间分页返回用户的订单，nextToken 为空表示没有更多数据
	ListByUser(ctx context.Context, userID, nextToken string, limit int) ([]Order, string, error)
}
