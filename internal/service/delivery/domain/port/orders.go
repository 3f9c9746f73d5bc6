package port

import (
	"context"

	"ecommerce/internal/service/delivery/domain"
)

// Order 是配送关心的订单字段
type Order struct {
	OrderID string         `json:"orderId"`
	Address domain.Address `json:"address"`
}

// OrdersService 定义了获取订单的接口
type OrdersService interface {
	GetOrder(ctx context.Context, orderID string) (*Order, error)
}
