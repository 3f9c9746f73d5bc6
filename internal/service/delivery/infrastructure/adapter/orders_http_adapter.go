package adapter

import (
	"context"
	"fmt"
	"net/http"

	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/pkg/httpclient"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/delivery/domain/port"
)

// OrdersHTTPAdapter 实现了 port.OrdersService，通过订单服务的后端接口读取订单
type OrdersHTTPAdapter struct {
	client *httpclient.Client
}

func NewOrdersHTTPAdapter(client *httpclient.Client) *OrdersHTTPAdapter {
	return &OrdersHTTPAdapter{client: client}
}

// GetOrder 读取订单；非 200 响应视为失败
func (a *OrdersHTTPAdapter) GetOrder(ctx context.Context, orderID string) (*port.Order, error) {
	var order port.Order
	status, err := a.client.GetJSON(ctx, constants.OrdersService, constants.BackendOrdersPath+orderID, &order)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve order %s: %w", orderID, err)
	}
	if status != http.StatusOK {
		logger.Ctx(ctx).Error().Str("orderId", orderID).Int("statusCode", status).Msgf("Failed to retrieve order %s", orderID)
		return nil, fmt.Errorf("failed to retrieve order %s: status %d", orderID, status)
	}
	logger.Ctx(ctx).Info().Str("orderId", orderID).Msgf("Retrieved order %s from Orders service", orderID)
	return &order, nil
}
