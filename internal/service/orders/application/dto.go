package application

import (
	"encoding/json"

	"ecommerce/internal/service/orders/domain"
)

// CreateOrderRequest 是后端创建订单接口的请求体
type CreateOrderRequest struct {
	UserID string          `json:"userId"`
	Order  json.RawMessage `json:"order"`
}

// CreateOrderResult 是创建订单的结果；Success 为 false 时 Errors 列出所有失败原因
type CreateOrderResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Errors  []string      `json:"errors,omitempty"`
	Order   *domain.Order `json:"order,omitempty"`
}

// ListOrdersResult 是用户订单列表的一页
type ListOrdersResult struct {
	Orders    []domain.Order `json:"orders"`
	NextToken string         `json:"nextToken,omitempty"`
}

func failure(message string, errs ...string) *CreateOrderResult {
	return &CreateOrderResult{Success: false, Message: message, Errors: errs}
}
