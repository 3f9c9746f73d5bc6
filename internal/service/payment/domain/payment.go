package domain

import (
	"context"
	"errors"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrSettlementRejected 表示第三方支付拒绝了扣款、取消或金额调整
	ErrSettlementRejected = errors.New("payment settlement rejected by processor")
)

// Payment 把订单和它的预授权令牌关联起来，订单结束后删除
type Payment struct {
	OrderID      string `json:"orderId"`
	PaymentToken string `json:"paymentToken"`
}

// Repository 定义了支付表的持久化接口
type Repository interface {
	// Get 不存在时返回 ErrPaymentNotFound
	Get(ctx context.Context, orderID string) (*Payment, error)
	Save(ctx context.Context, p *Payment) error
	Delete(ctx context.Context, orderID string) error
}
