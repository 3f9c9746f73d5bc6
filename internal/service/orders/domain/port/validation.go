package port

import (
	"context"

	"ecommerce/internal/service/orders/domain"
)

// Validation 是一次后端校验的结果；OK 为 false 时 Message 说明原因
type Validation struct {
	OK      bool
	Message string
}

// PricingService 校验订单提交的运费
type PricingService interface {
	ValidateDelivery(ctx context.Context, order *domain.Order) Validation
}

// PaymentService 校验支付 token 是否足以支付订单总额
type PaymentService interface {
	ValidatePayment(ctx context.Context, order *domain.Order) Validation
}

// ProductsService 校验订单中的商品与商品目录一致
type ProductsService interface {
	ValidateProducts(ctx context.Context, order *domain.Order) Validation
}
