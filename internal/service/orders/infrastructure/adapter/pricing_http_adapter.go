package adapter

import (
	"context"
	"fmt"
	"net/http"

	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/pkg/httpclient"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/orders/domain"
	"ecommerce/internal/service/orders/domain/port"
)

// PricingHTTPAdapter 实现了 port.PricingService，调用 delivery-pricing 服务计算运费
type PricingHTTPAdapter struct {
	client *httpclient.Client
}

// NewPricingHTTPAdapter 创建一个新的运费校验适配器。
func NewPricingHTTPAdapter(client *httpclient.Client) *PricingHTTPAdapter {
	return &PricingHTTPAdapter{client: client}
}

type pricingRequest struct {
	Products []domain.Product `json:"products"`
	Address  domain.Address   `json:"address"`
}

type pricingResponse struct {
	Pricing *int `json:"pricing"`
}

// ValidateDelivery 比较订单提交的运费与定价服务计算的运费
func (a *PricingHTTPAdapter) ValidateDelivery(ctx context.Context, order *domain.Order) port.Validation {
	var resp pricingResponse
	status, err := a.client.PostJSON(ctx, constants.DeliveryPricingService, constants.PricingPath,
		pricingRequest{Products: order.Products, Address: order.Address}, &resp)
	if err != nil || status != http.StatusOK || resp.Pricing == nil {
		logger.Ctx(ctx).Warn().Err(err).Int("statusCode", status).Msg("Failure to contact the delivery service")
		return port.Validation{Message: "Failure to contact the delivery service"}
	}
	if *resp.Pricing != order.DeliveryPrice {
		msg := fmt.Sprintf("Wrong delivery price: got %d, expected %d", order.DeliveryPrice, *resp.Pricing)
		logger.Ctx(ctx).Info().Int("orderPrice", order.DeliveryPrice).Int("deliveryPrice", *resp.Pricing).Msg(msg)
		return port.Validation{Message: msg}
	}
	return port.Validation{OK: true, Message: "The delivery price is valid"}
}
