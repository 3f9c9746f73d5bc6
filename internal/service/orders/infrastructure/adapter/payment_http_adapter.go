package adapter

import (
	"context"
	"net/http"

	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/pkg/httpclient"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/orders/domain"
	"ecommerce/internal/service/orders/domain/port"
)

// PaymentHTTPAdapter 实现了 port.PaymentService
type PaymentHTTPAdapter struct {
	client *httpclient.Client
}

func NewPaymentHTTPAdapter(client *httpclient.Client) *PaymentHTTPAdapter {
	return &PaymentHTTPAdapter{client: client}
}

type paymentRequest struct {
	PaymentToken string `json:"paymentToken"`
	Total        int    `json:"total"`
}

type paymentResponse struct {
	OK *bool `json:"ok"`
}

// ValidatePayment 检查支付 token 是否可以支付订单总额
func (a *PaymentHTTPAdapter) ValidatePayment(ctx context.Context, order *domain.Order) port.Validation {
	var resp paymentResponse
	status, err := a.client.PostJSON(ctx, constants.PaymentService, constants.PaymentValidatePath,
		paymentRequest{PaymentToken: order.PaymentToken, Total: order.Total}, &resp)
	if err != nil || status != http.StatusOK || resp.OK == nil {
		logger.Ctx(ctx).Warn().Err(err).Int("statusCode", status).Msg("Failure to contact the payment service")
		return port.Validation{Message: "Failure to contact the payment service"}
	}
	if !*resp.OK {
		logger.Ctx(ctx).Info().Str("paymentToken", order.PaymentToken).Int("total", order.Total).Msg("Wrong payment token")
		return port.Validation{Message: "Wrong payment token"}
	}
	return port.Validation{OK: true, Message: "The payment token is valid"}
}
