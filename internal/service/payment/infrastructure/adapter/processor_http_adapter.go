package adapter

import (
	"context"
	"fmt"

	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/pkg/httpclient"
	"ecommerce/internal/pkg/logger"
)

// ProcessorHTTPAdapter 实现了 port.PaymentProcessor，调用 payment-3p 服务
type ProcessorHTTPAdapter struct {
	client *httpclient.Client
}

func NewProcessorHTTPAdapter(client *httpclient.Client) *ProcessorHTTPAdapter {
	return &ProcessorHTTPAdapter{client: client}
}

type processorRequest struct {
	PaymentToken string `json:"paymentToken"`
	Amount       *int   `json:"amount,omitempty"`
}

type processorResponse struct {
	OK      *bool  `json:"ok"`
	Message string `json:"message"`
}

func (a *ProcessorHTTPAdapter) Check(ctx context.Context, paymentToken string, amount int) (bool, error) {
	return a.call(ctx, constants.Payment3PCheckPath, processorRequest{PaymentToken: paymentToken, Amount: &amount})
}

func (a *ProcessorHTTPAdapter) UpdateAmount(ctx context.Context, paymentToken string, amount int) (bool, error) {
	return a.call(ctx, constants.Payment3PUpdateAmountPath, processorRequest{PaymentToken: paymentToken, Amount: &amount})
}

func (a *ProcessorHTTPAdapter) ProcessPayment(ctx context.Context, paymentToken string) (bool, error) {
	return a.call(ctx, constants.Payment3PProcessPath, processorRequest{PaymentToken: paymentToken})
}

func (a *ProcessorHTTPAdapter) CancelPayment(ctx context.Context, paymentToken string) (bool, error) {
	return a.call(ctx, constants.Payment3PCancelPath, processorRequest{PaymentToken: paymentToken})
}

// call 把缺少 ok 字段的响应当作拒绝，并记录第三方返回的消息
func (a *ProcessorHTTPAdapter) call(ctx context.Context, path string, req processorRequest) (bool, error) {
	var resp processorResponse
	status, err := a.client.PostJSON(ctx, constants.Payment3PService, path, req, &resp)
	if err != nil {
		return false, fmt.Errorf("call payment processor %s: %w", path, err)
	}
	if resp.OK == nil {
		msg := resp.Message
		if msg == "" {
			msg = "No error message"
		}
		logger.Ctx(ctx).Error().Int("statusCode", status).Str("path", path).Str("message", msg).
			Msg("Missing 'ok' in 3rd party response body")
		return false, nil
	}
	return *resp.OK, nil
}
