// Package payment 是支付服务：保存订单的预授权令牌，订单结束时扣款或取消
package payment

import (
	"ecommerce/internal/pkg/bootstrap"
	"ecommerce/internal/service/payment/application"
	"ecommerce/internal/service/payment/infrastructure"
	"ecommerce/internal/service/payment/infrastructure/adapter"
	"ecommerce/internal/service/payment/interfaces"
)

// Register 组装支付服务的依赖，挂载校验接口和事件订阅
func Register(app *bootstrap.AppCtx) error {
	service := application.NewPaymentService(
		infrastructure.NewKVRepository(app.Store),
		adapter.NewProcessorHTTPAdapter(app.HTTP),
		app.Tracer,
	)
	interfaces.NewValidateHandler(service).RegisterRoutes(app.Mux)
	for _, sub := range interfaces.NewEventHandler(service).Subscriptions() {
		if err := app.Subscribe(sub); err != nil {
			return err
		}
	}
	return nil
}
