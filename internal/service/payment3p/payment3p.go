// Package payment3p 是第三方支付服务的本地模拟
package payment3p

import (
	"ecommerce/internal/pkg/bootstrap"
	"ecommerce/internal/service/payment3p/application"
	"ecommerce/internal/service/payment3p/infrastructure"
	"ecommerce/internal/service/payment3p/interfaces"
)

// Register 挂载预授权、检查、调整金额、扣款和取消接口
func Register(app *bootstrap.AppCtx) error {
	service := application.NewProcessorService(infrastructure.NewKVRepository(app.Store))
	interfaces.NewProcessorHandler(service).RegisterRoutes(app.Mux)
	return nil
}
