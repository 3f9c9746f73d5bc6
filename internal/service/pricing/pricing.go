// Package pricing 是运费计算服务
package pricing

import (
	"ecommerce/internal/pkg/bootstrap"
	"ecommerce/internal/service/pricing/interfaces"
)

// Register 挂载运费计算接口
func Register(app *bootstrap.AppCtx) error {
	interfaces.NewPricingHandler(app.Tracer).RegisterRoutes(app.Mux)
	return nil
}
