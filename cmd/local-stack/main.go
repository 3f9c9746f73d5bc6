// cmd/local-stack/main.go
// 在一个进程里运行所有服务，服务之间的后端调用都指向本进程。
// 配合 storage.driver=memory 和 bus.driver=memory 用于本地开发。
package main

import (
	"fmt"

	"ecommerce/internal/pkg/bootstrap"
	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/service/delivery"
	"ecommerce/internal/service/orders"
	"ecommerce/internal/service/payment"
	"ecommerce/internal/service/payment3p"
	"ecommerce/internal/service/platform"
	"ecommerce/internal/service/pricing"
	"ecommerce/internal/service/products"
	"ecommerce/internal/service/users"
	"ecommerce/internal/service/warehouse"
)

var services = []struct {
	name     string
	register func(app *bootstrap.AppCtx) error
}{
	{constants.ProductsService, products.Register},
	{constants.DeliveryPricingService, pricing.Register},
	{constants.Payment3PService, payment3p.Register},
	{constants.PaymentService, payment.Register},
	{constants.OrdersService, orders.Register},
	{constants.WarehouseService, warehouse.Register},
	{constants.DeliveryService, delivery.Register},
	{constants.UsersService, users.Register},
	{constants.PlatformService, platform.Register},
}

func registerAll(app *bootstrap.AppCtx) error {
	self := fmt.Sprintf("http://localhost:%d", app.Config.Service.Port)
	for _, svc := range services {
		app.Config.Services[svc.name] = self
		if err := svc.register(app); err != nil {
			return fmt.Errorf("register %s: %w", svc.name, err)
		}
	}
	return nil
}

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: "local-stack",
		Register:    registerAll,
	})
}
