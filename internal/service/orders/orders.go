// Package orders 是订单服务：创建与查询订单，并根据仓库/配送事件推进订单状态
package orders

import (
	"ecommerce/internal/pkg/bootstrap"
	"ecommerce/internal/pkg/cdc"
	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/service/orders/application"
	"ecommerce/internal/service/orders/infrastructure"
	"ecommerce/internal/service/orders/infrastructure/adapter"
	"ecommerce/internal/service/orders/interfaces"
)

// Register 组装订单服务的依赖，挂载路由、订阅和订单表的变更流
func Register(app *bootstrap.AppCtx) error {
	repo := infrastructure.NewKVOrderRepository(app.Store)
	service := application.NewOrderService(
		repo,
		adapter.NewPricingHTTPAdapter(app.HTTP),
		adapter.NewPaymentHTTPAdapter(app.HTTP),
		adapter.NewProductsHTTPAdapter(app.HTTP),
		app.Tracer,
		app.Config.Orders.ListLimit,
	)

	interfaces.NewOrderHandler(service).RegisterRoutes(app.Mux)
	if err := app.Subscribe(interfaces.NewOrderEventHandler(service).Subscription()); err != nil {
		return err
	}
	return app.Relay(infrastructure.TableName, cdc.Generic{
		Source:      constants.SourceOrders,
		ObjectType:  "Order",
		ResourceKey: "orderId",
		BusName:     app.Config.Bus.Name,
	})
}
