// Package delivery 是配送服务：包裹创建后建立配送任务，配送结束后发出 DeliveryCompleted/DeliveryFailed
package delivery

import (
	"ecommerce/internal/pkg/bootstrap"
	"ecommerce/internal/service/delivery/application"
	"ecommerce/internal/service/delivery/infrastructure"
	"ecommerce/internal/service/delivery/infrastructure/adapter"
	"ecommerce/internal/service/delivery/interfaces"
)

// Register 组装配送服务的依赖，挂载路由、PackageCreated 订阅和配送表的变更流
func Register(app *bootstrap.AppCtx) error {
	repo := infrastructure.NewKVRepository(app.Store)
	service := application.NewDeliveryService(repo, adapter.NewOrdersHTTPAdapter(app.HTTP), app.Tracer)

	interfaces.NewDeliveryHandler(service).RegisterRoutes(app.Mux)
	if err := app.Subscribe(interfaces.NewPackageEventHandler(service).Subscription()); err != nil {
		return err
	}
	return app.Relay(infrastructure.TableName, application.NewStatusTranslator(app.Config.Bus.Name))
}
