// Package platform 是事件监听服务：websocket 客户端按服务名订阅总线上的事件
package platform

import (
	"ecommerce/internal/pkg/bootstrap"
	"ecommerce/internal/service/platform/application"
	"ecommerce/internal/service/platform/domain"
	"ecommerce/internal/service/platform/infrastructure"
	"ecommerce/internal/service/platform/interfaces"
)

// Register 组装监听服务：配置了 Redis 时用 Redis 登记连接，否则登记在内存中
func Register(app *bootstrap.AppCtx) error {
	var registry domain.Registry = infrastructure.NewMemoryRegistry()
	if app.Redis != nil {
		registry = infrastructure.NewRedisRegistry(app.Redis)
	}
	service := application.NewListenerService(registry, app.Tracer)

	interfaces.NewListenerHandler(service).RegisterRoutes(app.Mux)
	app.AddRunner(service)
	return app.Subscribe(interfaces.NewEventSubscription(service))
}
