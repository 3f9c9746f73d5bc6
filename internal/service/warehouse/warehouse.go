// Package warehouse 是仓库服务：根据订单事件维护打包清单，打包完成后发出 PackageCreated/PackagingFailed
package warehouse

import (
	"ecommerce/internal/pkg/bootstrap"
	"ecommerce/internal/service/warehouse/application"
	"ecommerce/internal/service/warehouse/infrastructure"
	"ecommerce/internal/service/warehouse/interfaces"
)

// Register 组装仓库服务的依赖，挂载路由、订单事件订阅和打包表的变更流
func Register(app *bootstrap.AppCtx) error {
	repo := infrastructure.NewKVRepository(app.Store)

	interfaces.NewPackagingHandler(application.NewPackagingService(repo, app.Tracer)).RegisterRoutes(app.Mux)
	if err := app.Subscribe(interfaces.NewOrderEventHandler(application.NewReconciler(repo, app.Tracer)).Subscription()); err != nil {
		return err
	}
	return app.Relay(infrastructure.TableName, application.NewCompletionTranslator(repo, app.Config.Bus.Name))
}
