// Package products 是商品目录服务：商品查询、订单商品校验和目录维护
package products

import (
	"context"

	"ecommerce/internal/pkg/bootstrap"
	"ecommerce/internal/pkg/cdc"
	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/service/products/application"
	"ecommerce/internal/service/products/infrastructure"
	"ecommerce/internal/service/products/interfaces"
)

// Register 组装商品服务的依赖，导入种子商品，挂载路由和商品表的变更流
func Register(app *bootstrap.AppCtx) error {
	service := application.NewCatalogService(infrastructure.NewKVRepository(app.Store), app.Tracer)
	if seed := app.Config.Products.SeedFile; seed != "" {
		if _, err := service.Seed(context.Background(), seed); err != nil {
			return err
		}
	}

	interfaces.NewProductHandler(service).RegisterRoutes(app.Mux)
	return app.Relay(infrastructure.TableName, cdc.Generic{
		Source:      constants.SourceProducts,
		ObjectType:  "Product",
		ResourceKey: "productId",
		BusName:     app.Config.Bus.Name,
	})
}
