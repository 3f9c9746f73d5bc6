// cmd/products-service/main.go
package main

import (
	"ecommerce/internal/pkg/bootstrap"
	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/service/products"
)

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.ProductsService,
		Register:    products.Register,
	})
}
