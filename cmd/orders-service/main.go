// cmd/orders-service/main.go
package main

import (
	"ecommerce/internal/pkg/bootstrap"
	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/service/orders"
)

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.OrdersService,
		Register:    orders.Register,
	})
}
