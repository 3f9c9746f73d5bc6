// cmd/delivery-service/main.go
package main

import (
	"ecommerce/internal/pkg/bootstrap"
	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/service/delivery"
)

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.DeliveryService,
		Register:    delivery.Register,
	})
}
