// cmd/warehouse-service/main.go
package main

import (
	"ecommerce/internal/pkg/bootstrap"
	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/service/warehouse"
)

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.WarehouseService,
		Register:    warehouse.Register,
	})
}
