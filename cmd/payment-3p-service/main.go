// cmd/payment-3p-service/main.go
package main

import (
	"ecommerce/internal/pkg/bootstrap"
	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/service/payment3p"
)

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.Payment3PService,
		Register:    payment3p.Register,
	})
}
