// cmd/delivery-pricing-service/main.go
package main

import (
	"ecommerce/internal/pkg/bootstrap"
	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/service/pricing"
)

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.DeliveryPricingService,
		Register:    pricing.Register,
	})
}
