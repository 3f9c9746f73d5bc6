// cmd/payment-service/main.go
package main

import (
	"ecommerce/internal/pkg/bootstrap"
	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/service/payment"
)

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.PaymentService,
		Register:    payment.Register,
	})
}
