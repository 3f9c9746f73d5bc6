// cmd/platform-service/main.go
package main

import (
	"ecommerce/internal/pkg/bootstrap"
	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/service/platform"
)

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.PlatformService,
		Register:    platform.Register,
	})
}
