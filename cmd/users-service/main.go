// cmd/users-service/main.go
package main

import (
	"ecommerce/internal/pkg/bootstrap"
	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/service/users"
)

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.UsersService,
		Register:    users.Register,
	})
}
