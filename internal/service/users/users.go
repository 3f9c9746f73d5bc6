// Package users 是用户服务：把身份提供方的注册回调转换为 UserCreated 事件
package users

import (
	"ecommerce/internal/pkg/bootstrap"
	"ecommerce/internal/service/users/application"
	"ecommerce/internal/service/users/interfaces"
)

// Register 挂载注册回调接口
func Register(app *bootstrap.AppCtx) error {
	service := application.NewSignUpService(app.Bus, app.Config.Bus.Name, app.Tracer)
	interfaces.NewSignUpHandler(service).RegisterRoutes(app.Mux)
	return nil
}
