package interfaces

import (
	"ecommerce/internal/pkg/eventbus"
	"ecommerce/internal/service/platform/application"
)

// NewEventSubscription 订阅总线上的所有事件
func NewEventSubscription(service *application.ListenerService) eventbus.Subscription {
	return eventbus.Subscription{
		Name:    "platform-on-events",
		Rule:    "true",
		Handler: service.OnEvent,
	}
}
