package interfaces

import (
	"context"
	"fmt"

	"ecommerce/internal/pkg/eventbus"
	"ecommerce/internal/service/delivery/application"
)

// OnPackageCreatedRule 选择仓库的 PackageCreated 事件
const OnPackageCreatedRule = `source == "ecommerce.warehouse" && detailType == "PackageCreated"`

// PackageEventHandler 在包裹打包完成后创建配送任务
type PackageEventHandler struct {
	service *application.DeliveryService
}

func NewPackageEventHandler(service *application.DeliveryService) *PackageEventHandler {
	return &PackageEventHandler{service: service}
}

func (h *PackageEventHandler) Subscription() eventbus.Subscription {
	return eventbus.Subscription{Name: "delivery-on-package-created", Rule: OnPackageCreatedRule, Handler: h.Handle}
}

func (h *PackageEventHandler) Handle(ctx context.Context, evt eventbus.Event) error {
	var detail struct {
		OrderID string `json:"orderId"`
	}
	if err := evt.DecodeDetail(&detail); err != nil {
		return err
	}
	if detail.OrderID == "" {
		return fmt.Errorf("PackageCreated event %s has no orderId", evt.ID)
	}
	return h.service.OnPackageCreated(ctx, detail.OrderID)
}
