package interfaces

import (
	"context"

	"ecommerce/internal/pkg/eventbus"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/orders/application"
)

// OnEventsRule 选择仓库和配送服务发出的、会改变订单状态的事件
const OnEventsRule = `(source == "ecommerce.warehouse" && detailType in ["PackageCreated", "PackagingFailed"]) ||
(source == "ecommerce.delivery" && detailType in ["DeliveryCompleted", "DeliveryFailed"])`

type packageDetail struct {
	Products []struct {
		ProductID string `json:"productId"`
	} `json:"products"`
}

// OrderEventHandler 消费仓库/配送事件并更新订单状态
type OrderEventHandler struct {
	service *application.OrderService
}

func NewOrderEventHandler(service *application.OrderService) *OrderEventHandler {
	return &OrderEventHandler{service: service}
}

// Subscription 返回订单状态更新的订阅
func (h *OrderEventHandler) Subscription() eventbus.Subscription {
	return eventbus.Subscription{Name: "orders-on-events", Rule: OnEventsRule, Handler: h.Handle}
}

// Handle 对事件涉及的每个订单应用状态变化；未知事件只记录日志
func (h *OrderEventHandler) Handle(ctx context.Context, evt eventbus.Event) error {
	status, ok := application.StatusForEvent(evt.Source, evt.DetailType)
	if !ok {
		logger.Ctx(ctx).Warn().Str("source", evt.Source).Str("detailType", evt.DetailType).
			Msgf("Unknown event type %s from %s", evt.DetailType, evt.Source)
		return nil
	}

	var productIDs []string
	if evt.DetailType == "PackageCreated" {
		var detail packageDetail
		if err := evt.DecodeDetail(&detail); err != nil {
			return err
		}
		productIDs = make([]string, 0, len(detail.Products))
		for _, p := range detail.Products {
			productIDs = append(productIDs, p.ProductID)
		}
	}

	for _, orderID := range evt.Resources {
		logger.Ctx(ctx).Info().Str("orderId", orderID).Str("source", evt.Source).Str("detailType", evt.DetailType).
			Msgf("Got event of type %s from %s for order %s", evt.DetailType, evt.Source, orderID)
		if err := h.service.UpdateStatus(ctx, orderID, status, productIDs); err != nil {
			return err
		}
	}
	return nil
}
