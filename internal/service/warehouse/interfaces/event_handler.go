package interfaces

import (
	"context"
	"encoding/json"
	"fmt"

	"ecommerce/internal/pkg/cdc"
	"ecommerce/internal/pkg/eventbus"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/warehouse/application"
	"ecommerce/internal/service/warehouse/domain"
)

// OnOrderEventsRule 选择订单的创建、修改和删除事件
const OnOrderEventsRule = `source == "ecommerce.orders" && detailType in ["OrderCreated", "OrderModified", "OrderDeleted"]`

// OrderEventHandler 把订单事件交给 Reconciler
type OrderEventHandler struct {
	reconciler *application.Reconciler
}

func NewOrderEventHandler(reconciler *application.Reconciler) *OrderEventHandler {
	return &OrderEventHandler{reconciler: reconciler}
}

func (h *OrderEventHandler) Subscription() eventbus.Subscription {
	return eventbus.Subscription{Name: "warehouse-on-order-events", Rule: OnOrderEventsRule, Handler: h.Handle}
}

func (h *OrderEventHandler) Handle(ctx context.Context, evt eventbus.Event) error {
	switch evt.DetailType {
	case "OrderCreated", "OrderDeleted":
		var order domain.Order
		if err := evt.DecodeDetail(&order); err != nil {
			return fmt.Errorf("decode %s: %w", evt.DetailType, err)
		}
		if evt.DetailType == "OrderCreated" {
			return h.reconciler.OnOrderCreated(ctx, order)
		}
		return h.reconciler.OnOrderDeleted(ctx, order)
	case "OrderModified":
		old, new, err := decodeModified(evt)
		if err != nil {
			return err
		}
		return h.reconciler.OnOrderModified(ctx, old, new)
	default:
		logger.Ctx(ctx).Warn().Str("detailType", evt.DetailType).Msgf("Unknown detail-type %s", evt.DetailType)
		return nil
	}
}

func decodeModified(evt eventbus.Event) (old, new domain.Order, err error) {
	var detail cdc.ModifiedDetail
	if err = evt.DecodeDetail(&detail); err != nil {
		return old, new, fmt.Errorf("decode OrderModified: %w", err)
	}
	if err = decodeImage(detail.Old, &old); err != nil {
		return old, new, err
	}
	err = decodeImage(detail.New, &new)
	return old, new, err
}

func decodeImage(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode order image: %w", err)
	}
	return nil
}
