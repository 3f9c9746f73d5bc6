package interfaces

import (
	"context"
	"encoding/json"
	"fmt"

	"ecommerce/internal/pkg/cdc"
	"ecommerce/internal/pkg/eventbus"
	"ecommerce/internal/service/payment/application"
)

const (
	// OnCreatedRule 选择新订单
	OnCreatedRule = `source == "ecommerce.orders" && detailType == "OrderCreated"`
	// OnModifiedRule 只选择总价发生变化的订单修改
	OnModifiedRule = `source == "ecommerce.orders" && detailType == "OrderModified" && "total" in detail.changed`
	// OnCompletedRule 选择配送完成
	OnCompletedRule = `source == "ecommerce.delivery" && detailType == "DeliveryCompleted"`
	// OnFailedRule 选择所有让订单无法完成的事件
	OnFailedRule = `(source == "ecommerce.warehouse" && detailType == "PackagingFailed") ||
(source == "ecommerce.delivery" && detailType == "DeliveryFailed") ||
(source == "ecommerce.orders" && detailType == "OrderDeleted")`
)

// EventHandler 把事件交给 PaymentService
type EventHandler struct {
	service *application.PaymentService
}

func NewEventHandler(service *application.PaymentService) *EventHandler {
	return &EventHandler{service: service}
}

// Subscriptions 返回支付服务的所有订阅
func (h *EventHandler) Subscriptions() []eventbus.Subscription {
	return []eventbus.Subscription{
		{Name: "payment-on-created", Rule: OnCreatedRule, Handler: h.onCreated},
		{Name: "payment-on-modified", Rule: OnModifiedRule, Handler: h.onModified},
		{Name: "payment-on-completed", Rule: OnCompletedRule, Handler: h.onCompleted},
		{Name: "payment-on-failed", Rule: OnFailedRule, Handler: h.onFailed},
	}
}

type orderDetail struct {
	OrderID      string `json:"orderId"`
	PaymentToken string `json:"paymentToken"`
	Total        int    `json:"total"`
}

func (h *EventHandler) onCreated(ctx context.Context, evt eventbus.Event) error {
	var detail orderDetail
	if err := evt.DecodeDetail(&detail); err != nil {
		return err
	}
	return h.service.OnCreated(ctx, detail.OrderID, detail.PaymentToken)
}

func (h *EventHandler) onModified(ctx context.Context, evt eventbus.Event) error {
	var detail cdc.ModifiedDetail
	if err := evt.DecodeDetail(&detail); err != nil {
		return err
	}
	var old, new orderDetail
	if err := json.Unmarshal(detail.Old, &old); err != nil {
		return fmt.Errorf("decode old order image: %w", err)
	}
	if err := json.Unmarshal(detail.New, &new); err != nil {
		return fmt.Errorf("decode new order image: %w", err)
	}
	return h.service.OnModified(ctx, new.OrderID, old.Total, new.Total)
}

func (h *EventHandler) onCompleted(ctx context.Context, evt eventbus.Event) error {
	orderID, err := orderIDOf(evt)
	if err != nil {
		return err
	}
	return h.service.OnCompleted(ctx, orderID)
}

func (h *EventHandler) onFailed(ctx context.Context, evt eventbus.Event) error {
	orderID, err := orderIDOf(evt)
	if err != nil {
		return err
	}
	return h.service.OnFailed(ctx, orderID)
}

func orderIDOf(evt eventbus.Event) (string, error) {
	var detail struct {
		OrderID string `json:"orderId"`
	}
	if err := evt.DecodeDetail(&detail); err != nil {
		return "", err
	}
	if detail.OrderID == "" {
		return "", fmt.Errorf("%s event %s has no orderId", evt.DetailType, evt.ID)
	}
	return detail.OrderID, nil
}
