package application

import (
	"context"
	"encoding/json"
	"fmt"

	"ecommerce/internal/pkg/cdc"
	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/pkg/eventbus"
	"ecommerce/internal/pkg/kvstore"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/delivery/domain"
)

// DeliveryDetail 是 DeliveryCompleted/DeliveryFailed 事件的 detail
type DeliveryDetail struct {
	OrderID string         `json:"orderId"`
	Address domain.Address `json:"address"`
}

// StatusTranslator 把配送表的变更转换为 DeliveryCompleted 或 DeliveryFailed
type StatusTranslator struct {
	busName string
}

func NewStatusTranslator(busName string) *StatusTranslator {
	return &StatusTranslator{busName: busName}
}

var _ cdc.Translator = (*StatusTranslator)(nil)

// Translate 忽略 INSERT；未完成就被删除的任务视为配送失败；
// MODIFY 只在状态真正进入 FAILED 或 COMPLETED 时发出事件
func (t *StatusTranslator) Translate(ctx context.Context, rec kvstore.ChangeRecord) (*eventbus.Entry, error) {
	log := logger.Ctx(ctx)
	switch rec.EventName {
	case kvstore.EventInsert:
		return nil, nil
	case kvstore.EventRemove:
		old, err := decodeDelivery(rec.OldImage)
		if err != nil {
			return nil, err
		}
		if old.Status.Finished() {
			return nil, nil
		}
		log.Warn().Str("orderId", old.OrderID).Msg("Failed delivery: REMOVE before completion")
		return t.entry("DeliveryFailed", old)
	case kvstore.EventModify:
		old, err := decodeDelivery(rec.OldImage)
		if err != nil {
			return nil, err
		}
		cur, err := decodeDelivery(rec.NewImage)
		if err != nil {
			return nil, err
		}
		if old.Status == cur.Status {
			return nil, nil
		}
		switch cur.Status {
		case domain.StatusFailed:
			log.Warn().Str("orderId", cur.OrderID).Msg("Failed delivery: status marked as FAILED")
			return t.entry("DeliveryFailed", old)
		case domain.StatusCompleted:
			log.Info().Str("orderId", cur.OrderID).Msg("Delivery completed")
			return t.entry("DeliveryCompleted", old)
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", cdc.ErrUnknownEventName, rec.EventName)
	}
}

// entry 的 detail 取自旧镜像
func (t *StatusTranslator) entry(detailType string, d domain.Delivery) (*eventbus.Entry, error) {
	entry, err := eventbus.NewEntry(constants.SourceDelivery, detailType, []string{d.OrderID},
		DeliveryDetail{OrderID: d.OrderID, Address: d.Address}, t.busName)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func decodeDelivery(raw json.RawMessage) (domain.Delivery, error) {
	var d domain.Delivery
	if err := json.Unmarshal(raw, &d); err != nil {
		return d, fmt.Errorf("decode delivery image: %w", err)
	}
	return d, nil
}
