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
	"ecommerce/internal/service/warehouse/domain"
)

// PackageCreatedDetail 是 PackageCreated 事件的 detail
type PackageCreatedDetail struct {
	OrderID  string        `json:"orderId"`
	Products []domain.Item `json:"products"`
}

// PackagingFailedDetail 是 PackagingFailed 事件的 detail
type PackagingFailedDetail struct {
	OrderID string `json:"orderId"`
}

// CompletionTranslator 监听元数据行进入 COMPLETED，发出 PackageCreated 或 PackagingFailed
type CompletionTranslator struct {
	repo    domain.Repository
	busName string
}

func NewCompletionTranslator(repo domain.Repository, busName string) *CompletionTranslator {
	return &CompletionTranslator{repo: repo, busName: busName}
}

var _ cdc.Translator = (*CompletionTranslator)(nil)

// Translate 丢弃 REMOVE、商品行的变更以及没有进入 COMPLETED 的元数据变更
func (t *CompletionTranslator) Translate(ctx context.Context, rec kvstore.ChangeRecord) (*eventbus.Entry, error) {
	switch rec.EventName {
	case kvstore.EventRemove:
		return nil, nil
	case kvstore.EventInsert, kvstore.EventModify:
	default:
		return nil, fmt.Errorf("%w: %q", cdc.ErrUnknownEventName, rec.EventName)
	}

	var current domain.Metadata
	if err := json.Unmarshal(rec.NewImage, &current); err != nil {
		return nil, fmt.Errorf("decode warehouse image: %w", err)
	}
	if current.ProductID != domain.MetadataKey || current.Status != domain.StatusCompleted {
		return nil, nil
	}
	if rec.EventName == kvstore.EventModify {
		var previous domain.Metadata
		if err := json.Unmarshal(rec.OldImage, &previous); err != nil {
			return nil, fmt.Errorf("decode warehouse image: %w", err)
		}
		if previous.Status == domain.StatusCompleted {
			return nil, nil
		}
	}

	items, err := t.repo.ListItems(ctx, current.OrderID)
	if err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Info().Str("orderId", current.OrderID).Int("productCount", len(items)).
		Msgf("Retrieving %d products from order %s", len(items), current.OrderID)

	var entry eventbus.Entry
	if len(items) == 0 {
		entry, err = eventbus.NewEntry(constants.SourceWarehouse, "PackagingFailed", []string{current.OrderID},
			PackagingFailedDetail{OrderID: current.OrderID}, t.busName)
	} else {
		entry, err = eventbus.NewEntry(constants.SourceWarehouse, "PackageCreated", []string{current.OrderID},
			PackageCreatedDetail{OrderID: current.OrderID, Products: items}, t.busName)
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
