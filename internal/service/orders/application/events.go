package application

import (
	"context"
	"fmt"

	"ecommerce/internal/pkg/constants"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/pkg/metrics"
	"ecommerce/internal/service/orders/domain"
)

// StatusForEvent 把仓库/配送事件映射为订单状态；未知的 (source, detailType) 返回 false
func StatusForEvent(source, detailType string) (domain.Status, bool) {
	switch {
	case source == constants.SourceWarehouse && detailType == "PackageCreated":
		return domain.StatusPackaged, true
	case source == constants.SourceWarehouse && detailType == "PackagingFailed":
		return domain.StatusPackagingFailed, true
	case source == constants.SourceDelivery && detailType == "DeliveryCompleted":
		return domain.StatusFulfilled, true
	case source == constants.SourceDelivery && detailType == "DeliveryFailed":
		return domain.StatusDeliveryFailed, true
	}
	return "", false
}

// UpdateStatus 更新订单状态。productIDs 不为 nil 时只保留其中的商品。
// 这里没有时间戳保护：后到的事件总是覆盖当前状态。
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status domain.Status, productIDs []string) error {
	ctx, span := s.tracer.Start(ctx, "service.UpdateStatus")
	defer span.End()

	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return fmt.Errorf("update status of order %s: %w", orderID, err)
	}

	log := logger.Ctx(ctx)
	if order.Status.IsTerminal() && order.Status != status {
		metrics.OrderStatusRegressionsTotal.Inc()
		log.Warn().Str("orderId", orderID).Str("from", string(order.Status)).Str("to", string(status)).
			Msg("🚨 order leaves a terminal status")
	}
	log.Info().Str("orderId", orderID).Str("status", string(status)).
		Msgf("Update status for order %s to %s", orderID, status)

	order.Status = status
	if productIDs != nil {
		order.KeepProducts(productIDs)
	}
	if err := s.repo.Save(ctx, order); err != nil {
		return err
	}
	metrics.OrderStatusUpdatesTotal.WithLabelValues(string(status)).Inc()
	return nil
}
