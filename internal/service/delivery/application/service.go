package application

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/delivery/domain"
	"ecommerce/internal/service/delivery/domain/port"
)

// DeliveryService 维护配送任务：包裹创建后建任务，配送人员推进状态
type DeliveryService struct {
	repo   domain.Repository
	orders port.OrdersService
	tracer trace.Tracer
}

func NewDeliveryService(repo domain.Repository, orders port.OrdersService, tracer trace.Tracer) *DeliveryService {
	return &DeliveryService{repo: repo, orders: orders, tracer: tracer}
}

// DeliveryList 是待配送任务的一页
type DeliveryList struct {
	Deliveries []domain.Delivery `json:"deliveries"`
	NextToken  string            `json:"nextToken,omitempty"`
}

// OnPackageCreated 从订单服务读取收货地址并创建配送任务。
// 已经开始的配送不会被覆盖；读取订单失败时返回错误以便重试。
func (s *DeliveryService) OnPackageCreated(ctx context.Context, orderID string) error {
	ctx, span := s.tracer.Start(ctx, "delivery.OnPackageCreated", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	current, err := s.repo.Get(ctx, orderID)
	switch {
	case errors.Is(err, domain.ErrDeliveryNotFound):
	case err != nil:
		return err
	case current.Status != domain.StatusNew:
		logger.Ctx(ctx).Info().Str("orderId", orderID).Str("status", string(current.Status)).
			Msgf("Cannot update shipping request in status '%s'", current.Status)
		return nil
	}
	return s.repo.Save(ctx, domain.NewDelivery(orderID, order.Address))
}

// ListNew 返回待配送任务
func (s *DeliveryService) ListNew(ctx context.Context, nextToken string, limit int) (*DeliveryList, error) {
	list, next, err := s.repo.ListNew(ctx, nextToken, limit)
	if err != nil {
		return nil, err
	}
	return &DeliveryList{Deliveries: list, NextToken: next}, nil
}

func (s *DeliveryService) Get(ctx context.Context, orderID string) (*domain.Delivery, error) {
	return s.repo.Get(ctx, orderID)
}

// Start 开始配送：NEW → IN_PROGRESS
func (s *DeliveryService) Start(ctx context.Context, orderID string) (*domain.Delivery, error) {
	return s.transition(ctx, orderID, domain.StatusInProgress)
}

// Complete 配送完成：IN_PROGRESS → COMPLETED，变更流据此发出 DeliveryCompleted
func (s *DeliveryService) Complete(ctx context.Context, orderID string) (*domain.Delivery, error) {
	return s.transition(ctx, orderID, domain.StatusCompleted)
}

// Fail 配送失败：IN_PROGRESS → FAILED，变更流据此发出 DeliveryFailed
func (s *DeliveryService) Fail(ctx context.Context, orderID string) (*domain.Delivery, error) {
	return s.transition(ctx, orderID, domain.StatusFailed)
}

func (s *DeliveryService) transition(ctx context.Context, orderID string, to domain.Status) (*domain.Delivery, error) {
	ctx, span := s.tracer.Start(ctx, "delivery.Transition")
	defer span.End()

	d, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := d.Status
	if err := d.Transition(to); err != nil {
		return nil, fmt.Errorf("%w: %s -> %s", err, from, to)
	}
	if err := s.repo.Save(ctx, d); err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Info().Str("orderId", orderID).Str("from", string(from)).Str("to", string(to)).Msg("delivery status updated")
	return d, nil
}
