package application

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/pkg/metrics"
	"ecommerce/internal/service/payment/domain"
	"ecommerce/internal/service/payment/domain/port"
)

// PaymentService 保存每个订单的预授权令牌，并在订单结束时扣款或取消
type PaymentService struct {
	repo      domain.Repository
	processor port.PaymentProcessor
	tracer    trace.Tracer
}

func NewPaymentService(repo domain.Repository, processor port.PaymentProcessor, tracer trace.Tracer) *PaymentService {
	return &PaymentService{repo: repo, processor: processor, tracer: tracer}
}

// OnCreated 记录新订单的令牌
func (s *PaymentService) OnCreated(ctx context.Context, orderID, paymentToken string) error {
	ctx, span := s.tracer.Start(ctx, "payment.OnCreated", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	if orderID == "" || paymentToken == "" {
		return fmt.Errorf("order %q has no payment token", orderID)
	}
	logger.Ctx(ctx).Info().Str("orderId", orderID).Msgf("Received new order %s", orderID)
	return s.repo.Save(ctx, &domain.Payment{OrderID: orderID, PaymentToken: paymentToken})
}

// OnModified 把预授权金额调整为订单的新总价
func (s *PaymentService) OnModified(ctx context.Context, orderID string, oldTotal, newTotal int) error {
	ctx, span := s.tracer.Start(ctx, "payment.OnModified", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	p, err := s.payment(ctx, orderID)
	if p == nil || err != nil {
		return err
	}
	ok, err := s.processor.UpdateAmount(ctx, p.PaymentToken, newTotal)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: update amount of order %s to %d", domain.ErrSettlementRejected, orderID, newTotal)
	}

	switch delta := newTotal - oldTotal; {
	case delta > 0:
		metrics.PaymentAmountDelta.WithLabelValues("win").Add(float64(delta))
	case delta < 0:
		metrics.PaymentAmountDelta.WithLabelValues("loss").Add(float64(-delta))
	}
	logger.Ctx(ctx).Info().Str("orderId", orderID).Int("oldTotal", oldTotal).Int("newTotal", newTotal).Msg("payment amount updated")
	return nil
}

// OnCompleted 配送完成后扣款
func (s *PaymentService) OnCompleted(ctx context.Context, orderID string) error {
	ctx, span := s.tracer.Start(ctx, "payment.OnCompleted", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	logger.Ctx(ctx).Info().Str("orderId", orderID).Msgf("Received completed order %s", orderID)
	return s.settle(ctx, orderID, "process", s.processor.ProcessPayment)
}

// OnFailed 订单失败或被删除时取消预授权
func (s *PaymentService) OnFailed(ctx context.Context, orderID string) error {
	ctx, span := s.tracer.Start(ctx, "payment.OnFailed", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	logger.Ctx(ctx).Info().Str("orderId", orderID).Msgf("Received failed order %s", orderID)
	return s.settle(ctx, orderID, "cancel", s.processor.CancelPayment)
}

// Validate 检查令牌是否预授权了至少 total
func (s *PaymentService) Validate(ctx context.Context, paymentToken string, total int) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "payment.Validate")
	defer span.End()
	return s.processor.Check(ctx, paymentToken, total)
}

// settle 调用第三方后删除支付记录；第三方拒绝时保留记录，返回错误等待重试
func (s *PaymentService) settle(ctx context.Context, orderID, action string, call func(context.Context, string) (bool, error)) error {
	p, err := s.payment(ctx, orderID)
	if p == nil || err != nil {
		return err
	}
	ok, err := call(ctx, p.PaymentToken)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s payment of order %s", domain.ErrSettlementRejected, action, orderID)
	}
	return s.repo.Delete(ctx, orderID)
}

// payment 在记录不存在时返回 nil, nil：订单已经结算过
func (s *PaymentService) payment(ctx context.Context, orderID string) (*domain.Payment, error) {
	p, err := s.repo.Get(ctx, orderID)
	if errors.Is(err, domain.ErrPaymentNotFound) {
		logger.Ctx(ctx).Info().Str("orderId", orderID).Msg("no payment recorded for order, already settled")
		return nil, nil
	}
	return p, err
}
