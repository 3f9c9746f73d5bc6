package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/pkg/metrics"
	"ecommerce/internal/service/orders/domain"
	"ecommerce/internal/service/orders/domain/port"
)

// OrderService 定义了订单服务提供的所有业务用例
type OrderService struct {
	repo      domain.OrderRepository
	pricing   port.PricingService
	payment   port.PaymentService
	products  port.ProductsService
	tracer    trace.Tracer
	listLimit int

	now   func() time.Time
	newID func() string
}

// NewOrderService 创建一个新的订单服务实例
func NewOrderService(repo domain.OrderRepository, pricing port.PricingService, payment port.PaymentService,
	products port.ProductsService, tracer trace.Tracer, listLimit int) *OrderService {
	if listLimit <= 0 {
		listLimit = 20
	}
	return &OrderService{
		repo:      repo,
		pricing:   pricing,
		payment:   payment,
		products:  products,
		tracer:    tracer,
		listLimit: listLimit,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// CreateOrder 校验并保存一个新订单。
// 校验失败（结构错误、运费/支付/商品不一致、下游不可达）以 Success=false 返回；
// 只有存储失败等内部错误才返回 error。
func (s *OrderService) CreateOrder(ctx context.Context, userID string, rawOrder json.RawMessage) (*CreateOrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "service.CreateOrder")
	defer span.End()

	if userID == "" {
		return failure("Invalid event", "Missing userId in event"), nil
	}
	if len(rawOrder) == 0 {
		return failure("Invalid event", "Missing order in event"), nil
	}
	doc, err := decodeDocument(rawOrder)
	if err != nil || doc == nil {
		return failure("Invalid event", "Missing order in event"), nil
	}

	// 1. 结构校验
	doc["userId"] = userID
	if err := validateSchema(doc); err != nil {
		var verr *jsonschema.ValidationError
		if !errors.As(err, &verr) {
			return nil, fmt.Errorf("validate order schema: %w", err)
		}
		return failure("JSON Schema validation error", verr.Error()), nil
	}

	// 2. 清理商品字段并注入订单字段
	var order domain.Order
	if err := json.Unmarshal(rawOrder, &order); err != nil {
		return failure("JSON Schema validation error", err.Error()), nil
	}
	now := s.now().UTC()
	order.OrderID = s.newID()
	order.UserID = userID
	order.Status = domain.StatusNew
	order.CreatedDate = now
	order.ModifiedDate = now
	order.Products = domain.NormalizeProducts(order.Products)
	order.Total = domain.ComputeTotal(order.Products, order.DeliveryPrice)
	span.SetAttributes(attribute.String("order.id", order.OrderID), attribute.String("user.id", userID))

	// 3. 并发调用三个后端校验，收集所有失败原因
	if errs := s.validate(ctx, &order); len(errs) > 0 {
		logger.Ctx(ctx).Info().Str("orderId", order.OrderID).Strs("errors", errs).Msg("Validation errors for order")
		return failure("Validation errors", errs...), nil
	}

	// 4. 保存
	if err := s.repo.Save(ctx, &order); err != nil {
		return nil, err
	}
	metrics.OrdersCreatedTotal.Inc()
	metrics.OrdersCreatedAmountTotal.Add(float64(order.Total))
	logger.Ctx(ctx).Info().Str("orderId", order.OrderID).Int("total", order.Total).Msgf("✅ Order %s created", order.OrderID)

	return &CreateOrderResult{Success: true, Message: "Order created", Order: &order}, nil
}

func (s *OrderService) validate(ctx context.Context, order *domain.Order) []string {
	validators := []func(context.Context, *domain.Order) port.Validation{
		s.pricing.ValidateDelivery,
		s.payment.ValidatePayment,
		s.products.ValidateProducts,
	}
	results := make([]port.Validation, len(validators))

	// 校验函数不返回 error，一个失败不会取消其他校验
	var g errgroup.Group
	for i, validate := range validators {
		g.Go(func() error {
			results[i] = validate(ctx, order)
			return nil
		})
	}
	_ = g.Wait()

	var errs []string
	for _, res := range results {
		if !res.OK {
			errs = append(errs, res.Message)
		}
	}
	return errs
}

// GetOrder 返回订单。普通用户只能读取自己的订单，IAM 调用方可以读取任意订单
func (s *OrderService) GetOrder(ctx context.Context, orderID, userID string, iam bool) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "service.GetOrder")
	defer span.End()

	order, err := s.repo.Get(ctx, orderID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		logger.Ctx(ctx).Warn().Str("orderId", orderID).Msg("No order retrieved for the order ID")
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if !iam && order.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// ListOrders 按创建时间分页返回用户的订单
func (s *OrderService) ListOrders(ctx context.Context, userID, nextToken string) (*ListOrdersResult, error) {
	ctx, span := s.tracer.Start(ctx, "service.ListOrders")
	defer span.End()

	orders, next, err := s.repo.ListByUser(ctx, userID, nextToken, s.listLimit)
	if err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Info().Str("userId", userID).Int("ordersCount", len(orders)).Msgf("Retrieved %d orders for userId", len(orders))
	return &ListOrdersResult{Orders: orders, NextToken: next}, nil
}
