package application

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/warehouse/domain"
)

// Reconciler 根据订单事件维护每个订单的打包清单和元数据行
type Reconciler struct {
	repo   domain.Repository
	tracer trace.Tracer
}

func NewReconciler(repo domain.Repository, tracer trace.Tracer) *Reconciler {
	return &Reconciler{repo: repo, tracer: tracer}
}

// metadata 读取元数据行，不存在时返回 nil
func (r *Reconciler) metadata(ctx context.Context, orderID string) (*domain.Metadata, error) {
	m, err := r.repo.GetMetadata(ctx, orderID)
	if errors.Is(err, domain.ErrPackagingNotFound) {
		return nil, nil
	}
	return m, err
}

func (r *Reconciler) create(ctx context.Context, order domain.Order) error {
	items := domain.Items(order.OrderID, order.Products)
	logger.Ctx(ctx).Info().Str("orderId", order.OrderID).Int("productCount", len(items)).
		Msgf("Writing %d products for order %s", len(items), order.OrderID)
	if err := r.repo.SaveItems(ctx, items); err != nil {
		return err
	}
	return r.repo.SaveMetadata(ctx, domain.NewMetadata(order.OrderID, order.ModifiedDate))
}

// OnOrderCreated 写入完整的打包清单；已有同一版本或更新版本时跳过
func (r *Reconciler) OnOrderCreated(ctx context.Context, order domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "warehouse.OnOrderCreated", trace.WithAttributes(attribute.String("order.id", order.OrderID)))
	defer span.End()

	m, err := r.metadata(ctx, order.OrderID)
	if err != nil {
		return err
	}
	if m != nil && m.Supersedes(order.ModifiedDate) {
		logger.Ctx(ctx).Info().Str("orderId", order.OrderID).Msgf("Order %s is already in the database", order.OrderID)
		return nil
	}
	return r.create(ctx, order)
}

// OnOrderModified 只在任务仍为 NEW 且事件更新时应用商品差异
func (r *Reconciler) OnOrderModified(ctx context.Context, old, new domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "warehouse.OnOrderModified", trace.WithAttributes(attribute.String("order.id", new.OrderID)))
	defer span.End()

	m, err := r.metadata(ctx, new.OrderID)
	if err != nil {
		return err
	}
	log := logger.Ctx(ctx)
	switch {
	case m == nil:
		return r.create(ctx, new)
	case m.Status != domain.StatusNew:
		log.Info().Str("orderId", new.OrderID).Str("status", string(m.Status)).Msg("packaging already started, ignoring order modification")
		return nil
	case m.Supersedes(new.ModifiedDate):
		log.Info().Str("orderId", new.OrderID).Msg("stale order modification, skipping")
		return nil
	}

	diff := domain.ComputeDiff(old.Products, new.Products)
	changed := make([]domain.Product, 0, len(diff.Created)+len(diff.Modified))
	changed = append(append(changed, diff.Created...), diff.Modified...)
	if len(changed) > 0 {
		if err := r.repo.SaveItems(ctx, domain.Items(new.OrderID, changed)); err != nil {
			return err
		}
	}
	if len(diff.Deleted) > 0 {
		ids := make([]string, 0, len(diff.Deleted))
		for _, p := range diff.Deleted {
			ids = append(ids, p.ProductID)
		}
		if err := r.repo.DeleteItems(ctx, new.OrderID, ids); err != nil {
			return err
		}
	}
	m.Advance(new.ModifiedDate)
	return r.repo.SaveMetadata(ctx, m)
}

// OnOrderDeleted 取消仍为 NEW 的打包任务
func (r *Reconciler) OnOrderDeleted(ctx context.Context, order domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "warehouse.OnOrderDeleted", trace.WithAttributes(attribute.String("order.id", order.OrderID)))
	defer span.End()

	m, err := r.metadata(ctx, order.OrderID)
	if err != nil {
		return err
	}
	if m == nil || m.Status != domain.StatusNew {
		return nil
	}

	items, err := r.repo.ListItems(ctx, order.OrderID)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	logger.Ctx(ctx).Info().Str("orderId", order.OrderID).Int("productCount", len(ids)).
		Msgf("Deleting %d products for order %s", len(ids), order.OrderID)
	if err := r.repo.DeleteItems(ctx, order.OrderID, ids); err != nil {
		return err
	}
	return r.repo.DeleteMetadata(ctx, order.OrderID)
}
