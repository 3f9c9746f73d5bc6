package application

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/warehouse/domain"
)

// PackagingService 是仓库人员使用的打包工作接口
type PackagingService struct {
	repo   domain.Repository
	tracer trace.Tracer
}

func NewPackagingService(repo domain.Repository, tracer trace.Tracer) *PackagingService {
	return &PackagingService{repo: repo, tracer: tracer}
}

// Package 是一个打包任务及其商品清单
type Package struct {
	domain.Metadata
	Products []domain.Item `json:"products"`
}

// PackageList 是待打包任务的一页
type PackageList struct {
	Packages  []domain.Metadata `json:"packages"`
	NextToken string            `json:"nextToken,omitempty"`
}

// QuantityUpdate 修改一个商品的打包数量；0 表示移除
type QuantityUpdate struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// ListNew 按进入 NEW 的时间返回待打包任务
func (s *PackagingService) ListNew(ctx context.Context, nextToken string, limit int) (*PackageList, error) {
	ctx, span := s.tracer.Start(ctx, "warehouse.ListNew")
	defer span.End()

	list, next, err := s.repo.ListNew(ctx, nextToken, limit)
	if err != nil {
		return nil, err
	}
	return &PackageList{Packages: list, NextToken: next}, nil
}

// Get 返回打包任务和它的商品清单
func (s *PackagingService) Get(ctx context.Context, orderID string) (*Package, error) {
	m, err := s.repo.GetMetadata(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &Package{Metadata: *m, Products: items}, nil
}

// Start 开始打包：NEW → IN_PROGRESS
func (s *PackagingService) Start(ctx context.Context, orderID string) (*Package, error) {
	return s.transition(ctx, orderID, domain.StatusInProgress)
}

// Complete 完成打包：IN_PROGRESS → COMPLETED。变更流会据此发出 PackageCreated 或 PackagingFailed
func (s *PackagingService) Complete(ctx context.Context, orderID string) (*Package, error) {
	return s.transition(ctx, orderID, domain.StatusCompleted)
}

func (s *PackagingService) transition(ctx context.Context, orderID string, to domain.Status) (*Package, error) {
	ctx, span := s.tracer.Start(ctx, "warehouse.Transition")
	defer span.End()

	m, err := s.repo.GetMetadata(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := m.Status
	if err := m.Transition(to); err != nil {
		return nil, fmt.Errorf("%w: %s -> %s", err, from, to)
	}
	if err := s.repo.SaveMetadata(ctx, m); err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Info().Str("orderId", orderID).Str("from", string(from)).Str("to", string(to)).Msg("packaging status updated")
	return s.Get(ctx, orderID)
}

// SetQuantities 修改打包中的商品数量，只允许在 IN_PROGRESS 状态下进行
func (s *PackagingService) SetQuantities(ctx context.Context, orderID string, updates []QuantityUpdate) (*Package, error) {
	ctx, span := s.tracer.Start(ctx, "warehouse.SetQuantities")
	defer span.End()

	m, err := s.repo.GetMetadata(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if m.Status != domain.StatusInProgress {
		return nil, fmt.Errorf("%w: cannot edit products in status %s", domain.ErrInvalidTransition, m.Status)
	}

	var (
		save   []domain.Item
		remove []string
	)
	for _, u := range updates {
		if u.ProductID == "" || u.ProductID == domain.MetadataKey || u.Quantity < 0 {
			return nil, fmt.Errorf("%w: product %q", domain.ErrInvalidUpdate, u.ProductID)
		}
		if u.Quantity == 0 {
			remove = append(remove, u.ProductID)
			continue
		}
		save = append(save, domain.Item{OrderID: orderID, ProductID: u.ProductID, Quantity: u.Quantity})
	}
	if err := s.repo.SaveItems(ctx, save); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItems(ctx, orderID, remove); err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}
