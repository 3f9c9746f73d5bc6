package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/products/domain"
)

// ListLimit 是商品列表每页的数量
const ListLimit = 20

// CatalogService 提供商品的查询、维护和订单商品校验
type CatalogService struct {
	repo   domain.Repository
	tracer trace.Tracer
	now    func() time.Time
}

func NewCatalogService(repo domain.Repository, tracer trace.Tracer) *CatalogService {
	return &CatalogService{repo: repo, tracer: tracer, now: func() time.Time { return time.Now().UTC() }}
}

// ProductList 是商品列表的一页
type ProductList struct {
	Products  []domain.Product `json:"products"`
	NextToken string           `json:"nextToken,omitempty"`
}

func (s *CatalogService) Get(ctx context.Context, productID string) (*domain.Product, error) {
	return s.repo.Get(ctx, productID)
}

func (s *CatalogService) List(ctx context.Context, nextToken string) (*ProductList, error) {
	products, next, err := s.repo.List(ctx, nextToken, ListLimit)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		logger.Ctx(ctx).Info().Msg("No products retrieved")
	}
	return &ProductList{Products: products, NextToken: next}, nil
}

// Put 创建或替换商品，保留已有商品的 createdDate
func (s *CatalogService) Put(ctx context.Context, p domain.Product) (*domain.Product, error) {
	now := s.now()
	p.CreatedDate, p.ModifiedDate = now, now
	existing, err := s.repo.Get(ctx, p.ProductID)
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
	case err != nil:
		return nil, err
	default:
		p.CreatedDate = existing.CreatedDate
	}
	if err := s.repo.Save(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete 删除商品，不存在时返回 ErrProductNotFound
func (s *CatalogService) Delete(ctx context.Context, productID string) error {
	if _, err := s.repo.Get(ctx, productID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, productID)
}

// Validate 把订单中的商品与目录比较。
// 返回不合法的商品（目录中不存在时返回原商品，否则返回目录中的版本）和以 ". " 连接的原因
func (s *CatalogService) Validate(ctx context.Context, products []map[string]any) ([]any, string, error) {
	ctx, span := s.tracer.Start(ctx, "products.Validate", trace.WithAttributes(attribute.Int("product.count", len(products))))
	defer span.End()

	var (
		invalid []any
		reasons []string
	)
	for _, product := range products {
		bad, reason, err := s.validateOne(ctx, product)
		if err != nil {
			return nil, "", err
		}
		if bad != nil {
			invalid = append(invalid, bad)
			reasons = append(reasons, reason)
		}
	}
	return invalid, strings.Join(reasons, ". "), nil
}

func (s *CatalogService) validateOne(ctx context.Context, product map[string]any) (any, string, error) {
	id, ok := product["productId"].(string)
	if !ok {
		return product, "Missing 'productId' in product", nil
	}
	stored, err := s.repo.Get(ctx, id)
	if errors.Is(err, domain.ErrProductNotFound) {
		return product, fmt.Sprintf("Product '%s' not found", id), nil
	}
	if err != nil {
		return nil, "", err
	}

	want, err := projection(stored)
	if err != nil {
		return nil, "", err
	}
	for _, key := range domain.ValidatedFields {
		got, ok := product[key]
		if !ok {
			return want, fmt.Sprintf("Missing '%s' in product '%s'", key, id), nil
		}
		if !reflect.DeepEqual(got, want[key]) {
			return want, fmt.Sprintf("Invalid value for '%s': want '%s', got '%s' in product '%s'",
				key, formatValue(want[key]), formatValue(got), id), nil
		}
	}
	return nil, "", nil
}

// projection 返回目录商品中参与校验的字段，数值与 JSON 解码后的类型一致
func projection(p *domain.Product) (map[string]any, error) {
	raw, err := json.Marshal(map[string]any{
		"productId": p.ProductID,
		"name":      p.Name,
		"package":   p.Package,
		"price":     p.Price,
	})
	if err != nil {
		return nil, err
	}
	var out map[string]any
	return out, json.Unmarshal(raw, &out)
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

// Seed 从 YAML 文件导入商品，已存在的商品保持不变
func (s *CatalogService) Seed(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read product seed %s: %w", path, err)
	}
	var seed struct {
		Products []domain.Product `yaml:"products"`
	}
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return 0, fmt.Errorf("parse product seed %s: %w", path, err)
	}

	created := 0
	for _, p := range seed.Products {
		if p.ProductID == "" {
			return created, fmt.Errorf("product seed %s: product %q has no productId", path, p.Name)
		}
		_, err := s.repo.Get(ctx, p.ProductID)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrProductNotFound) {
			return created, err
		}
		if _, err := s.Put(ctx, p); err != nil {
			return created, err
		}
		created++
	}
	logger.Ctx(ctx).Info().Int("created", created).Int("total", len(seed.Products)).Msgf("✅ Seeded %d products from %s", created, path)
	return created, nil
}
