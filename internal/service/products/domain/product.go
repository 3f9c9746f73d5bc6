package domain

import (
	"context"
	"errors"
	"time"
)

var ErrProductNotFound = errors.New("product not found")

// Package 是商品包装尺寸（mm）和重量（g）
type Package struct {
	Width  int `json:"width" yaml:"width"`
	Length int `json:"length" yaml:"length"`
	Height int `json:"height" yaml:"height"`
	Weight int `json:"weight" yaml:"weight"`
}

// Product 是商品目录中的一个商品
type Product struct {
	ProductID    string    `json:"productId" yaml:"productId"`
	Name         string    `json:"name" yaml:"name"`
	CreatedDate  time.Time `json:"createdDate" yaml:"createdDate"`
	ModifiedDate time.Time `json:"modifiedDate" yaml:"modifiedDate"`
	Category     string    `json:"category,omitempty" yaml:"category"`
	Tags         []string  `json:"tags,omitempty" yaml:"tags"`
	Pictures     []string  `json:"pictures,omitempty" yaml:"pictures"`
	Package      Package   `json:"package" yaml:"package"`
	Price        int       `json:"price" yaml:"price"`
}

// ValidatedFields 是订单中的商品必须与目录一致的字段，按比较顺序排列
var ValidatedFields = []string{"productId", "name", "package", "price"}

// Repository 定义了商品表的持久化接口
type Repository interface {
	// Get 不存在时返回 ErrProductNotFound
	Get(ctx context.Context, productID string) (*Product, error)
	Save(ctx context.Context, p *Product) error
	Delete(ctx context.Context, productID string) error
	List(ctx context.Context, nextToken string, limit int) ([]Product, string, error)
}
