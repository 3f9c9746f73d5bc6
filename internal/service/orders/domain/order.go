package domain

import (
	"errors"
	"time"
)

// DateLayout 是订单时间的序列化格式；定长，保证字符串顺序与时间顺序一致
const DateLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	ErrOrderNotFound = errors.New("order not found")
)

// Status 定义了订单的状态
type Status string

const (
	StatusNew             Status = "NEW"
	StatusPackaged        Status = "PACKAGED"
	StatusPackagingFailed Status = "PACKAGING_FAILED"
	StatusFulfilled       Status = "FULFILLED"
	StatusDeliveryFailed  Status = "DELIVERY_FAILED"
	StatusCancelled       Status = "CANCELLED"
	StatusCompleted       Status = "COMPLETED"
)

// IsTerminal 判断订单是否已经结束
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFulfilled, StatusDeliveryFailed, StatusPackagingFailed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Package 是商品的包装尺寸（毫米）与重量（克）
type Package struct {
	Width  int `json:"width"`
	Length int `json:"length"`
	Height int `json:"height"`
	Weight int `json:"weight"`
}

// Product 是订单中的一行商品，只保留下单时需要校验的不可变字段
type Product struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Package   Package `json:"package"`
	Price     int     `json:"price"`
	Quantity  int     `json:"quantity"`
}

// Address 是收货地址
type Address struct {
	Name          string `json:"name"`
	CompanyName   string `json:"companyName,omitempty"`
	StreetAddress string `json:"streetAddress"`
	PostCode      string `json:"postCode"`
	City          string `json:"city"`
	State         string `json:"state,omitempty"`
	Country       string `json:"country"`
	PhoneNumber   string `json:"phoneNumber"`
}

// Order 是订单聚合根
type Order struct {
	OrderID       string    `json:"orderId"`
	UserID        string    `json:"userId"`
	CreatedDate   time.Time `json:"createdDate"`
	ModifiedDate  time.Time `json:"modifiedDate"`
	Status        Status    `json:"status"`
	Products      []Product `json:"products"`
	Address       Address   `json:"address"`
	DeliveryPrice int       `json:"deliveryPrice"`
	Total         int       `json:"total"`
	PaymentToken  string    `json:"paymentToken"`
}

// ComputeTotal 返回 Σ(price × quantity) + deliveryPrice
func ComputeTotal(products []Product, deliveryPrice int) int {
	total := deliveryPrice
	for _, p := range products {
		total += p.Price * p.Quantity
	}
	return total
}

// NormalizeProducts 只保留商品的不可变字段，数量默认为 1
func NormalizeProducts(products []Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.Quantity == 0 {
			p.Quantity = 1
		}
		out = append(out, p)
	}
	return out
}

// KeepProducts 只保留 productIDs 中出现的商品（打包后可能丢弃了部分商品）
func (o *Order) KeepProducts(productIDs []string) {
	keep := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		keep[id] = struct{}{}
	}
	products := make([]Product, 0, len(o.Products))
	for _, p := range o.Products {
		if _, ok := keep[p.ProductID]; ok {
			products = append(products, p)
		}
	}
	o.Products = products
}

// FormatDate 把时间转换为可排序的字符串
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
