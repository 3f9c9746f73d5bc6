package domain

import "time"

// Package 是商品包装信息
type Package struct {
	Width  int `json:"width"`
	Length int `json:"length"`
	Height int `json:"height"`
	Weight int `json:"weight"`
}

// Product 是订单事件中的一行商品；两个 Product 相等当且仅当所有字段都相等
type Product struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Package   Package `json:"package"`
	Price     int     `json:"price"`
	Quantity  int     `json:"quantity"`
}

// Order 是仓库关心的订单字段
type Order struct {
	OrderID      string    `json:"orderId"`
	ModifiedDate time.Time `json:"modifiedDate"`
	Products     []Product `json:"products"`
}

// Items 把订单商品转换为打包清单，数量默认为 1
func Items(orderID string, products []Product) []Item {
	items := make([]Item, 0, len(products))
	for _, p := range products {
		quantity := p.Quantity
		if quantity == 0 {
			quantity = 1
		}
		items = append(items, Item{OrderID: orderID, ProductID: p.ProductID, Quantity: quantity})
	}
	return items
}
