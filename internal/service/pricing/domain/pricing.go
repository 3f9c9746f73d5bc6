package domain

const (
	// BoxVolume 是一个 50x50x50 cm 箱子的体积，单位 mm³
	BoxVolume = 500 * 500 * 500
	// BoxWeight 是一个箱子的最大重量，单位 g
	BoxWeight = 12000
	// DefaultFee 是未列出国家的每箱运费
	DefaultFee = 2500
)

// countryFees 是每箱运费，按收货国家划分
var countryFees = map[string]int{
	// 北欧
	"DK": 0, "FI": 0, "NO": 0, "SE": 0,

	// 其他欧盟国家
	"AT": 1000, "BE": 1000, "BG": 1000, "CY": 1000,
	"CZ": 1000, "DE": 1000, "EE": 1000, "ES": 1000,
	"FR": 1000, "GR": 1000, "HR": 1000, "HU": 1000,
	"IE": 1000, "IT": 1000, "LT": 1000, "LU": 1000,
	"LV": 1000, "MT": 1000, "NL": 1000, "PO": 1000,
	"PT": 1000, "RO": 1000, "SI": 1000, "SK": 1000,

	// 北美
	"CA": 1500, "US": 1500,
}

// Package 是商品包装尺寸（mm）和重量（g）
type Package struct {
	Width  int `json:"width"`
	Length int `json:"length"`
	Height int `json:"height"`
	Weight int `json:"weight"`
}

type Product struct {
	ProductID string  `json:"productId"`
	Package   Package `json:"package"`
}

type Address struct {
	Country string `json:"country"`
}

// CountBoxes 按体积和重量分别计算所需箱数，取较大者。每个商品行只计一次包装，与数量无关
func CountBoxes(packages []Package) int {
	var volume, weight int
	for _, p := range packages {
		volume += p.Width * p.Length * p.Height
		weight += p.Weight
	}
	return max(ceilDiv(volume, BoxVolume), ceilDiv(weight, BoxWeight))
}

// ShippingFee 返回收货国家的每箱运费
func ShippingFee(country string) int {
	if fee, ok := countryFees[country]; ok {
		return fee
	}
	return DefaultFee
}

// Price 计算一组商品寄往 address 的运费
func Price(products []Product, address Address) int {
	packages := make([]Package, 0, len(products))
	for _, p := range products {
		packages = append(packages, p.Package)
	}
	return CountBoxes(packages) * ShippingFee(address.Country)
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
