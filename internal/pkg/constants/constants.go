// Package constants 集中定义服务名、事件来源和后端接口路径
package constants

// 服务名，同时也是 nacos 中注册的服务名和静态配置 services 的键
const (
	OrdersService          = "orders"
	PaymentService         = "payment"
	Payment3PService       = "payment-3p"
	DeliveryService        = "delivery"
	DeliveryPricingService = "delivery-pricing"
	WarehouseService       = "warehouse"
	ProductsService        = "products"
	UsersService           = "users"
	PlatformService        = "platform"
)

// 事件来源
const (
	SourceOrders    = "ecommerce.orders"
	SourceWarehouse = "ecommerce.warehouse"
	SourceDelivery  = "ecommerce.delivery"
	SourceProducts  = "ecommerce.products"
	SourceUsers     = "ecommerce.users"
)

// 后端接口路径
const (
	PricingPath          = "/backend/pricing"
	PaymentValidatePath  = "/backend/payment/validate"
	ProductsValidatePath = "/backend/products/validate"
	BackendOrdersPath    = "/backend/orders/"

	Payment3PPreauthPath      = "/payment-3p/preauth"
	Payment3PCheckPath        = "/payment-3p/check"
	Payment3PUpdateAmountPath = "/payment-3p/updateAmount"
	Payment3PProcessPath      = "/payment-3p/processPayment"
	Payment3PCancelPath       = "/payment-3p/cancelPayment"
)
