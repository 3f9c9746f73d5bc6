package port

import "context"

// PaymentProcessor 定义了第三方支付的接口。
// 返回 false 表示第三方拒绝了请求，error 只用于调用失败
type PaymentProcessor interface {
	Check(ctx context.Context, paymentToken string, amount int) (bool, error)
	UpdateAmount(ctx context.Context, paymentToken string, amount int) (bool, error)
	ProcessPayment(ctx context.Context, paymentToken string) (bool, error)
	CancelPayment(ctx context.Context, paymentToken string) (bool, error)
}
