package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"ecommerce/internal/pkg/kvstore"
	"ecommerce/internal/service/orders/domain"
	"ecommerce/internal/service/orders/domain/port"
	"ecommerce/internal/service/orders/infrastructure"
)

type fakePricing struct {
	price int
	calls atomic.Int32
}

func (f *fakePricing) ValidateDelivery(_ context.Context, o *domain.Order) port.Validation {
	f.calls.Add(1)
	if o.DeliveryPrice != f.price {
		return port.Validation{Message: fmt.Sprintf("Wrong delivery price: got %d, expected %d", o.DeliveryPrice, f.price)}
	}
	return port.Validation{OK: true}
}

type fakeValidator struct {
	result port.Validation
	calls  atomic.Int32
	seen   atomic.Pointer[domain.Order]
}

func (f *fakeValidator) ValidatePayment(_ context.Context, o *domain.Order) port.Validation {
	f.calls.Add(1)
	f.seen.Store(o)
	return f.result
}

func (f *fakeValidator) ValidateProducts(_ context.Context, o *domain.Order) port.Validation {
	f.calls.Add(1)
	return f.result
}

type fixture struct {
	service  *OrderService
	repo     *infrastructure.KVOrderRepository
	pricing  *fakePricing
	payment  *fakeValidator
	products *fakeValidator
}

func newFixture(deliveryPrice int) *fixture {
	f := &fixture{
		repo:     infrastructure.NewKVOrderRepository(kvstore.NewMemoryStore()),
		pricing:  &fakePricing{price: deliveryPrice},
		payment:  &fakeValidator{result: port.Validation{OK: true}},
		products: &fakeValidator{result: port.Validation{OK: true}},
	}
	f.service = NewOrderService(f.repo, f.pricing, f.payment, f.products, otel.Tracer("test"), 2)
	return f
}

func rawOrder(t *testing.T, deliveryPrice int, products ...map[string]any) json.RawMessage {
	t.Helper()
	order := map[string]any{
		"products": products,
		"address": map[string]any{
			"name": "John Doe", "streetAddress": "Main Street 1", "postCode": "12345",
			"city": "Oslo", "country": "NO", "phoneNumber": "+4712345678",
		},
		"deliveryPrice": deliveryPrice,
		"paymentToken":  "tok-1",
	}
	raw, err := json.Marshal(order)
	require.NoError(t, err)
	return raw
}

func product(id string, price, quantity int) map[string]any {
	p := map[string]any{
		"productId": id, "name": "Product " + id, "price": price,
		"package": map[string]any{"width": 100, "length": 100, "height": 100, "weight": 500},
		"tags":    []string{"dropped"},
	}
	if quantity > 0 {
		p["quantity"] = quantity
	}
	return p
}

func TestCreateOrder_ComputesTotalAndPersists(t *testing.T) {
	f := newFixture(50)
	ctx := context.Background()

	res, err := f.service.CreateOrder(ctx, "user-1", rawOrder(t, 50, product("a", 100, 1), product("b", 200, 3)))
	require.NoError(t, err)
	require.True(t, res.Success, res.Errors)
	assert.Equal(t, "Order created", res.Message)

	order := res.Order
	assert.NotEmpty(t, order.OrderID)
	assert.Equal(t, domain.StatusNew, order.Status)
	assert.Equal(t, 750, order.Total)
	assert.Equal(t, "user-1", order.UserID)
	assert.Equal(t, order.CreatedDate, order.ModifiedDate)
	assert.Equal(t, 1, order.Products[0].Quantity)

	// 支付校验看到的是已计算总额的订单
	assert.Equal(t, 750, f.payment.seen.Load().Total)

	stored, err := f.repo.Get(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 750, stored.Total)
}

func TestCreateOrder_WrongDeliveryPrice(t *testing.T) {
	f := newFixture(50)
	ctx := context.Background()

	res, err := f.service.CreateOrder(ctx, "user-1", rawOrder(t, 40, product("a", 100, 1)))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Validation errors", res.Message)
	assert.Equal(t, []string{"Wrong delivery price: got 40, expected 50"}, res.Errors)
	assert.Nil(t, res.Order)

	orders, _, err := f.repo.ListByUser(ctx, "user-1", "", 10)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateOrder_CollectsAllValidationErrors(t *testing.T) {
	f := newFixture(50)
	f.payment.result = port.Validation{Message: "Failure to contact the payment service"}
	f.products.result = port.Validation{Message: "Product 'a' not found"}

	res, err := f.service.CreateOrder(context.Background(), "user-1", rawOrder(t, 10, product("a", 100, 1)))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.ElementsMatch(t, []string{
		"Wrong delivery price: got 10, expected 50",
		"Failure to contact the payment service",
		"Product 'a' not found",
	}, res.Errors)
	assert.EqualValues(t, 1, f.pricing.calls.Load())
	assert.EqualValues(t, 1, f.payment.calls.Load())
	assert.EqualValues(t, 1, f.products.calls.Load())
}

func TestCreateOrder_InvalidInputSkipsBackends(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		order   json.RawMessage
		message string
	}{
		{name: "missing user", userID: "", order: json.RawMessage(`{}`), message: "Invalid event"},
		{name: "missing order", userID: "u", order: nil, message: "Invalid event"},
		{name: "null order", userID: "u", order: json.RawMessage(`null`), message: "Invalid event"},
		{name: "no products", userID: "u", order: json.RawMessage(`{"products":[],"address":{},"deliveryPrice":0,"paymentToken":"t"}`), message: "JSON Schema validation error"},
		{name: "negative price", userID: "u", order: json.RawMessage(`{"products":[{"productId":"a","name":"a","price":-1,"package":{"width":1,"length":1,"height":1,"weight":1}}],"address":{"name":"n","streetAddress":"s","city":"c","country":"NO","phoneNumber":"p"},"deliveryPrice":0,"paymentToken":"t"}`), message: "JSON Schema validation error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(0)
			res, err := f.service.CreateOrder(context.Background(), tt.userID, tt.order)
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.message, res.Message)
			assert.Len(t, res.Errors, 1)
			assert.Zero(t, f.pricing.calls.Load())
		})
	}
}

func TestCreateOrder_TotalInvariant(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	genLine := gopter.CombineGens(gen.IntRange(0, 100000), gen.IntRange(1, 10))
	properties.Property("total equals sum of price times quantity plus delivery price", prop.ForAll(
		func(lines [][]interface{}, deliveryPrice int) bool {
			f := newFixture(deliveryPrice)
			products := make([]map[string]any, 0, len(lines))
			want := deliveryPrice
			for i, line := range lines {
				price, quantity := line[0].(int), line[1].(int)
				products = append(products, product(fmt.Sprintf("p%d", i), price, quantity))
				want += price * quantity
			}
			res, err := f.service.CreateOrder(context.Background(), "user", rawOrder(t, deliveryPrice, products...))
			return err == nil && res.Success && res.Order.Total == want
		},
		gen.SliceOfN(5, genLine).SuchThat(func(v [][]interface{}) bool { return len(v) > 0 }),
		gen.IntRange(0, 5000),
	))

	properties.TestingRun(t)
}

func TestGetOrder_Ownership(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	require.NoError(t, f.repo.Save(ctx, &domain.Order{OrderID: "o-1", UserID: "owner"}))

	_, err := f.service.GetOrder(ctx, "o-1", "owner", false)
	assert.NoError(t, err)
	_, err = f.service.GetOrder(ctx, "o-1", "intruder", false)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	_, err = f.service.GetOrder(ctx, "o-1", "", true)
	assert.NoError(t, err)
	_, err = f.service.GetOrder(ctx, "missing", "owner", false)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestListOrders_Pages(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, f.repo.Save(ctx, &domain.Order{
			OrderID: fmt.Sprintf("o-%d", i), UserID: "u", CreatedDate: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, f.repo.Save(ctx, &domain.Order{OrderID: "other", UserID: "v", CreatedDate: base}))

	first, err := f.service.ListOrders(ctx, "u", "")
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	assert.Equal(t, "o-0", first.Orders[0].OrderID)
	assert.NotEmpty(t, first.NextToken)

	second, err := f.service.ListOrders(ctx, "u", first.NextToken)
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	assert.Equal(t, "o-2", second.Orders[0].OrderID)
	assert.Empty(t, second.NextToken)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	require.NoError(t, f.repo.Save(ctx, &domain.Order{
		OrderID: "o-1", Status: domain.StatusNew,
		Products: []domain.Product{{ProductID: "a"}, {ProductID: "b"}},
	}))

	require.NoError(t, f.service.UpdateStatus(ctx, "o-1", domain.StatusPackaged, []string{"b"}))
	order, err := f.repo.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPackaged, order.Status)
	assert.Equal(t, []domain.Product{{ProductID: "b"}}, order.Products)

	// 没有商品列表时保留原商品
	require.NoError(t, f.service.UpdateStatus(ctx, "o-1", domain.StatusFulfilled, nil))
	order, err = f.repo.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFulfilled, order.Status)
	assert.Len(t, order.Products, 1)

	// 终态之后的事件仍然会覆盖状态
	require.NoError(t, f.service.UpdateStatus(ctx, "o-1", domain.StatusDeliveryFailed, nil))
	order, _ = f.repo.Get(ctx, "o-1")
	assert.Equal(t, domain.StatusDeliveryFailed, order.Status)

	assert.ErrorIs(t, f.service.UpdateStatus(ctx, "missing", domain.StatusPackaged, nil), domain.ErrOrderNotFound)
}

func TestStatusForEvent(t *testing.T) {
	status, ok := StatusForEvent("ecommerce.warehouse", "PackageCreated")
	assert.True(t, ok)
	assert.Equal(t, domain.StatusPackaged, status)

	status, ok = StatusForEvent("ecommerce.delivery", "DeliveryFailed")
	assert.True(t, ok)
	assert.Equal(t, domain.StatusDeliveryFailed, status)

	_, ok = StatusForEvent("ecommerce.delivery", "PackageCreated")
	assert.False(t, ok)
}
