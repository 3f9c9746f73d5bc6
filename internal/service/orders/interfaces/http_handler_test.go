package interfaces

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"ecommerce/internal/pkg/api/apitest"
	"ecommerce/internal/pkg/eventbus"
	"ecommerce/internal/pkg/kvstore"
	"ecommerce/internal/service/orders/application"
	"ecommerce/internal/service/orders/domain"
	"ecommerce/internal/service/orders/domain/port"
	"ecommerce/internal/service/orders/infrastructure"
)

type okValidator struct{}

func (okValidator) ValidateDelivery(context.Context, *domain.Order) port.Validation {
	return port.Validation{OK: true}
}
func (okValidator) ValidatePayment(context.Context, *domain.Order) port.Validation {
	return port.Validation{OK: true}
}
func (okValidator) ValidateProducts(context.Context, *domain.Order) port.Validation {
	return port.Validation{OK: true}
}

func setup(t *testing.T) (*http.ServeMux, *infrastructure.KVOrderRepository, *application.OrderService) {
	t.Helper()
	repo := infrastructure.NewKVOrderRepository(kvstore.NewMemoryStore())
	service := application.NewOrderService(repo, okValidator{}, okValidator{}, okValidator{}, otel.Tracer("test"), 10)
	mux := http.NewServeMux()
	NewOrderHandler(service).RegisterRoutes(mux)
	require.NoError(t, repo.Save(context.Background(), &domain.Order{
		OrderID: "o-1", UserID: "alice", Status: domain.StatusNew, CreatedDate: time.Now(),
		Products: []domain.Product{{ProductID: "a"}, {ProductID: "b"}},
	}))
	return mux, repo, service
}

var validOrder = map[string]any{
	"products": []map[string]any{{
		"productId": "a", "name": "A", "price": 100, "quantity": 2,
		"package": map[string]int{"width": 1, "length": 1, "height": 1, "weight": 1},
	}},
	"address": map[string]string{
		"name": "n", "streetAddress": "s", "city": "c", "country": "SE", "phoneNumber": "p",
	},
	"deliveryPrice": 0,
	"paymentToken":  "tok",
}

func TestCreateOrder_User(t *testing.T) {
	mux, _, _ := setup(t)

	w := apitest.Serve(mux, apitest.AsUser(t, apitest.Request(t, http.MethodPost, "/orders", map[string]any{"order": validOrder}), "alice"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res application.CreateOrderResult
	apitest.Decode(t, w, &res)
	assert.True(t, res.Success)
	assert.Equal(t, 200, res.Order.Total)
	assert.Equal(t, "alice", res.Order.UserID)

	w = apitest.Serve(mux, apitest.Request(t, http.MethodPost, "/orders", map[string]any{"order": validOrder}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateOrder_Backend(t *testing.T) {
	mux, _, _ := setup(t)

	body := map[string]any{"userId": "bob", "order": validOrder}
	w := apitest.Serve(mux, apitest.Request(t, http.MethodPost, "/backend/orders", body))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = apitest.Serve(mux, apitest.AsIAM(apitest.Request(t, http.MethodPost, "/backend/orders", body), "arn:test"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = apitest.Serve(mux, apitest.AsIAM(apitest.Request(t, http.MethodPost, "/backend/orders", map[string]any{"userId": "bob"}), "arn:test"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var res application.CreateOrderResult
	apitest.Decode(t, w, &res)
	assert.Equal(t, []string{"Missing order in event"}, res.Errors)
}

func TestGetOrder(t *testing.T) {
	mux, _, _ := setup(t)

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"owner", apitest.AsUser(t, apitest.Request(t, http.MethodGet, "/orders/o-1", nil), "alice"), http.StatusOK},
		{"other user", apitest.AsUser(t, apitest.Request(t, http.MethodGet, "/orders/o-1", nil), "mallory"), http.StatusNotFound},
		{"missing", apitest.AsUser(t, apitest.Request(t, http.MethodGet, "/orders/nope", nil), "alice"), http.StatusNotFound},
		{"anonymous", apitest.Request(t, http.MethodGet, "/orders/o-1", nil), http.StatusUnauthorized},
		{"iam", apitest.AsIAM(apitest.Request(t, http.MethodGet, "/orders/o-1", nil), "arn:test"), http.StatusOK},
		{"backend iam", apitest.AsIAM(apitest.Request(t, http.MethodGet, "/backend/orders/o-1", nil), "arn:test"), http.StatusOK},
		{"backend user", apitest.AsUser(t, apitest.Request(t, http.MethodGet, "/backend/orders/o-1", nil), "alice"), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := apitest.Serve(mux, tt.req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestListOrders(t *testing.T) {
	mux, _, _ := setup(t)

	w := apitest.Serve(mux, apitest.AsUser(t, apitest.Request(t, http.MethodGet, "/orders", nil), "alice"))
	require.Equal(t, http.StatusOK, w.Code)
	var res application.ListOrdersResult
	apitest.Decode(t, w, &res)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, "o-1", res.Orders[0].OrderID)

	w = apitest.Serve(mux, apitest.AsIAM(apitest.Request(t, http.MethodGet, "/orders", nil), "arn:test"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOrderEventHandler(t *testing.T) {
	_, repo, service := setup(t)
	bus := eventbus.NewMemoryBus()
	require.NoError(t, bus.Subscribe(NewOrderEventHandler(service).Subscription()))
	ctx := context.Background()

	entry, err := eventbus.NewEntry("ecommerce.warehouse", "PackageCreated", []string{"o-1"},
		map[string]any{"orderId": "o-1", "products": []map[string]any{{"orderId": "o-1", "productId": "b", "quantity": 1}}}, "")
	require.NoError(t, err)
	require.NoError(t, bus.PutEvents(ctx, []eventbus.Entry{entry}))
	require.Empty(t, bus.Failures())

	order, err := repo.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPackaged, order.Status)
	assert.Equal(t, []domain.Product{{ProductID: "b"}}, order.Products)

	entry, err = eventbus.NewEntry("ecommerce.delivery", "DeliveryCompleted", []string{"o-1"}, map[string]any{"orderId": "o-1"}, "")
	require.NoError(t, err)
	require.NoError(t, bus.PutEvents(ctx, []eventbus.Entry{entry}))
	order, _ = repo.Get(ctx, "o-1")
	assert.Equal(t, domain.StatusFulfilled, order.Status)
}

func TestOrderEventHandler_UnknownEventIsIgnored(t *testing.T) {
	_, _, service := setup(t)
	h := NewOrderEventHandler(service)
	err := h.Handle(context.Background(), eventbus.Event{Source: "ecommerce.delivery", DetailType: "DeliveryStarted", Resources: []string{"o-1"}})
	assert.NoError(t, err)
}

func TestOrderEventHandler_MissingOrderFails(t *testing.T) {
	_, _, service := setup(t)
	h := NewOrderEventHandler(service)
	err := h.Handle(context.Background(), eventbus.Event{Source: "ecommerce.delivery", DetailType: "DeliveryFailed", Resources: []string{"ghost"}})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
