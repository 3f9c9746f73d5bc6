package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"ecommerce/internal/pkg/cdc"
	"ecommerce/internal/pkg/kvstore"
	"ecommerce/internal/service/delivery/domain"
	"ecommerce/internal/service/delivery/domain/port"
	"ecommerce/internal/service/delivery/infrastructure"
)

var address = domain.Address{Name: "John Doe", StreetAddress: "Main Street 1", City: "Oslo", Country: "NO", PhoneNumber: "+47"}

type fakeOrders struct {
	err   error
	calls int
}

func (f *fakeOrders) GetOrder(_ context.Context, orderID string) (*port.Order, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &port.Order{OrderID: orderID, Address: address}, nil
}

func newService(orders port.OrdersService) (*DeliveryService, *infrastructure.KVRepository) {
	repo := infrastructure.NewKVRepository(kvstore.NewMemoryStore())
	return NewDeliveryService(repo, orders, otel.Tracer("test")), repo
}

func TestOnPackageCreated_CreatesDelivery(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(&fakeOrders{})
	require.NoError(t, svc.OnPackageCreated(ctx, "o-1"))

	d, err := repo.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, d.Status)
	assert.Equal(t, address, d.Address)
	assert.Equal(t, "true", d.IsNew)

	list, err := svc.ListNew(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, list.Deliveries, 1)
}

func TestOnPackageCreated_DoesNotOverwriteStartedDelivery(t *testing.T) {
	ctx := context.Background()
	orders := &fakeOrders{}
	svc, repo := newService(orders)
	require.NoError(t, svc.OnPackageCreated(ctx, "o-1"))
	_, err := svc.Start(ctx, "o-1")
	require.NoError(t, err)

	require.NoError(t, svc.OnPackageCreated(ctx, "o-1"))
	d, err := repo.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, d.Status)
	assert.Empty(t, d.IsNew)
	assert.Equal(t, 2, orders.calls)
}

func TestOnPackageCreated_OrderLookupFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(&fakeOrders{err: errors.New("status 500")})
	assert.Error(t, svc.OnPackageCreated(ctx, "o-1"))
	_, err := repo.Get(ctx, "o-1")
	assert.ErrorIs(t, err, domain.ErrDeliveryNotFound)
}

func TestTransitions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(&fakeOrders{})
	require.NoError(t, svc.OnPackageCreated(ctx, "o-1"))

	_, err := svc.Complete(ctx, "o-1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	d, err := svc.Start(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, d.Status)

	list, err := svc.ListNew(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, list.Deliveries)

	d, err = svc.Fail(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, d.Status)

	_, err = svc.Complete(ctx, "o-1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = svc.Start(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrDeliveryNotFound)
}

func image(t *testing.T, status domain.Status) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(domain.Delivery{OrderID: "o-1", Status: status, Address: address})
	require.NoError(t, err)
	return raw
}

func TestStatusTranslator(t *testing.T) {
	ctx := context.Background()
	tr := NewStatusTranslator("bus")

	cases := []struct {
		name       string
		rec        kvstore.ChangeRecord
		detailType string
	}{
		{"insert ignored", kvstore.ChangeRecord{EventName: kvstore.EventInsert, NewImage: image(t, domain.StatusNew)}, ""},
		{"remove before completion fails", kvstore.ChangeRecord{EventName: kvstore.EventRemove, OldImage: image(t, domain.StatusInProgress)}, "DeliveryFailed"},
		{"remove of new fails", kvstore.ChangeRecord{EventName: kvstore.EventRemove, OldImage: image(t, domain.StatusNew)}, "DeliveryFailed"},
		{"remove of completed ignored", kvstore.ChangeRecord{EventName: kvstore.EventRemove, OldImage: image(t, domain.StatusCompleted)}, ""},
		{"remove of failed ignored", kvstore.ChangeRecord{EventName: kvstore.EventRemove, OldImage: image(t, domain.StatusFailed)}, ""},
		{"started ignored", kvstore.ChangeRecord{EventName: kvstore.EventModify, OldImage: image(t, domain.StatusNew), NewImage: image(t, domain.StatusInProgress)}, ""},
		{"failed", kvstore.ChangeRecord{EventName: kvstore.EventModify, OldImage: image(t, domain.StatusInProgress), NewImage: image(t, domain.StatusFailed)}, "DeliveryFailed"},
		{"completed", kvstore.ChangeRecord{EventName: kvstore.EventModify, OldImage: image(t, domain.StatusInProgress), NewImage: image(t, domain.StatusCompleted)}, "DeliveryCompleted"},
		{"rewrite of completed ignored", kvstore.ChangeRecord{EventName: kvstore.EventModify, OldImage: image(t, domain.StatusCompleted), NewImage: image(t, domain.StatusCompleted)}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entry, err := tr.Translate(ctx, tc.rec)
			require.NoError(t, err)
			if tc.detailType == "" {
				assert.Nil(t, entry)
				return
			}
			require.NotNil(t, entry)
			assert.Equal(t, tc.detailType, entry.DetailType)
			assert.Equal(t, "ecommerce.delivery", entry.Source)
			assert.Equal(t, []string{"o-1"}, entry.Resources)

			var detail DeliveryDetail
			require.NoError(t, json.Unmarshal([]byte(entry.Detail), &detail))
			assert.Equal(t, DeliveryDetail{OrderID: "o-1", Address: address}, detail)
		})
	}

	_, err := tr.Translate(ctx, kvstore.ChangeRecord{EventName: "UPSERT"})
	assert.ErrorIs(t, err, cdc.ErrUnknownEventName)
}
