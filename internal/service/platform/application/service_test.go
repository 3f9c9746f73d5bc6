package application

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"ecommerce/internal/pkg/eventbus"
	"ecommerce/internal/service/platform/domain"
	"ecommerce/internal/service/platform/infrastructure"
)

type fakeSender struct {
	mu     sync.Mutex
	gone   bool
	sent   [][]byte
	closed bool
}

func (f *fakeSender) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone {
		return domain.ErrConnectionGone
	}
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeSender) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func orderEvent(t *testing.T) eventbus.Event {
	t.Helper()
	entry, err := eventbus.NewEntry("ecommerce.orders", "OrderCreated", []string{"o-1"}, map[string]string{"orderId": "o-1"}, "bus")
	require.NoError(t, err)
	return eventbus.FromEntry(entry)
}

func TestOnEvent_SendsToRegisteredListeners(t *testing.T) {
	ctx := context.Background()
	svc := NewListenerService(infrastructure.NewMemoryRegistry(), otel.Tracer("test"))

	orders, gone, warehouse, unbound := &fakeSender{}, &fakeSender{gone: true}, &fakeSender{}, &fakeSender{}
	for id, s := range map[string]*fakeSender{"a": orders, "b": gone, "c": warehouse, "d": unbound} {
		require.NoError(t, svc.Connect(ctx, id, s))
	}
	require.NoError(t, svc.Register(ctx, "a", "ecommerce.orders"))
	require.NoError(t, svc.Register(ctx, "b", "ecommerce.orders"))
	require.NoError(t, svc.Register(ctx, "c", "ecommerce.warehouse"))

	evt := orderEvent(t)
	require.NoError(t, svc.OnEvent(ctx, evt))

	require.Len(t, orders.sent, 1)
	var got eventbus.Event
	require.NoError(t, json.Unmarshal(orders.sent[0], &got))
	assert.Equal(t, evt.ID, got.ID)
	assert.Equal(t, "OrderCreated", got.DetailType)
	assert.Empty(t, warehouse.sent)
	assert.Empty(t, unbound.sent)
}

func TestOnEvent_SkipsConnectionsHeldElsewhere(t *testing.T) {
	ctx := context.Background()
	reg := infrastructure.NewMemoryRegistry()
	require.NoError(t, reg.Add(ctx, "remote"))
	require.NoError(t, reg.Bind(ctx, "remote", "ecommerce.orders"))

	svc := NewListenerService(reg, otel.Tracer("test"))
	assert.NoError(t, svc.OnEvent(ctx, orderEvent(t)))
}

func TestDisconnectAndStop(t *testing.T) {
	ctx := context.Background()
	svc := NewListenerService(infrastructure.NewMemoryRegistry(), otel.Tracer("test"))
	a, b := &fakeSender{}, &fakeSender{}
	require.NoError(t, svc.Connect(ctx, "a", a))
	require.NoError(t, svc.Connect(ctx, "b", b))
	require.NoError(t, svc.Register(ctx, "a", "ecommerce.orders"))

	require.NoError(t, svc.Disconnect(ctx, "a"))
	require.NoError(t, svc.Disconnect(ctx, "a"))
	assert.ErrorIs(t, svc.Register(ctx, "a", "ecommerce.orders"), domain.ErrConnectionNotFound)

	require.NoError(t, svc.Stop(ctx))
	assert.True(t, b.closed)
	assert.False(t, a.closed)
}
