package eventbus

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	calls [][]Entry
}

func (p *recordingPublisher) PutEvents(_ context.Context, entries []Entry) error {
	if len(entries) > MaxEntriesPerCall {
		return ErrTooManyEntries
	}
	p.calls = append(p.calls, entries)
	return nil
}

func entries(n int) []Entry {
	out := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Entry{Source: "test", DetailType: "Tick", Resources: []string{fmt.Sprint(i)}, Detail: `{}`})
	}
	return out
}

func TestPutAll_ChunksByTen(t *testing.T) {
	p := &recordingPublisher{}
	require.NoError(t, PutAll(context.Background(), p, entries(25)))

	require.Len(t, p.calls, 3)
	assert.Len(t, p.calls[0], 10)
	assert.Len(t, p.calls[1], 10)
	assert.Len(t, p.calls[2], 5)
	assert.Equal(t, "24", p.calls[2][4].Resources[0])
}

func TestPutAll_NoEntriesNoCalls(t *testing.T) {
	p := &recordingPublisher{}
	require.NoError(t, PutAll(context.Background(), p, nil))
	assert.Empty(t, p.calls)
}

func TestMemoryBus_RejectsMoreThanTen(t *testing.T) {
	bus := NewMemoryBus()
	err := bus.PutEvents(context.Background(), entries(11))
	assert.True(t, errors.Is(err, ErrTooManyEntries))
	assert.Empty(t, bus.Published())
}

func TestNewEntry_EncodesDetail(t *testing.T) {
	entry, err := NewEntry("ecommerce.orders", "OrderCreated", []string{"o-1"}, map[string]any{"orderId": "o-1"}, "bus")
	require.NoError(t, err)
	assert.JSONEq(t, `{"orderId":"o-1"}`, entry.Detail)
	assert.Equal(t, "bus", entry.EventBusName)
	assert.False(t, entry.Time.IsZero())
}

func TestFromEntry_AssignsIDAndDefaults(t *testing.T) {
	evt := FromEntry(Entry{Source: "s", DetailType: "T"})
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, "0", evt.Version)
	assert.JSONEq(t, `{}`, string(evt.Detail))
	assert.NotNil(t, evt.Resources)
}

func TestMemoryBus_DispatchesToMatchingSubscriptions(t *testing.T) {
	bus := NewMemoryBus()
	var got []string
	require.NoError(t, bus.Subscribe(Subscription{
		Name: "orders",
		Rule: `source == "ecommerce.orders"`,
		Handler: func(_ context.Context, evt Event) error {
			got = append(got, evt.DetailType)
			return nil
		},
	}))
	require.NoError(t, bus.Subscribe(Subscription{
		Name:    "failing",
		Rule:    `detailType == "OrderDeleted"`,
		Handler: func(context.Context, Event) error { return errors.New("nope") },
	}))

	require.NoError(t, bus.PutEvents(context.Background(), []Entry{
		{Source: "ecommerce.orders", DetailType: "OrderCreated", Detail: `{}`},
		{Source: "ecommerce.warehouse", DetailType: "PackageCreated", Detail: `{}`},
		{Source: "ecommerce.orders", DetailType: "OrderDeleted", Detail: `{}`},
	}))

	assert.Equal(t, []string{"OrderCreated", "OrderDeleted"}, got)
	assert.Len(t, bus.Published(), 3)
	require.Len(t, bus.Failures(), 1)
	assert.Contains(t, bus.Failures()[0].Error(), "failing")

	bus.Reset()
	assert.Empty(t, bus.Published())
	assert.Empty(t, bus.Failures())
}

func TestMemoryBus_SubscribeRejectsBadRule(t *testing.T) {
	bus := NewMemoryBus()
	err := bus.Subscribe(Subscription{Name: "bad", Rule: `source ==`})
	assert.Error(t, err)
}
