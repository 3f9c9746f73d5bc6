package application

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"ecommerce/internal/pkg/cdc"
	"ecommerce/internal/pkg/kvstore"
	"ecommerce/internal/service/warehouse/domain"
	"ecommerce/internal/service/warehouse/infrastructure"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store      *kvstore.MemoryStore
	repo       *infrastructure.KVRepository
	reconciler *Reconciler
	packaging  *PackagingService
}

func newFixture() *fixture {
	store := kvstore.NewMemoryStore()
	repo := infrastructure.NewKVRepository(store)
	return &fixture{
		store:      store,
		repo:       repo,
		reconciler: NewReconciler(repo, otel.Tracer("test")),
		packaging:  NewPackagingService(repo, otel.Tracer("test")),
	}
}

func (f *fixture) pending(t *testing.T) []kvstore.ChangeRecord {
	t.Helper()
	recs, err := f.store.Pending(context.Background(), infrastructure.TableName, 0)
	require.NoError(t, err)
	return recs
}

func order(id string, at time.Time, products ...domain.Product) domain.Order {
	return domain.Order{OrderID: id, ModifiedDate: at, Products: products}
}

func line(id string, quantity int) domain.Product {
	return domain.Product{ProductID: id, Name: id, Price: 100, Quantity: quantity}
}

func TestOnOrderCreated_WritesWorklist(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.reconciler.OnOrderCreated(ctx, order("o-1", t0, line("a", 2), line("b", 0))))

	pkg, err := f.packaging.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, pkg.Status)
	assert.Equal(t, []domain.Item{
		{OrderID: "o-1", ProductID: "a", Quantity: 2},
		{OrderID: "o-1", ProductID: "b", Quantity: 1},
	}, pkg.Products)
}

func TestOnOrderCreated_ReplayIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	evt := order("o-1", t0, line("a", 1))

	require.NoError(t, f.reconciler.OnOrderCreated(ctx, evt))
	written := len(f.pending(t))
	before, err := f.repo.GetMetadata(ctx, "o-1")
	require.NoError(t, err)

	require.NoError(t, f.reconciler.OnOrderCreated(ctx, evt))
	assert.Len(t, f.pending(t), written, "a replayed event must not write")
	after, err := f.repo.GetMetadata(ctx, "o-1")
	require.NoError(t, err)
	assert.True(t, before.ModifiedDate.Equal(after.ModifiedDate))

	// 更早的版本同样被跳过
	require.NoError(t, f.reconciler.OnOrderCreated(ctx, order("o-1", t0.Add(-time.Hour))))
	assert.Len(t, f.pending(t), written)
}

func TestOnOrderModified(t *testing.T) {
	ctx := context.Background()
	old := order("o-1", t0, line("a", 1), line("b", 1))
	new := order("o-1", t0.Add(time.Minute), line("a", 3), line("c", 1))

	t.Run("applies diff while NEW", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.reconciler.OnOrderCreated(ctx, old))
		require.NoError(t, f.reconciler.OnOrderModified(ctx, old, new))

		pkg, err := f.packaging.Get(ctx, "o-1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []domain.Item{
			{OrderID: "o-1", ProductID: "a", Quantity: 3},
			{OrderID: "o-1", ProductID: "c", Quantity: 1},
		}, pkg.Products)
		assert.True(t, pkg.ModifiedDate.Equal(new.ModifiedDate))
		assert.Equal(t, domain.StatusNew, pkg.Status)
	})

	t.Run("stale event is skipped", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.reconciler.OnOrderCreated(ctx, new))
		written := len(f.pending(t))
		require.NoError(t, f.reconciler.OnOrderModified(ctx, old, new))
		assert.Len(t, f.pending(t), written)
	})

	t.Run("ignored once packaging started", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.reconciler.OnOrderCreated(ctx, old))
		_, err := f.packaging.Start(ctx, "o-1")
		require.NoError(t, err)
		require.NoError(t, f.reconciler.OnOrderModified(ctx, old, new))

		pkg, err := f.packaging.Get(ctx, "o-1")
		require.NoError(t, err)
		assert.Len(t, pkg.Products, 2)
		assert.Equal(t, "b", pkg.Products[1].ProductID)
	})

	t.Run("missing worklist is created from the new image", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.reconciler.OnOrderModified(ctx, old, new))
		pkg, err := f.packaging.Get(ctx, "o-1")
		require.NoError(t, err)
		assert.Len(t, pkg.Products, 2)
	})
}

func TestOnOrderDeleted(t *testing.T) {
	ctx := context.Background()

	t.Run("removes NEW worklist", func(t *testing.T) {
		f := newFixture()
		evt := order("o-1", t0, line("a", 1), line("b", 1))
		require.NoError(t, f.reconciler.OnOrderCreated(ctx, evt))
		require.NoError(t, f.reconciler.OnOrderDeleted(ctx, evt))

		_, err := f.packaging.Get(ctx, "o-1")
		assert.ErrorIs(t, err, domain.ErrPackagingNotFound)
		items, err := f.repo.ListItems(ctx, "o-1")
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("keeps started worklist", func(t *testing.T) {
		f := newFixture()
		evt := order("o-1", t0, line("a", 1))
		require.NoError(t, f.reconciler.OnOrderCreated(ctx, evt))
		_, err := f.packaging.Start(ctx, "o-1")
		require.NoError(t, err)
		require.NoError(t, f.reconciler.OnOrderDeleted(ctx, evt))

		pkg, err := f.packaging.Get(ctx, "o-1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusInProgress, pkg.Status)
	})

	t.Run("unknown order is a no-op", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.reconciler.OnOrderDeleted(ctx, order("nope", t0)))
	})
}

func TestPackagingService(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.reconciler.OnOrderCreated(ctx, order("o-1", t0, line("a", 1), line("b", 2))))
	require.NoError(t, f.reconciler.OnOrderCreated(ctx, order("o-2", t0.Add(time.Second), line("c", 1))))

	list, err := f.packaging.ListNew(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, list.Packages, 1)
	assert.Equal(t, "o-1", list.Packages[0].OrderID)
	require.NotEmpty(t, list.NextToken)

	list, err = f.packaging.ListNew(ctx, list.NextToken, 1)
	require.NoError(t, err)
	require.Len(t, list.Packages, 1)
	assert.Equal(t, "o-2", list.Packages[0].OrderID)

	_, err = f.packaging.SetQuantities(ctx, "o-1", []QuantityUpdate{{ProductID: "a", Quantity: 0}})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "edits require IN_PROGRESS")

	_, err = f.packaging.Complete(ctx, "o-1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.packaging.Start(ctx, "o-1")
	require.NoError(t, err)

	list, err = f.packaging.ListNew(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, list.Packages, 1, "started packages leave the NEW index")

	_, err = f.packaging.SetQuantities(ctx, "o-1", []QuantityUpdate{{ProductID: "a", Quantity: -1}})
	assert.ErrorIs(t, err, domain.ErrInvalidUpdate)

	pkg, err := f.packaging.SetQuantities(ctx, "o-1", []QuantityUpdate{{ProductID: "a", Quantity: 0}, {ProductID: "b", Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, []domain.Item{{OrderID: "o-1", ProductID: "b", Quantity: 1}}, pkg.Products)

	pkg, err = f.packaging.Complete(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, pkg.Status)

	_, err = f.packaging.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrPackagingNotFound)
}

func metadataImage(t *testing.T, orderID string, status domain.Status) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(domain.Metadata{OrderID: orderID, ProductID: domain.MetadataKey, Status: status, ModifiedDate: t0})
	require.NoError(t, err)
	return raw
}

func TestCompletionTranslator(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.reconciler.OnOrderCreated(ctx, order("o-1", t0, line("a", 1))))
	translator := NewCompletionTranslator(f.repo, "bus")

	t.Run("completed with items emits PackageCreated", func(t *testing.T) {
		entry, err := translator.Translate(ctx, kvstore.ChangeRecord{
			EventName: kvstore.EventModify,
			OldImage:  metadataImage(t, "o-1", domain.StatusInProgress),
			NewImage:  metadataImage(t, "o-1", domain.StatusCompleted),
		})
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "ecommerce.warehouse", entry.Source)
		assert.Equal(t, "PackageCreated", entry.DetailType)
		assert.Equal(t, []string{"o-1"}, entry.Resources)
		assert.Equal(t, "bus", entry.EventBusName)

		var detail PackageCreatedDetail
		require.NoError(t, json.Unmarshal([]byte(entry.Detail), &detail))
		assert.Equal(t, []domain.Item{{OrderID: "o-1", ProductID: "a", Quantity: 1}}, detail.Products)
	})

	t.Run("completed with empty worklist emits PackagingFailed", func(t *testing.T) {
		entry, err := translator.Translate(ctx, kvstore.ChangeRecord{
			EventName: kvstore.EventModify,
			OldImage:  metadataImage(t, "o-empty", domain.StatusInProgress),
			NewImage:  metadataImage(t, "o-empty", domain.StatusCompleted),
		})
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "PackagingFailed", entry.DetailType)
		assert.JSONEq(t, `{"orderId":"o-empty"}`, entry.Detail)
	})

	t.Run("non-terminal and repeated completions are discarded", func(t *testing.T) {
		for _, rec := range []kvstore.ChangeRecord{
			{EventName: kvstore.EventInsert, NewImage: metadataImage(t, "o-1", domain.StatusNew)},
			{EventName: kvstore.EventModify, OldImage: metadataImage(t, "o-1", domain.StatusNew), NewImage: metadataImage(t, "o-1", domain.StatusInProgress)},
			{EventName: kvstore.EventModify, OldImage: metadataImage(t, "o-1", domain.StatusCompleted), NewImage: metadataImage(t, "o-1", domain.StatusCompleted)},
			{EventName: kvstore.EventInsert, NewImage: json.RawMessage(`{"orderId":"o-1","productId":"a","quantity":1}`)},
			{EventName: kvstore.EventRemove, OldImage: metadataImage(t, "o-1", domain.StatusCompleted)},
		} {
			entry, err := translator.Translate(ctx, rec)
			require.NoError(t, err)
			assert.Nil(t, entry)
		}
	})

	t.Run("unknown event name is an error", func(t *testing.T) {
		_, err := translator.Translate(ctx, kvstore.ChangeRecord{EventName: "TRUNCATE"})
		assert.ErrorIs(t, err, cdc.ErrUnknownEventName)
	})
}
