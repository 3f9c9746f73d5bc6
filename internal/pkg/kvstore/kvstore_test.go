package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	PK    string `json:"pk"`
	SK    string `json:"sk,omitempty"`
	Group string `json:"group,omitempty"`
	Value int    `json:"value"`
}

func (i testItem) TableKey() Key { return Key{PK: i.PK, SK: i.SK} }

func (i testItem) IndexKey() (Key, bool) {
	return Key{PK: i.Group, SK: i.PK}, i.Group != ""
}

func newTestTable() (*MemoryStore, *Table[testItem]) {
	store := NewMemoryStore()
	return store, NewTable[testItem](store, "items")
}

func TestTable_GetMissing(t *testing.T) {
	_, table := newTestTable()
	_, err := table.Get(context.Background(), Key{PK: "nope"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTable_PutRecordsInsertThenModify(t *testing.T) {
	ctx := context.Background()
	store, table := newTestTable()

	require.NoError(t, table.Put(ctx, testItem{PK: "a", Value: 1}))
	require.NoError(t, table.Put(ctx, testItem{PK: "a", Value: 2}))

	got, err := table.Get(ctx, Key{PK: "a"})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Value)

	records, err := store.Pending(ctx, "items", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, EventInsert, records[0].EventName)
	assert.Nil(t, records[0].OldImage)
	assert.Equal(t, EventModify, records[1].EventName)
	assert.JSONEq(t, `{"pk":"a","value":1}`, string(records[1].OldImage))
	assert.JSONEq(t, `{"pk":"a","value":2}`, string(records[1].NewImage))
	assert.Less(t, records[0].ID, records[1].ID)
}

func TestTable_DeleteSkipsMissingKeys(t *testing.T) {
	ctx := context.Background()
	store, table := newTestTable()
	require.NoError(t, table.Put(ctx, testItem{PK: "a", Value: 1}))
	require.NoError(t, table.Delete(ctx, Key{PK: "a"}, Key{PK: "missing"}))

	records, err := store.Pending(ctx, "items", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, EventRemove, records[1].EventName)
	assert.JSONEq(t, `{"pk":"a","value":1}`, string(records[1].OldImage))
	assert.Nil(t, records[1].NewImage)
}

func TestTable_QuerySortsBySortKey(t *testing.T) {
	ctx := context.Background()
	_, table := newTestTable()
	require.NoError(t, table.Put(ctx,
		testItem{PK: "o", SK: "c"},
		testItem{PK: "o", SK: "a"},
		testItem{PK: "other", SK: "b"},
		testItem{PK: "o", SK: "b"},
	))

	items, err := table.Query(ctx, "o")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{items[0].SK, items[1].SK, items[2].SK})
}

func TestTable_QueryIndexIsSparseAndPaged(t *testing.T) {
	ctx := context.Background()
	_, table := newTestTable()
	require.NoError(t, table.Put(ctx,
		testItem{PK: "1", Group: "g"},
		testItem{PK: "2", Group: "g"},
		testItem{PK: "3"},
		testItem{PK: "4", Group: "g"},
	))

	first, next, err := table.QueryIndex(ctx, "g", Page{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "2", next)

	second, next, err := table.QueryIndex(ctx, "g", Page{Limit: 2, StartKey: next})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "4", second[0].PK)
	assert.Empty(t, next)
}

func TestTable_IndexRemovedWhenItemLeavesIndex(t *testing.T) {
	ctx := context.Background()
	_, table := newTestTable()
	require.NoError(t, table.Put(ctx, testItem{PK: "1", Group: "g"}))
	require.NoError(t, table.Put(ctx, testItem{PK: "1"}))

	items, _, err := table.QueryIndex(ctx, "g", Page{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestTable_ScanPages(t *testing.T) {
	ctx := context.Background()
	_, table := newTestTable()
	for _, pk := range []string{"c", "a", "b"} {
		require.NoError(t, table.Put(ctx, testItem{PK: pk}))
	}

	page, next, err := table.Scan(ctx, Page{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, []string{page[0].PK, page[1].PK})
	assert.Equal(t, "b", next)

	page, next, err = table.Scan(ctx, Page{Limit: 2, StartKey: next})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "c", page[0].PK)
	assert.Empty(t, next)
}

func TestTable_BatchPutSplitsLargeWrites(t *testing.T) {
	ctx := context.Background()
	store, table := newTestTable()
	items := make([]testItem, 0, 60)
	for i := 0; i < 60; i++ {
		items = append(items, testItem{PK: "o", SK: string(rune('A' + i)), Value: i})
	}
	require.NoError(t, table.BatchPut(ctx, items))

	got, err := table.Query(ctx, "o")
	require.NoError(t, err)
	assert.Len(t, got, 60)

	records, err := store.Pending(ctx, "items", 0)
	require.NoError(t, err)
	assert.Len(t, records, 60)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "t", Row{Key: Key{PK: "a"}, Data: json.RawMessage(`{"v":1}`)}))

	row, err := store.Get(ctx, "t", Key{PK: "a"})
	require.NoError(t, err)
	row.Data[2] = 'x'

	again, err := store.Get(ctx, "t", Key{PK: "a"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(again.Data))
}

func TestMemoryStore_AckRemovesOnlyGivenRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, pk := range []string{"a", "b", "c"} {
		require.NoError(t, store.Put(ctx, "t", Row{Key: Key{PK: pk}, Data: json.RawMessage(`{}`)}))
	}
	records, err := store.Pending(ctx, "t", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.NoError(t, store.Ack(ctx, "t", records[0].ID))
	left, err := store.Pending(ctx, "t", 0)
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, "b", left[0].Keys.PK)
	assert.Equal(t, "c", left[1].Keys.PK)
}
