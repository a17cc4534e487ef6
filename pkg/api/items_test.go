package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const itemRow = `{
	"id": "i1", "list_id": "l1", "title": "Paris", "description": "Eiffel tower",
	"category": "Travel", "secret": false, "completed": true,
	"completed_at": "2025-07-01T12:00:00+00:00", "created_at": "2025-06-01T10:00:00+00:00",
	"photos": ["a.jpg"], "memories": [{"file": "a.jpg", "note": "sunset", "date": "2025-07-01T12:00:00.000Z"}]
}`

func TestItemsByListFilters(t *testing.T) {
	tests := []struct {
		name     string
		query    ItemQuery
		category string
		order    string
	}{
		{"all", ItemQuery{Category: CategoryAll}, "", "created_at.desc"},
		{"category", ItemQuery{Category: CategoryFood}, "eq.Food", "created_at.desc"},
		{"ascending", ItemQuery{Ascending: true}, "", "created_at.asc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupServer(t, func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				assert.Equal(t, "eq.l1", q.Get("list_id"))
				assert.Equal(t, tt.category, q.Get("category"))
				assert.Equal(t, tt.order, q.Get("order"))
				w.Write([]byte("[" + itemRow + "]"))
			})

			items, err := ItemsByList(context.Background(), "l1", tt.query)
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, []string{"a.jpg"}, items[0].Photos)
			require.NotNil(t, items[0].CompletedAt)
		})
	}
}

func TestItemsByListCompletedFilter(t *testing.T) {
	setupServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "is.true", r.URL.Query().Get("completed"))
		w.Write([]byte("[]"))
	})

	done := true
	items, err := ItemsByList(context.Background(), "l1", ItemQuery{Completed: &done})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGetItem(t *testing.T) {
	setupServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") == "eq.i1" {
			w.Write([]byte("[" + itemRow + "]"))
			return
		}
		w.Write([]byte("[]"))
	})

	item, err := GetItem(context.Background(), "i1")
	require.NoError(t, err)
	m, ok := item.MemoryFor("a.jpg")
	assert.True(t, ok)
	assert.Equal(t, "sunset", m.Note)
	assert.True(t, item.HasPhoto("a.jpg"))
	assert.False(t, item.HasPhoto("b.jpg"))

	_, err = GetItem(context.Background(), "nope")
	assert.True(t, IsNotFound(err))
}

func TestCreateItemSendsEmptyArrays(t *testing.T) {
	setupServer(t, func(w http.ResponseWriter, r *http.Request) {
		body := readJSON(t, r)
		assert.Equal(t, []interface{}{}, body["photos"])
		assert.Equal(t, []interface{}{}, body["memories"])
		assert.Equal(t, "l1", body["list_id"])
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("[" + itemRow + "]"))
	})

	item, err := CreateItem(context.Background(), NewItem{ListID: "l1", Title: "Paris", Category: CategoryTravel})
	require.NoError(t, err)
	assert.Equal(t, "i1", item.ID)
}

func TestUpdateItem(t *testing.T) {
	setupServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.i1", r.URL.Query().Get("id"))
		body := readJSON(t, r)
		assert.Equal(t, true, body["completed"])
		w.Write([]byte("[" + itemRow + "]"))
	})

	item, err := UpdateItem(context.Background(), "i1", map[string]interface{}{"completed": true})
	require.NoError(t, err)
	assert.True(t, item.Completed)
}

func TestUpdateItemMissingRow(t *testing.T) {
	setupServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	})

	_, err := UpdateItem(context.Background(), "gone", map[string]interface{}{"title": "x"})
	assert.True(t, IsNotFound(err))
}

func TestDeleteItemsByList(t *testing.T) {
	setupServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "eq.l1", r.URL.Query().Get("list_id"))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, DeleteItemsByList(context.Background(), "l1"))
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory("Cute"))
	assert.False(t, ValidCategory(CategoryAll))
	assert.False(t, ValidCategory("travel"))
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2025-07-01T12:00:00.000Z", "2025-07-01T12:00:00.123456+00:00", "2025-07-01"} {
		ts, ok := ParseTime(s)
		assert.True(t, ok, s)
		assert.Equal(t, 2025, ts.Year(), s)
	}
	_, ok := ParseTime("yesterday")
	assert.False(t, ok)
	_, ok = ParseTime("")
	assert.False(t, ok)
}
