package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kush1612/BuckIt/pkg/api"
	"github.com/Kush1612/BuckIt/pkg/pending"
	"github.com/Kush1612/BuckIt/pkg/realtime"
)

func TestGalleryReconcilesPending(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "sam@example.com")
	l := env.activeList(t, "Summer")
	ctx := context.Background()

	require.NoError(t, env.objects.Upload(ctx, "memories", l.ID+"/i1/a.jpg", []byte("x"), "image/jpeg", false))
	env.backend.addItem(api.Item{
		ID:        "i1",
		ListID:    l.ID,
		Title:     "Paris",
		Photos:    []string{"a.jpg"},
		Memories:  []api.Memory{{File: "a.jpg", Date: "2025-06-02T18:00:00.000Z"}},
		CreatedAt: testNow,
	})
	itemID := "i1"
	require.NoError(t, env.deps.Pending.Add(ctx, l.ID, pending.Upload{File: "a.jpg", URI: "file:///a.jpg", Date: "2025-06-02T18:00:00.000Z", ItemID: &itemID}))
	require.NoError(t, env.deps.Pending.Add(ctx, l.ID, pending.Upload{File: "fresh.jpg", URI: "file:///fresh.jpg", Date: pending.FormatDate(testNow), ItemID: &itemID}))

	g, err := NewGalleryService(env.deps).Gallery(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Count())
	require.Len(t, g.Months, 2)
	assert.Equal(t, "2025-07", g.Months[0].Key)
	assert.True(t, g.Months[0].Days[0].Photos[0].Pending)
	assert.Equal(t, "2025-06", g.Months[1].Key)
	assert.False(t, g.Months[1].Days[0].Photos[0].Pending)

	left := env.deps.Pending.ForList(ctx, l.ID)
	require.Len(t, left, 1)
	assert.Equal(t, "fresh.jpg", left[0].File)
}

func TestMemoriesKeepsCompletedItems(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "sam@example.com")
	l := env.activeList(t, "Summer")
	env.backend.addItem(api.Item{ID: "done", ListID: l.ID, Title: "Paris", Completed: true, CreatedAt: testNow})
	env.backend.addItem(api.Item{ID: "noted", ListID: l.ID, Title: "Rome", Memories: []api.Memory{{File: "r.jpg", Note: "gelato"}}, CreatedAt: testNow.Add(time.Hour)})
	env.backend.addItem(api.Item{ID: "todo", ListID: l.ID, Title: "Oslo", CreatedAt: testNow.Add(2 * time.Hour)})

	entries, err := NewMemoriesService(env.deps).Memories(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "noted", entries[0].Item.ID)
	assert.Equal(t, "done", entries[1].Item.ID)
}

func TestPendingService(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "sam@example.com")
	l := env.activeList(t, "Summer")
	ctx := context.Background()
	svc := NewPendingService(env.deps)

	require.NoError(t, env.deps.Pending.Add(ctx, l.ID, pending.Upload{File: "a.jpg"}))
	require.NoError(t, env.deps.Pending.Add(ctx, l.ID, pending.Upload{File: "b.jpg"}))
	require.NoError(t, env.deps.Pending.Add(ctx, "other", pending.Upload{File: "c.jpg"}))

	assert.Equal(t, []PendingCount{{ListID: l.ID, Count: 2}, {ListID: "other", Count: 1}}, svc.Counts(ctx))

	id, ups, err := svc.Uploads(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, l.ID, id)
	require.Len(t, ups, 2)
	assert.Equal(t, "b.jpg", ups[0].File, "newest first")

	id, err = svc.Clear(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, l.ID, id)
	assert.Equal(t, []PendingCount{{ListID: "other", Count: 1}}, svc.Counts(ctx))
}

func TestWatchRefetchesOnChange(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "sam@example.com")
	l := env.activeList(t, "Summer")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	itemID := "i9"
	require.NoError(t, env.deps.Pending.Add(ctx, l.ID, pending.Upload{File: "p.jpg", ItemID: &itemID}))

	joins := make(chan realtime.Message, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg realtime.Message
			if json.Unmarshal(data, &msg) != nil || msg.Event != realtime.EventJoin {
				continue
			}
			joins <- msg

			env.backend.addItem(api.Item{ID: "i9", ListID: l.ID, Title: "Oslo", Photos: []string{"p.jpg"}, CreatedAt: testNow})
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"topic":"realtime:items","event":"phx_reply","payload":{"status":"ok","response":{}},"ref":"`+*msg.Ref+`"}`))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"topic":"realtime:items","event":"postgres_changes","payload":{"ids":[1],"data":{"schema":"public","table":"items","type":"INSERT","commit_timestamp":"2025-07-14T09:31:00Z","record":{"id":"i9","list_id":"`+l.ID+`"}}},"ref":null}`))
		}
	}))
	defer srv.Close()

	svc := NewWatchService(env.deps)
	svc.config = func() realtime.Config {
		return realtime.Config{
			URL:                  srv.URL,
			APIKey:               "anon-key",
			ConnectTimeoutMs:     2000,
			HeartbeatIntervalMs:  1000,
			JoinTimeoutMs:        2000,
			ReconnectBaseDelayMs: 10,
			ReconnectMaxDelayMs:  50,
			MaxReconnectAttempts: 1,
		}
	}

	refreshes := make(chan Refresh, 4)
	done := make(chan error, 1)
	go func() {
		done <- svc.Watch(ctx, WatchHandlers{OnRefresh: func(r Refresh) { refreshes <- r }})
	}()

	first := <-refreshes
	assert.Nil(t, first.Change)
	assert.Empty(t, first.Items)

	select {
	case join := <-joins:
		assert.Equal(t, "realtime:items", join.Topic)
		var payload struct {
			AccessToken string `json:"access_token"`
			Config      struct {
				PostgresChanges []map[string]string `json:"postgres_changes"`
			} `json:"config"`
		}
		require.NoError(t, json.Unmarshal(join.Payload, &payload))
		assert.Equal(t, "token-sam@example.com", payload.AccessToken)
		require.Len(t, payload.Config.PostgresChanges, 1)
		assert.Equal(t, "list_id=eq."+l.ID, payload.Config.PostgresChanges[0]["filter"])
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for join")
	}

	select {
	case second := <-refreshes:
		require.NotNil(t, second.Change)
		assert.Equal(t, realtime.ChangeInsert, second.Change.Type)
		assert.Equal(t, "i9", second.Change.RowID())
		require.Len(t, second.Items, 1)
		assert.Equal(t, 1, second.Evicted)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for refresh")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Watch did not return")
	}
	assert.Empty(t, env.deps.Pending.ForList(context.Background(), l.ID))
}
