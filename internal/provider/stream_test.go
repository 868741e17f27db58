package provider

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerarb/internal/model"
)

type streamSubscription struct {
	Action    string   `json:"action"`
	Countries []string `json:"countries"`
}

func TestStreamClient_StartStream(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ts := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	var (
		mu    sync.Mutex
		subs  []streamSubscription
		conns int32
	)
	upgrader := websocket.Upgrader{}
	// Each connection sends one noise frame, one foreign tick and one FR
	// tick, then closes so the client has to reconnect.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		n := atomic.AddInt32(&conns, 1)

		var sub streamSubscription
		if err := c.ReadJSON(&sub); err != nil {
			return
		}
		mu.Lock()
		subs = append(subs, sub)
		mu.Unlock()

		c.WriteMessage(websocket.TextMessage, []byte("not-json"))
		c.WriteJSON(map[string]interface{}{"country": "DE", "timestamp": ts, "price": 10.0})
		c.WriteJSON(map[string]interface{}{"country": "FR", "timestamp": ts, "price": 60.0 + float64(n)})
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client := NewStreamClient(logger, wsURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	points := make(chan model.PricePoint, 8)
	done := make(chan error, 1)
	go func() {
		done <- client.StartStream(ctx, points, "FR")
	}()

	receive := func() model.PricePoint {
		select {
		case point := <-points:
			return point
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for a price point")
			return model.PricePoint{}
		}
	}

	// First connection delivers only the FR tick, noise and DE are dropped
	first := receive()
	assert.Equal(t, 61.0, first.Price)
	assert.True(t, first.Timestamp.Equal(ts))

	// A second delivery proves the client reconnected after the server
	// closed the first connection
	second := receive()
	assert.Equal(t, 62.0, second.Price)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for StartStream to return")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, subs)
	assert.Equal(t, "subscribe", subs[0].Action)
	assert.Equal(t, []string{"FR"}, subs[0].Countries)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&conns), int32(2))
}
