package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/pitchside/internal/logging"
	"github.com/fortuna/pitchside/internal/publisher"
)

func TestSyncEventsReachDashboards(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewServer(logging.NewNop())
	go s.hub.Run(ctx)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sync"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	ev := publisher.SyncEvent{RunID: "r1", Cadence: "matches", Job: "matches", League: "GB1", Succeeded: 10}
	require.NoError(t, s.PublishSyncEvent(context.Background(), ev))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got publisher.SyncEvent
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "GB1", got.League)
	assert.Equal(t, 10, got.Succeeded)

	// stopping the hub closes every dashboard connection
	cancel()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, s.hub.ClientCount())
}

func TestHealth(t *testing.T) {
	s := NewServer(logging.NewNop())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/ws/health", nil))
	assert.JSONEq(t, `{"status": "healthy", "clients": 0}`, rec.Body.String())
}

func TestBroadcastNeverBlocks(t *testing.T) {
	h := NewHub(logging.NewNop())
	for i := 0; i < cap(h.broadcast); i++ {
		require.True(t, h.Broadcast([]byte("x")))
	}
	assert.False(t, h.Broadcast([]byte("overflow")))
}
