package stream

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ncnews/ncnews-backend/internal/events"
	"github.com/ncnews/ncnews-backend/internal/metrics"
)

func TestFilterMatch(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		typ     string
		matches bool
	}{
		{"empty matches all", "", events.CommentDeleted, true},
		{"wildcard", "*", events.TopicCreated, true},
		{"exact", "article.voted", events.ArticleVoted, true},
		{"exact miss", "article.voted", events.ArticleCreated, false},
		{"family", "comment.*", events.CommentVoted, true},
		{"family miss", "comment.*", events.ArticleVoted, false},
		{"list", "topic.created, article.*", events.ArticleDeleted, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.matches, ParseFilter(tc.raw).Match(tc.typ))
		})
	}
}

func TestFilterAddRemove(t *testing.T) {
	f := NewFilter("article.voted")
	assert.False(t, f.Match(events.CommentCreated))

	f.Add("comment.*")
	assert.True(t, f.Match(events.CommentCreated))

	f.Remove("comment.*", "article.voted")
	// Back to empty, which matches everything.
	assert.True(t, f.Match(events.TopicCreated))
}

func publish(t *testing.T, bus *events.Bus, typ, id string) {
	t.Helper()
	ev, err := events.New(typ, id, map[string]string{"id": id})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), ev))
}

func TestWebSocketRelaysFilteredEvents(t *testing.T) {
	bus := events.NewMemoryBus(zap.NewNop().Sugar(), nil)
	handler := NewWebSocketHandler(bus, nil, zap.NewNop().Sugar(), metrics.NewNop())
	server := httptest.NewServer(handler)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?types=article.*"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The subscription exists once the handshake completes.
	publish(t, bus, events.CommentCreated, "7")
	publish(t, bus, events.ArticleVoted, "1")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got events.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, events.ArticleVoted, got.Type)
	assert.Equal(t, "1", got.ID)
}

func TestWebSocketSubscribeMessage(t *testing.T) {
	bus := events.NewMemoryBus(zap.NewNop().Sugar(), nil)
	handler := NewWebSocketHandler(bus, nil, zap.NewNop().Sugar(), metrics.NewNop())
	server := httptest.NewServer(handler)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?types=topic.created"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(ControlMessage{Type: "subscribe", Types: []string{"comment.*"}}))

	// The control message is applied asynchronously; keep publishing until it lands.
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	received := make(chan events.Event, 1)
	go func() {
		var ev events.Event
		if conn.ReadJSON(&ev) == nil {
			received <- ev
		}
	}()

	deadline := time.After(3 * time.Second)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case ev := <-received:
			assert.Equal(t, events.CommentCreated, ev.Type)
			return
		case <-ticker.C:
			publish(t, bus, events.CommentCreated, "19")
		case <-deadline:
			t.Fatal("no event after subscribe message")
		}
	}
}

func TestWebSocketShutdownClosesConnections(t *testing.T) {
	bus := events.NewMemoryBus(zap.NewNop().Sugar(), nil)
	handler := NewWebSocketHandler(bus, nil, zap.NewNop().Sugar(), metrics.NewNop())
	server := httptest.NewServer(handler)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	handler.Shutdown()
	handler.Shutdown()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	bus := events.NewMemoryBus(zap.NewNop().Sugar(), nil)
	handler := NewWebSocketHandler(bus, []string{"http://localhost:3000"}, zap.NewNop().Sugar(), metrics.NewNop())
	server := httptest.NewServer(handler)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSSEStreamsEvents(t *testing.T) {
	bus := events.NewMemoryBus(zap.NewNop().Sugar(), nil)
	server := httptest.NewServer(NewSSEHandler(bus, zap.NewNop().Sugar(), metrics.NewNop()))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"?types=topic.created", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	publish(t, bus, events.ArticleVoted, "1")
	publish(t, bus, events.TopicCreated, "dogs")

	var lines []string
	for len(lines) < 2 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	assert.Equal(t, "event: topic.created", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "data: "))
	assert.Contains(t, lines[1], `"id":"dogs"`)
}
