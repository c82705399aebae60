package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ncnews/ncnews-backend/internal/events"
	"github.com/ncnews/ncnews-backend/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Subscriber hands out event subscriptions; events.Bus implements it.
type Subscriber interface {
	Subscribe(ctx context.Context) (events.Subscription, error)
}

// ControlMessage lets a websocket client change its filter.
type ControlMessage struct {
	Type  string   `json:"type"` // "subscribe" or "unsubscribe"
	Types []string `json:"types"`
}

type WebSocketHandler struct {
	bus      Subscriber
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics

	// Hijacked connections are not tracked by http.Server.Shutdown.
	done     chan struct{}
	shutdown sync.Once
}

// NewWebSocketHandler accepts same-origin requests and the given origins.
func NewWebSocketHandler(bus Subscriber, allowedOrigins []string, logger *zap.SugaredLogger, m *metrics.Metrics) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &WebSocketHandler{
		bus: bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
		logger:  logger,
		metrics: m,
		done:    make(chan struct{}),
	}
}

// Shutdown sends a going-away close to every open connection and refuses new
// ones. Safe to call more than once.
func (h *WebSocketHandler) Shutdown() {
	h.shutdown.Do(func() { close(h.done) })
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, `{"msg":"Server shutting down"}`, http.StatusServiceUnavailable)
		return
	default:
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Subscribe before upgrading so nothing published after the handshake is missed.
	sub, err := h.bus.Subscribe(ctx)
	if err != nil {
		h.logger.Errorw("Event subscription failed", "error", err)
		http.Error(w, `{"msg":"Event stream unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.metrics.IncrementStreams(ctx)
	defer h.metrics.DecrementStreams(ctx)

	filter := ParseFilter(r.URL.Query().Get("types"))
	h.logger.Debugw("WebSocket client connected", "remote_addr", r.RemoteAddr)

	go h.readPump(conn, filter, cancel)
	h.writePump(ctx, conn, sub, filter)
}

func (h *WebSocketHandler) readPump(conn *websocket.Conn, filter *Filter, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warnw("WebSocket read error", "error", err)
			}
			return
		}

		var msg ControlMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.logger.Debugw("Ignoring invalid control message", "error", err)
			continue
		}

		switch msg.Type {
		case "subscribe":
			filter.Add(msg.Types...)
		case "unsubscribe":
			filter.Remove(msg.Types...)
		}
	}
}

func (h *WebSocketHandler) writePump(ctx context.Context, conn *websocket.Conn, sub events.Subscription, filter *Filter) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-h.done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return

		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if !filter.Match(ev.Type) {
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
