package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ncnews/ncnews-backend/internal/metrics"
)

const heartbeatPeriod = 30 * time.Second

// SSEHandler relays events as text/event-stream, one "event:" per type.
type SSEHandler struct {
	bus     Subscriber
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewSSEHandler(bus Subscriber, logger *zap.SugaredLogger, m *metrics.Metrics) *SSEHandler {
	return &SSEHandler{bus: bus, logger: logger, metrics: m}
}

func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"msg":"Streaming unsupported"}`, http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	sub, err := h.bus.Subscribe(ctx)
	if err != nil {
		h.logger.Errorw("Event subscription failed", "error", err)
		http.Error(w, `{"msg":"Event stream unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	h.metrics.IncrementStreams(ctx)
	defer h.metrics.DecrementStreams(ctx)

	filter := ParseFilter(r.URL.Query().Get("types"))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	h.logger.Debugw("SSE client connected", "remote_addr", r.RemoteAddr)

	heartbeat := time.NewTicker(heartbeatPeriod)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if !filter.Match(ev.Type) {
				continue
			}

			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Errorw("Failed to marshal event", "type", ev.Type, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}
