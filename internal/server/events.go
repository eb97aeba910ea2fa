package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/calebrow/fleetsift/pkg/models"
)

// eventWriteTimeout bounds a single websocket write.
const eventWriteTimeout = 5 * time.Second

// EventHub fans ingest progress events out to websocket subscribers so the
// dashboard can show live progress for an upload in flight.
type EventHub struct {
	logger *zap.Logger

	mu     sync.Mutex
	subs   map[chan models.ParseProgress]struct{}
	closed bool
}

// NewEventHub creates an empty hub.
func NewEventHub(logger *zap.Logger) *EventHub {
	return &EventHub{
		logger: logger,
		subs:   make(map[chan models.ParseProgress]struct{}),
	}
}

// Broadcast delivers one progress event to every subscriber. Slow
// subscribers drop events rather than stalling ingestion.
func (h *EventHub) Broadcast(current, total int, fileName string) {
	event := models.ParseProgress{Current: current, Total: total, FileName: fileName}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// subscribe registers a new event channel and returns its remove func.
func (h *EventHub) subscribe() (chan models.ParseProgress, func()) {
	ch := make(chan models.ParseProgress, 16)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

// Close detaches all subscribers; subsequent subscriptions get a closed
// channel and finish immediately.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
}

// HandleSubscribe upgrades the request to a websocket and streams progress
// events until the client disconnects or the hub closes.
func (h *EventHub) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	ch, unsubscribe := h.subscribe()
	defer unsubscribe()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
			err := wsjson.Write(writeCtx, conn, event)
			cancel()
			if err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}
