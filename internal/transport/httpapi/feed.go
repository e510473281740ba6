package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trailhunt.dev/internal/config"
	"trailhunt.dev/internal/protocol"
)

// FeedHub pushes attempt and road events to websocket subscribers between
// polls. Delivery is best effort; a subscriber that cannot keep up is
// dropped and recovers via the polling endpoint.
type FeedHub struct {
	cfg config.FeedConfig
	log *log.Logger

	upgrader websocket.Upgrader

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	roadID int64 // 0 subscribes to every road
	out    chan []byte
}

func NewFeedHub(cfg config.FeedConfig, logger *log.Logger) *FeedHub {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.WriteTimeoutSeconds <= 0 {
		cfg.WriteTimeoutSeconds = 10
	}
	return &FeedHub{
		cfg: cfg,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		subs: map[*subscriber]struct{}{},
	}
}

// Broadcast fans one message out to matching subscribers. Never blocks: a
// full queue drops the subscriber.
func (h *FeedHub) Broadcast(msg protocol.FeedMsg) {
	b, err := json.Marshal(msg)
	if err != nil {
		h.log.Printf("feed marshal: %v", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		if sub.roadID != 0 && sub.roadID != msg.RoadID {
			continue
		}
		select {
		case sub.out <- b:
		default:
			h.log.Printf("feed subscriber lagging, dropping")
			close(sub.out)
			delete(h.subs, sub)
		}
	}
}

func (h *FeedHub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roadID, _ := strconv.ParseInt(r.URL.Query().Get("roadid"), 10, 64)
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sub := &subscriber{roadID: roadID, out: make(chan []byte, h.cfg.QueueSize)}
		if !h.add(sub) {
			return
		}
		defer h.remove(sub)

		done := make(chan struct{})
		go func() {
			defer close(done)
			// Reader drains control frames and detects the close.
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		timeout := time.Duration(h.cfg.WriteTimeoutSeconds) * time.Second
		for {
			select {
			case <-done:
				return
			case b, ok := <-sub.out:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(timeout))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}
	}
}

func (h *FeedHub) add(sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.subs[sub] = struct{}{}
	return true
}

func (h *FeedHub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
	}
}

func (h *FeedHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sub := range h.subs {
		close(sub.out)
		delete(h.subs, sub)
	}
}
