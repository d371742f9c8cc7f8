package syncsvc

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/yichenlu/sensereader/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Frame is one JSON message on the push channel
type Frame struct {
	Type      string `json:"type"` // welcome | update | pong | lag | error
	ETag      string `json:"etag,omitempty"`
	FileCount int    `json:"file_count,omitempty"`
	Changed   bool   `json:"changed,omitempty"`
	TS        int64  `json:"ts,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Message   string `json:"message,omitempty"`
}

// subscriber owns one connection's bounded outbox. A subscriber that stops
// reading loses the oldest frames and gets a lag marker; it is never allowed
// to block the hub.
type subscriber struct {
	outbox chan Frame
	mu     sync.Mutex
	lagged bool
	closed bool
}

// enqueue adds a frame, dropping the oldest on overflow. The lag flag makes
// the writer emit a lag marker before the next delivered frame.
func (s *subscriber) enqueue(frame Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	for {
		select {
		case s.outbox <- frame:
			return
		default:
		}
		select {
		case <-s.outbox:
			metrics.SyncLagDrops.Inc()
			s.lagged = true
		default:
		}
	}
}

// takeLag consumes the pending lag marker, if any
func (s *subscriber) takeLag() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lagged {
		s.lagged = false
		return true
	}
	return false
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.outbox)
	}
}

// Hub tracks push-channel subscribers and broadcasts etag changes
type Hub struct {
	outboxSize int
	log        zerolog.Logger

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// NewHub creates a hub
func NewHub(outboxSize int, log zerolog.Logger) *Hub {
	if outboxSize < 4 {
		outboxSize = 4
	}
	return &Hub{
		outboxSize: outboxSize,
		log:        log.With().Str("component", "sync-hub").Logger(),
		subs:       make(map[*subscriber]struct{}),
	}
}

// Publish sends an update frame to every subscriber
func (h *Hub) Publish(etag string) {
	frame := Frame{Type: "update", ETag: etag, Changed: true, TS: time.Now().Unix()}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.enqueue(frame)
	}
}

// SubscriberCount returns the number of connected subscribers
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeWS upgrades the request and runs the subscriber until it disconnects.
// welcomeETag and fileCount seed the welcome frame.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, welcomeETag string, fileCount int) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := &subscriber{outbox: make(chan Frame, h.outboxSize)}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	metrics.SyncSubscribers.Inc()

	defer func() {
		h.mu.Lock()
		delete(h.subs, sub)
		h.mu.Unlock()
		sub.close()
		metrics.SyncSubscribers.Dec()
	}()

	sub.enqueue(Frame{Type: "welcome", ETag: welcomeETag, FileCount: fileCount})

	// Writer drains the outbox; the read loop below owns the connection
	// lifetime.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for frame := range sub.outbox {
			if sub.takeLag() {
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(Frame{Type: "lag"}); err != nil {
					return
				}
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}()

	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if msg.Type == "ping" {
			sub.enqueue(Frame{Type: "pong"})
		}
	}

	sub.close()
	<-done
}

// NotifyError emits an error frame to every subscriber. Orchestration errors
// never close the channel.
func (h *Hub) NotifyError(kind, message string) {
	frame := Frame{Type: "error", Kind: kind, Message: message}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.enqueue(frame)
	}
}
