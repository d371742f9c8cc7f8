package syncsvc

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, "etag-0", 3)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var frame Frame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	return frame
}

func TestHub_WelcomeAndPing(t *testing.T) {
	hub := NewHub(8, zerolog.Nop())
	conn := dialHub(t, hub)

	welcome := readFrame(t, conn)
	if welcome.Type != "welcome" || welcome.ETag != "etag-0" || welcome.FileCount != 3 {
		t.Fatalf("Unexpected welcome: %+v", welcome)
	}

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	pong := readFrame(t, conn)
	if pong.Type != "pong" {
		t.Errorf("Frame = %+v, want pong", pong)
	}
}

func TestHub_PublishUpdate(t *testing.T) {
	hub := NewHub(8, zerolog.Nop())
	conn := dialHub(t, hub)
	readFrame(t, conn) // welcome

	// Subscriber registration is synchronous with ServeWS, but give the
	// server loop a beat before publishing.
	waitSubscribers(t, hub, 1)
	hub.Publish("etag-1")

	update := readFrame(t, conn)
	if update.Type != "update" || update.ETag != "etag-1" || !update.Changed {
		t.Errorf("Unexpected update frame: %+v", update)
	}
}

func TestHub_SlowSubscriberDropsOldest(t *testing.T) {
	sub := &subscriber{outbox: make(chan Frame, 2)}

	for i := 0; i < 5; i++ {
		sub.enqueue(Frame{Type: "update", ETag: "e", TS: int64(i)})
	}

	// The outbox holds at most its capacity and no enqueue ever blocks
	// (reaching this line proves that); overflow leaves the lag flag set.
	drained := make([]Frame, 0)
	for {
		select {
		case f := <-sub.outbox:
			drained = append(drained, f)
			continue
		default:
		}
		break
	}

	if len(drained) > 2 {
		t.Errorf("Outbox exceeded its bound: %d frames", len(drained))
	}
	// The newest frames survive drop-oldest.
	if drained[len(drained)-1].TS != 4 {
		t.Errorf("Newest frame lost: %+v", drained)
	}
	if !sub.takeLag() {
		t.Error("Expected the lag flag after overflow")
	}
}

func TestHub_DisconnectReclaims(t *testing.T) {
	hub := NewHub(8, zerolog.Nop())
	conn := dialHub(t, hub)
	readFrame(t, conn) // welcome
	waitSubscribers(t, hub, 1)

	conn.Close()
	waitSubscribers(t, hub, 0)

	// Publishing to nobody must not panic or block.
	hub.Publish("etag-after")
}

func waitSubscribers(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for hub.SubscriberCount() != want {
		select {
		case <-deadline:
			t.Fatalf("Subscriber count never reached %d", want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}
