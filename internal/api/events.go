package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"memvfs/internal/store"
)

const (
	// eventBuffer bounds how far a slow client may fall behind before
	// events are dropped for it.
	eventBuffer = 256
	writeWait   = 10 * time.Second
	pingPeriod  = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// eventMessage is one frame on the event stream.
type eventMessage struct {
	Type    string `json:"type"`
	Path    string `json:"path,omitempty"`
	ID      string `json:"id,omitempty"`
	Dropped int    `json:"dropped,omitempty"`
}

// eventClient is a single WebSocket subscriber.
type eventClient struct {
	id   string
	conn *websocket.Conn
	sub  store.Subscription

	queue chan store.Event
	done  chan struct{}
	once  sync.Once

	mu      sync.Mutex
	dropped int
}

// deliver runs inside the mutating store call, so it never blocks.
func (ec *eventClient) deliver(ev store.Event) {
	select {
	case ec.queue <- ev:
	case <-ec.done:
	default:
		ec.mu.Lock()
		ec.dropped++
		ec.mu.Unlock()
	}
}

func (ec *eventClient) takeDropped() int {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	n := ec.dropped
	ec.dropped = 0
	return n
}

func (ec *eventClient) close() {
	ec.once.Do(func() {
		ec.sub.Close()
		close(ec.done)
		ec.conn.Close()
	})
}

func (ec *eventClient) send(msg eventMessage) error {
	ec.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return ec.conn.WriteJSON(msg)
}

// events upgrades the request and streams every store change event until
// the client disconnects.
func (s *Server) events(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		apiLogger.Warn("WebSocket upgrade failed: %v", err)
		return
	}

	ec := &eventClient{
		id:    uuid.NewString(),
		conn:  conn,
		queue: make(chan store.Event, eventBuffer),
		done:  make(chan struct{}),
	}
	ec.sub = s.store.Subscribe(ec.deliver)

	s.mu.Lock()
	s.clients[ec.id] = ec
	s.mu.Unlock()

	defer func() {
		ec.close()
		s.mu.Lock()
		delete(s.clients, ec.id)
		s.mu.Unlock()
		apiLogger.Info("Event subscriber %s disconnected", ec.id)
	}()

	apiLogger.Info("Event subscriber %s connected", ec.id)
	if err := ec.send(eventMessage{Type: "subscribed", ID: ec.id}); err != nil {
		return
	}

	// Reads only detect the peer going away; inbound frames are ignored.
	go func() {
		defer ec.close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ec.done:
			return
		case ev := <-ec.queue:
			if n := ec.takeDropped(); n > 0 {
				if err := ec.send(eventMessage{Type: "overflow", Dropped: n}); err != nil {
					return
				}
			}
			if err := ec.send(eventMessage{Type: ev.Type.String(), Path: ev.Path}); err != nil {
				apiLogger.Debug("Event subscriber %s write failed: %v", ec.id, err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
