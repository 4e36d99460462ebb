package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Update is one change notification broadcast to live sessions. It is
// created when a file write is classified, sent at most once, and never
// queued or persisted.
type Update struct {
	Type      string `json:"type"` // "update" or "full-reload"
	Path      string `json:"path"`
	Timestamp int64  `json:"timestamp"`
	IsCSS     bool   `json:"isCSS,omitempty"`
}

// updateEnvelope is the outbound wire format.
type updateEnvelope struct {
	Type    string   `json:"type"`
	Updates []Update `json:"updates"`
}

// socketConn is the slice of *websocket.Conn the coordinator needs; tests
// substitute fakes.
type socketConn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Coordinator tracks the live socket sessions of one project and fans
// change notifications out to them. All state is owned by a single
// goroutine fed over the commands channel, so session registration,
// eviction and broadcast need no locking and are observed in a single
// serial order by every connected client.
type Coordinator struct {
	projectID string
	commands  chan func()
	sessions  map[string]socketConn
	log       zerolog.Logger
}

func newCoordinator(projectID string, log zerolog.Logger) *Coordinator {
	c := &Coordinator{
		projectID: projectID,
		commands:  make(chan func(), 64),
		sessions:  map[string]socketConn{},
		log:       log.With().Str("component", "coordinator").Str("project", projectID).Logger(),
	}
	go c.run()
	return c
}

func (c *Coordinator) run() {
	for fn := range c.commands {
		fn()
	}
}

// AcceptSession registers a connection under a fresh opaque id and starts
// its read pump. The session stays registered until its socket errors.
func (c *Coordinator) AcceptSession(conn socketConn) string {
	id := ulid.Make().String()
	c.commands <- func() {
		c.sessions[id] = conn
	}
	go c.readPump(id, conn)
	c.log.Debug().Str("session", id).Msg("session accepted")
	return id
}

// Broadcast serializes the update once and delivers it to every live
// session. Delivery is fire-and-forget: a session whose write fails is
// evicted silently, and the call never reports an error to the write
// request that triggered it.
func (c *Coordinator) Broadcast(update Update) {
	payload, err := json.Marshal(updateEnvelope{Type: update.Type, Updates: []Update{update}})
	if err != nil {
		return
	}
	c.commands <- func() {
		for id, conn := range c.sessions {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.evictLocked(id)
			}
		}
	}
}

// SessionCount reports the number of live sessions.
func (c *Coordinator) SessionCount() int {
	done := make(chan int, 1)
	c.commands <- func() {
		done <- len(c.sessions)
	}
	return <-done
}

// flush waits until every previously enqueued command has run.
func (c *Coordinator) flush() {
	done := make(chan struct{})
	c.commands <- func() { close(done) }
	<-done
}

// evictLocked removes and closes a session. Must run on the actor
// goroutine.
func (c *Coordinator) evictLocked(id string) {
	conn, ok := c.sessions[id]
	if !ok {
		return
	}
	delete(c.sessions, id)
	conn.Close()
	c.log.Debug().Str("session", id).Msg("session evicted")
}

// readPump reads inbound messages for one session: `{type:"ping"}` is
// answered with `{type:"pong"}` on the actor goroutine, everything else is
// relayed to no one at this layer. A read error ends the session.
func (c *Coordinator) readPump(id string, conn socketConn) {
	defer func() {
		c.commands <- func() { c.evictLocked(id) }
	}()
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		var msg struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(data, &msg) != nil {
			continue
		}
		if msg.Type == "ping" {
			c.commands <- func() {
				if sess, ok := c.sessions[id]; ok {
					if err := sess.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong"}`)); err != nil {
						c.evictLocked(id)
					}
				}
			}
		}
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades an HTTP request into a coordinator session.
func (c *Coordinator) ServeWS(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Upgrade") != "websocket" {
		http.Error(w, "Bad Request", 400)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c.AcceptSession(conn)
}

// CoordinatorHub holds one coordinator per project id. Coordinators are
// created on first use and live for the process lifetime; a restart drops
// all sessions and clients reconnect on their own.
type CoordinatorHub struct {
	lock         sync.Mutex
	coordinators map[string]*Coordinator
	log          zerolog.Logger
}

func NewCoordinatorHub(log zerolog.Logger) *CoordinatorHub {
	return &CoordinatorHub{coordinators: map[string]*Coordinator{}, log: log}
}

// Get returns the coordinator for a project, creating it if needed.
func (h *CoordinatorHub) Get(projectID string) *Coordinator {
	h.lock.Lock()
	defer h.lock.Unlock()
	c, ok := h.coordinators[projectID]
	if !ok {
		c = newCoordinator(projectID, h.log)
		h.coordinators[projectID] = c
	}
	return c
}
