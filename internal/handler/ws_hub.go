package handler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/courtside/internal/model"
	"github.com/freeeve/courtside/internal/realtime"
)

// Event types sent over WebSocket.
const (
	EventConnected  = "connected"
	EventMatchState = "match_state"
	EventError      = "error"
)

var errNotRegistered = errors.New("connection not registered")

// WSEvent is the envelope for all WebSocket messages.
type WSEvent struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id"`
	Data    any    `json:"data"`
}

// ClientMessage is the envelope for messages sent from the client.
type ClientMessage struct {
	Action  string `json:"action"` // "subscribe" or "unsubscribe"
	MatchID string `json:"match_id"`
}

// WSConn wraps a WebSocket connection with its user and subscriptions.
type WSConn struct {
	conn   *websocket.Conn
	userID string

	mu     sync.Mutex // guards send against close
	send   chan []byte
	closed bool

	subMu sync.Mutex // serializes subscription changes for this connection
	subs  map[string]*wsObserver
}

func newWSConn(conn *websocket.Conn, userID string, bufSize int) *WSConn {
	return &WSConn{
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, bufSize),
		subs:   make(map[string]*wsObserver),
	}
}

// enqueue queues data for the write pump. It never blocks; a full buffer or a
// closed connection drops the message.
func (c *WSConn) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		log.Warn().Str("userId", c.userID).Msg("Dropping WebSocket message, buffer full")
		return false
	}
}

func (c *WSConn) sendEvent(event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("matchId", event.MatchID).Msg("Failed to marshal WebSocket event")
		return
	}
	c.enqueue(data)
}

func (c *WSConn) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// wsObserver relays one match's states to one connection. Each
// (connection, match) pair has its own observer, so it counts as one watcher.
type wsObserver struct {
	c       *WSConn
	matchID string
}

func (o *wsObserver) OnState(state *model.MatchState) {
	o.c.sendEvent(WSEvent{Type: EventMatchState, MatchID: o.matchID, Data: state})
}

// Hub manages WebSocket connections and their match subscriptions, which
// are registered with the realtime service.
type Hub struct {
	rt *realtime.Service

	mu          sync.RWMutex
	connections map[*WSConn]bool
}

// NewHub creates a new Hub.
func NewHub(rt *realtime.Service) *Hub {
	return &Hub{
		rt:          rt,
		connections: make(map[*WSConn]bool),
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
}

// Unregister removes a connection, drops all of its match subscriptions and
// closes its send channel. It is safe to call more than once.
func (h *Hub) Unregister(c *WSConn) {
	h.mu.Lock()
	delete(h.connections, c)
	h.mu.Unlock()

	c.subMu.Lock()
	for matchID, obs := range c.subs {
		h.rt.Unsubscribe(matchID, obs)
	}
	clear(c.subs)
	c.subMu.Unlock()

	c.closeSend()
}

// Subscribe starts relaying a match's states to c. The current state is sent
// right away; a failed fetch is returned but the subscription stays in place
// so later polls still reach the connection.
func (h *Hub) Subscribe(ctx context.Context, c *WSConn, matchID string) error {
	if matchID == "" {
		return nil
	}
	c.subMu.Lock()
	defer c.subMu.Unlock()

	h.mu.RLock()
	registered := h.connections[c]
	h.mu.RUnlock()
	if !registered {
		return errNotRegistered
	}
	if _, ok := c.subs[matchID]; ok {
		return nil
	}
	obs := &wsObserver{c: c, matchID: matchID}
	c.subs[matchID] = obs
	return h.rt.Subscribe(ctx, matchID, obs)
}

// Unsubscribe stops relaying a match to c.
func (h *Hub) Unsubscribe(c *WSConn, matchID string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	obs, ok := c.subs[matchID]
	if !ok {
		return
	}
	delete(c.subs, matchID)
	h.rt.Unsubscribe(matchID, obs)
}

// CloseAll unregisters every connection. Write pumps see the closed send
// channel and send a close frame.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*WSConn, 0, len(h.connections))
	for c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		h.Unregister(c)
	}
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// MatchSubscriberCount returns the number of observers registered for a match.
func (h *Hub) MatchSubscriberCount(matchID string) int {
	return h.rt.ObserverCount(matchID)
}
