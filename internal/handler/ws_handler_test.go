package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/freeeve/courtside/internal/auth"
	"github.com/freeeve/courtside/internal/model"
)

type wsClient struct {
	t       *testing.T
	conn    *websocket.Conn
	pending []WSEvent
}

func dialWS(t *testing.T, srv *httptest.Server, token string) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &wsClient{t: t, conn: conn}
}

// next returns the next event. The write pump may batch several events into
// one frame separated by newlines.
func (c *wsClient) next() WSEvent {
	c.t.Helper()
	for len(c.pending) == 0 {
		c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.t.Fatalf("read: %v", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			var event WSEvent
			if err := json.Unmarshal([]byte(line), &event); err != nil {
				c.t.Fatalf("decode %q: %v", line, err)
			}
			c.pending = append(c.pending, event)
		}
	}
	event := c.pending[0]
	c.pending = c.pending[1:]
	return event
}

func (c *wsClient) send(action, matchID string) {
	c.t.Helper()
	if err := c.conn.WriteJSON(ClientMessage{Action: action, MatchID: matchID}); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

func newWSServer(t *testing.T, s *testStack, mgr *auth.JWTManager) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/ws", NewWSHandler(s.hub, mgr, nil).ServeWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestServeWSRejectsMissingToken(t *testing.T) {
	s := newTestStack(t)
	h := NewWSHandler(s.hub, auth.NewJWTManager("test-secret"), nil)

	rec := httptest.NewRecorder()
	h.ServeWS(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeWS(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ws?token=garbage", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad token, got %d", rec.Code)
	}
}

func TestServeWSSubscribeFlow(t *testing.T) {
	s := newTestStack(t)
	m := s.createMatch(t)
	mgr := auth.NewJWTManager("test-secret")
	token, _ := mgr.GenerateAccessToken("fan-1")
	srv := newWSServer(t, s, mgr)

	c := dialWS(t, srv, token)
	if event := c.next(); event.Type != EventConnected {
		t.Fatalf("expected connected, got %s", event.Type)
	}

	c.send("subscribe", m.ID)
	event := c.next()
	if event.Type != EventMatchState || event.MatchID != m.ID {
		t.Fatalf("expected initial match_state, got %+v", event)
	}

	if _, err := s.rt.PushUpdate(context.Background(), m.ID, model.StatusPatch(model.StatusFinished)); err != nil {
		t.Fatalf("push: %v", err)
	}
	event = c.next()
	data, _ := json.Marshal(event.Data)
	var st model.MatchState
	json.Unmarshal(data, &st)
	if st.Status != model.StatusFinished {
		t.Errorf("expected FINISHED, got %s", st.Status)
	}
}

func TestServeWSErrorEvents(t *testing.T) {
	s := newTestStack(t)
	mgr := auth.NewJWTManager("test-secret")
	token, _ := mgr.GenerateAccessToken("fan-1")
	srv := newWSServer(t, s, mgr)

	c := dialWS(t, srv, token)
	c.next() // connected

	c.send("subscribe", "nope")
	event := c.next()
	if event.Type != EventError || event.MatchID != "nope" {
		t.Errorf("expected error event for unknown match, got %+v", event)
	}

	c.send("dance", "")
	if event := c.next(); event.Type != EventError {
		t.Errorf("expected error event for unknown action, got %+v", event)
	}
}

func TestServeWSDisconnectReleasesMatches(t *testing.T) {
	s := newTestStack(t)
	m := s.createMatch(t)
	mgr := auth.NewJWTManager("test-secret")
	token, _ := mgr.GenerateAccessToken("fan-1")
	srv := newWSServer(t, s, mgr)

	c := dialWS(t, srv, token)
	c.next()
	c.send("subscribe", m.ID)
	c.next()

	c.conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.rt.MatchCount() != 0 || s.hub.ConnectionCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected cleanup after disconnect, got %d matches, %d connections", s.rt.MatchCount(), s.hub.ConnectionCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
