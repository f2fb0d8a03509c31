package handler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/freeeve/courtside/internal/model"
	"github.com/freeeve/courtside/internal/realtime"
)

func newTestConn(userID string) *WSConn {
	return newWSConn(nil, userID, 256) // no real connection for hub tests
}

func nextEvent(t *testing.T, c *WSConn) WSEvent {
	t.Helper()
	select {
	case msg := <-c.send:
		var event WSEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return WSEvent{}
	}
}

func expectNoEvent(t *testing.T, c *WSConn) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Errorf("unexpected event: %s", msg)
	default:
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	s := newTestStack(t)
	c := newTestConn("user-1")

	s.hub.Register(c)
	if s.hub.ConnectionCount() != 1 {
		t.Errorf("expected 1 connection, got %d", s.hub.ConnectionCount())
	}

	s.hub.Unregister(c)
	if s.hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections, got %d", s.hub.ConnectionCount())
	}
	s.hub.Unregister(c) // second call is a no-op
}

func TestHubSubscribeSendsCurrentState(t *testing.T) {
	s := newTestStack(t)
	m := s.createMatch(t)
	c := newTestConn("user-1")
	s.hub.Register(c)
	defer s.hub.Unregister(c)

	if err := s.hub.Subscribe(context.Background(), c, m.ID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	event := nextEvent(t, c)
	if event.Type != EventMatchState || event.MatchID != m.ID {
		t.Errorf("unexpected event: %+v", event)
	}
	if s.hub.MatchSubscriberCount(m.ID) != 1 {
		t.Errorf("expected 1 subscriber, got %d", s.hub.MatchSubscriberCount(m.ID))
	}
	if !s.rt.Polling(m.ID) {
		t.Error("expected the match to be polled while subscribed")
	}
}

func TestHubSubscribeTwiceIsOneWatcher(t *testing.T) {
	s := newTestStack(t)
	m := s.createMatch(t)
	c := newTestConn("user-1")
	s.hub.Register(c)
	defer s.hub.Unregister(c)

	s.hub.Subscribe(context.Background(), c, m.ID)
	s.hub.Subscribe(context.Background(), c, m.ID)

	if w := s.rt.Watchers(m.ID); w != 1 {
		t.Errorf("expected 1 watcher, got %d", w)
	}

	s.hub.Unsubscribe(c, m.ID)
	if s.rt.Polling(m.ID) {
		t.Error("polling should stop after the only subscriber leaves")
	}
}

func TestHubBroadcastOnPush(t *testing.T) {
	s := newTestStack(t)
	m := s.createMatch(t)
	c1 := newTestConn("user-1")
	c2 := newTestConn("user-2")
	c3 := newTestConn("user-3") // not subscribed

	for _, c := range []*WSConn{c1, c2, c3} {
		s.hub.Register(c)
		defer s.hub.Unregister(c)
	}
	s.hub.Subscribe(context.Background(), c1, m.ID)
	s.hub.Subscribe(context.Background(), c2, m.ID)
	nextEvent(t, c1)
	nextEvent(t, c2)

	if _, err := s.rt.PushUpdate(context.Background(), m.ID, model.StatusPatch(model.StatusFinished)); err != nil {
		t.Fatalf("push: %v", err)
	}

	for _, c := range []*WSConn{c1, c2} {
		event := nextEvent(t, c)
		data, _ := json.Marshal(event.Data)
		var st model.MatchState
		json.Unmarshal(data, &st)
		if st.Status != model.StatusFinished {
			t.Errorf("%s: expected FINISHED, got %s", c.userID, st.Status)
		}
	}
	expectNoEvent(t, c3)
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	s := newTestStack(t)
	m := s.createMatch(t)
	c1 := newTestConn("user-1")
	c2 := newTestConn("user-2")
	s.hub.Register(c1)
	s.hub.Register(c2)
	defer s.hub.Unregister(c1)
	defer s.hub.Unregister(c2)

	s.hub.Subscribe(context.Background(), c1, m.ID)
	s.hub.Subscribe(context.Background(), c2, m.ID)
	nextEvent(t, c1)
	nextEvent(t, c2)

	s.hub.Unsubscribe(c1, m.ID)
	s.rt.PushUpdate(context.Background(), m.ID, model.StatusPatch(model.StatusInProgress))

	expectNoEvent(t, c1)
	if event := nextEvent(t, c2); event.Type != EventMatchState {
		t.Errorf("expected match_state, got %s", event.Type)
	}
}

func TestHubUnregisterCleansUpSubscriptions(t *testing.T) {
	s := newTestStack(t)
	m1 := s.createMatch(t)
	m2 := s.createMatch(t)
	c := newTestConn("user-1")
	s.hub.Register(c)
	s.hub.Subscribe(context.Background(), c, m1.ID)
	s.hub.Subscribe(context.Background(), c, m2.ID)

	s.hub.Unregister(c)

	if s.rt.MatchCount() != 0 {
		t.Errorf("expected no tracked matches after unregister, got %d", s.rt.MatchCount())
	}

	// Pushes after the connection is gone must not panic on the closed channel.
	if _, err := s.rt.PushUpdate(context.Background(), m1.ID, model.StatusPatch(model.StatusFinished)); err != nil {
		t.Fatalf("push: %v", err)
	}
}

func TestHubEnqueueAfterCloseIsDropped(t *testing.T) {
	c := newTestConn("user-1")
	c.closeSend()
	if c.enqueue([]byte("late")) {
		t.Error("enqueue on a closed connection should report a drop")
	}
}

func TestHubSubscribeUnknownMatchKeepsSubscription(t *testing.T) {
	s := newTestStack(t)
	c := newTestConn("user-1")
	s.hub.Register(c)
	defer s.hub.Unregister(c)

	err := s.hub.Subscribe(context.Background(), c, "nope")
	var fe *realtime.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if s.rt.Watchers("nope") != 1 {
		t.Errorf("subscription should survive a failed fetch")
	}
	expectNoEvent(t, c)
}

func TestHubSubscribeUnregisteredConnection(t *testing.T) {
	s := newTestStack(t)
	c := newTestConn("user-1")

	if err := s.hub.Subscribe(context.Background(), c, "match-1"); !errors.Is(err, errNotRegistered) {
		t.Errorf("expected errNotRegistered, got %v", err)
	}
	if s.rt.MatchCount() != 0 {
		t.Errorf("expected no tracked matches, got %d", s.rt.MatchCount())
	}
}

func TestHubCloseAll(t *testing.T) {
	s := newTestStack(t)
	m := s.createMatch(t)
	c1 := newTestConn("user-1")
	c2 := newTestConn("user-2")
	s.hub.Register(c1)
	s.hub.Register(c2)
	s.hub.Subscribe(context.Background(), c1, m.ID)

	s.hub.CloseAll()

	if s.hub.ConnectionCount() != 0 || s.rt.MatchCount() != 0 {
		t.Errorf("expected empty hub, got %d connections and %d matches", s.hub.ConnectionCount(), s.rt.MatchCount())
	}
}

func TestHubConcurrentAccess(t *testing.T) {
	s := newTestStack(t)
	m := s.createMatch(t)
	var wg sync.WaitGroup

	// Concurrently register, subscribe, push, unregister
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newTestConn("user")
			s.hub.Register(c)
			s.hub.Subscribe(context.Background(), c, m.ID)
			s.rt.PushUpdate(context.Background(), m.ID, model.StatusPatch(model.StatusInProgress))
			s.hub.Unsubscribe(c, m.ID)
			s.hub.Unregister(c)
		}()
	}

	wg.Wait()
	if s.hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections after concurrent test, got %d", s.hub.ConnectionCount())
	}
	if s.rt.MatchCount() != 0 {
		t.Errorf("expected 0 tracked matches after concurrent test, got %d", s.rt.MatchCount())
	}
}

func TestClientMessageDecoding(t *testing.T) {
	var msg ClientMessage
	if err := json.Unmarshal([]byte(`{"action":"subscribe","match_id":"m-1"}`), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Action != "subscribe" || msg.MatchID != "m-1" {
		t.Errorf("unexpected message: %+v", msg)
	}
}
