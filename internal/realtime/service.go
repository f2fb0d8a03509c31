// Package realtime keeps observers of live matches up to date.
//
// For every match with at least one open subscription the Service runs a
// single polling loop that samples the remote state and fans it out to every
// observer currently registered for that match. Writes pushed through the
// Service are fanned out as soon as the remote acknowledges them.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/courtside/internal/model"
)

// DefaultPollInterval is used when NewService is given a non-positive interval.
const DefaultPollInterval = 2 * time.Second

// entry is the registry record for one match.
type entry struct {
	observers map[Observer]struct{}
	watchers  int
	poll      *poller
}

// poller is the handle of one match's polling loop.
type poller struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Service distributes match state to observers. It is safe for concurrent use
// and meant to be shared by every consumer in the process.
type Service struct {
	source   StateSource
	interval time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	loops   sync.WaitGroup
}

// NewService creates a Service that samples source every interval.
func NewService(source StateSource, interval time.Duration, logger zerolog.Logger) *Service {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Service{
		source:   source,
		interval: interval,
		log:      logger.With().Str("component", "realtime").Logger(),
		entries:  make(map[string]*entry),
	}
}

// Subscribe registers obs for matchID and delivers the current state to obs
// alone. The shared polling loop for the match is started if it is not
// running yet. An empty matchID is a no-op.
//
// If the immediate fetch fails a *FetchError is returned; the subscription
// itself stays in place and must be released with Unsubscribe.
func (s *Service) Subscribe(ctx context.Context, matchID string, obs Observer) error {
	if matchID == "" {
		return nil
	}
	if obs == nil {
		return ErrNilObserver
	}

	s.mu.Lock()
	e, ok := s.entries[matchID]
	if !ok {
		e = &entry{observers: make(map[Observer]struct{})}
		s.entries[matchID] = e
	}
	e.watchers++
	e.observers[obs] = struct{}{}
	if e.poll == nil {
		e.poll = s.startPollLocked(matchID)
	}
	s.mu.Unlock()

	state, err := s.source.FetchState(ctx, matchID)
	if err != nil {
		return newFetchError(matchID, err)
	}

	// The observer may have been removed while the fetch was in flight.
	if s.registered(matchID, obs) {
		obs.OnState(state)
	}
	return nil
}

// Unsubscribe releases one subscription of obs for matchID. A nil obs removes
// every observer of the match regardless of how many subscriptions are open.
// When no watcher or no observer is left, the polling loop is stopped and the
// match is dropped from the registry.
func (s *Service) Unsubscribe(matchID string, obs Observer) {
	if matchID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[matchID]
	if !ok {
		return
	}
	if obs == nil {
		clear(e.observers)
		e.watchers = 0
	} else {
		if e.watchers > 0 {
			e.watchers--
		}
		delete(e.observers, obs)
	}

	if e.watchers == 0 || len(e.observers) == 0 {
		if e.poll != nil {
			e.poll.cancel()
			e.poll = nil
		}
		delete(s.entries, matchID)
	}
}

// UnsubscribeAll removes every observer of matchID.
func (s *Service) UnsubscribeAll(matchID string) {
	s.Unsubscribe(matchID, nil)
}

// PushUpdate sends patch to the remote store and fans the resulting state out
// to every observer of matchID. No subscription is required. An empty matchID
// is a no-op and returns a nil state.
func (s *Service) PushUpdate(ctx context.Context, matchID string, patch model.StatePatch) (*model.MatchState, error) {
	if matchID == "" {
		return nil, nil
	}

	state, err := s.source.PatchState(ctx, matchID, patch)
	if err != nil {
		return nil, newUpdateError(matchID, err)
	}

	s.fanOut(matchID, state, nil)
	return state, nil
}

// Close stops every polling loop and waits for them to exit. Observers are
// dropped; the Service must not be used afterwards.
func (s *Service) Close() {
	s.mu.Lock()
	for id, e := range s.entries {
		if e.poll != nil {
			e.poll.cancel()
		}
		delete(s.entries, id)
	}
	s.mu.Unlock()

	s.loops.Wait()
}

// Watchers returns the number of open subscriptions for matchID.
func (s *Service) Watchers(matchID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[matchID]; ok {
		return e.watchers
	}
	return 0
}

// ObserverCount returns the number of distinct observers of matchID.
func (s *Service) ObserverCount(matchID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[matchID]; ok {
		return len(e.observers)
	}
	return 0
}

// Polling reports whether a polling loop is running for matchID.
func (s *Service) Polling(matchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[matchID]
	return ok && e.poll != nil
}

// MatchCount returns the number of matches with a registry entry.
func (s *Service) MatchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Service) registered(matchID string, obs Observer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[matchID]
	if !ok {
		return false
	}
	_, ok = e.observers[obs]
	return ok
}

// startPollLocked launches the polling loop for matchID. Caller holds s.mu.
func (s *Service) startPollLocked(matchID string) *poller {
	ctx, cancel := context.WithCancel(context.Background())
	p := &poller{cancel: cancel, done: make(chan struct{})}

	s.loops.Add(1)
	go func() {
		defer s.loops.Done()
		defer close(p.done)
		s.pollLoop(ctx, matchID, p)
	}()

	s.log.Debug().Str("matchId", matchID).Dur("interval", s.interval).Msg("Polling started")
	return p
}

func (s *Service) pollLoop(ctx context.Context, matchID string, p *poller) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Debug().Str("matchId", matchID).Msg("Polling stopped")
			return
		case <-ticker.C:
			s.pollOnce(ctx, matchID, p)
		}
	}
}

func (s *Service) pollOnce(ctx context.Context, matchID string, p *poller) {
	state, err := s.source.FetchState(ctx, matchID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Warn().Err(err).Str("matchId", matchID).Msg("Periodic state fetch failed")
		return
	}
	s.fanOut(matchID, state, p)
}

// fanOut delivers state to the observers registered for matchID at this
// moment. When from is non-nil the delivery is dropped unless from is still
// the match's active poller, so a cancelled loop never delivers.
func (s *Service) fanOut(matchID string, state *model.MatchState, from *poller) {
	s.mu.Lock()
	e, ok := s.entries[matchID]
	if !ok || (from != nil && e.poll != from) {
		s.mu.Unlock()
		return
	}
	targets := make([]Observer, 0, len(e.observers))
	for obs := range e.observers {
		targets = append(targets, obs)
	}
	s.mu.Unlock()

	for _, obs := range targets {
		obs.OnState(state)
	}
}
