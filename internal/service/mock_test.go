package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/freeeve/courtside/internal/model"
)

type mockMatchRepo struct {
	mu      sync.Mutex
	matches map[string]*model.Match
	history map[string][]model.MatchState
	failOn  string // method name that should return an error
}

func newMockMatchRepo() *mockMatchRepo {
	return &mockMatchRepo{
		matches: make(map[string]*model.Match),
		history: make(map[string][]model.MatchState),
	}
}

func (m *mockMatchRepo) fail(method string) error {
	if m.failOn == method {
		return errors.New(method + " failed")
	}
	return nil
}

func (m *mockMatchRepo) Create(_ context.Context, sport, playerA, playerB string) (*model.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Create"); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	match := &model.Match{
		ID:        fmt.Sprintf("match-%d", len(m.matches)+1),
		Sport:     sport,
		PlayerA:   playerA,
		PlayerB:   playerB,
		Status:    model.StatusNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.matches[match.ID] = match
	return match, nil
}

func (m *mockMatchRepo) FindByID(_ context.Context, id string) (*model.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindByID"); err != nil {
		return nil, err
	}
	match, ok := m.matches[id]
	if !ok {
		return nil, nil
	}
	cp := *match
	return &cp, nil
}

func (m *mockMatchRepo) List(_ context.Context, status model.MatchStatus) ([]model.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Match
	for _, match := range m.matches {
		if status == "" || match.Status == status {
			result = append(result, *match)
		}
	}
	return result, nil
}

func (m *mockMatchRepo) UpdateStatus(_ context.Context, id string, status model.MatchStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateStatus"); err != nil {
		return err
	}
	if match, ok := m.matches[id]; ok {
		match.Status = status
	}
	return nil
}

func (m *mockMatchRepo) AppendState(_ context.Context, state *model.MatchState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AppendState"); err != nil {
		return err
	}
	m.history[state.MatchID] = append(m.history[state.MatchID], *state)
	return nil
}

func (m *mockMatchRepo) LatestState(_ context.Context, matchID string) (*model.MatchState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.history[matchID]
	if len(h) == 0 {
		return nil, nil
	}
	st := h[len(h)-1]
	return &st, nil
}

type mockCache struct {
	mu      sync.Mutex
	states  map[string]model.MatchState
	failGet bool
	failSet bool
}

func newMockCache() *mockCache {
	return &mockCache{states: make(map[string]model.MatchState)}
}

func (c *mockCache) SetMatchState(_ context.Context, state *model.MatchState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSet {
		return errors.New("redis down")
	}
	c.states[state.MatchID] = *state
	return nil
}

func (c *mockCache) GetMatchState(_ context.Context, matchID string) (*model.MatchState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return nil, errors.New("redis down")
	}
	st, ok := c.states[matchID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (c *mockCache) DeleteMatchState(_ context.Context, matchID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, matchID)
	return nil
}
