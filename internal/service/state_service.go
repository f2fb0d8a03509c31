package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/courtside/internal/model"
	"github.com/freeeve/courtside/internal/repository"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	ErrEmptyPatch    = errors.New("patch changes nothing")
	ErrInvalidStatus = errors.New("invalid match status")
)

// StateService is the source of truth for live match state. Redis holds the
// current state; Postgres keeps every snapshot and survives cache loss.
// It implements realtime.StateSource.
type StateService struct {
	matchRepo repository.MatchRepository
	cache     repository.StateCache
	now       func() time.Time

	// matchLocks serializes patches per match so concurrent writers never
	// merge into the same base state.
	matchLocks sync.Map
}

// NewStateService creates a StateService.
func NewStateService(matchRepo repository.MatchRepository, cache repository.StateCache) *StateService {
	return &StateService{
		matchRepo: matchRepo,
		cache:     cache,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// FetchState returns the current state of a match.
func (s *StateService) FetchState(ctx context.Context, matchID string) (*model.MatchState, error) {
	st, err := s.cache.GetMatchState(ctx, matchID)
	if err != nil {
		// Cache trouble is not fatal, Postgres has the history.
		log.Warn().Err(err).Str("matchId", matchID).Msg("Failed to read cached match state")
	}
	if st != nil {
		return st, nil
	}

	st, err = s.loadState(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetMatchState(ctx, st); err != nil {
		log.Warn().Err(err).Str("matchId", matchID).Msg("Failed to repopulate match state cache")
	}
	return st, nil
}

// PatchState merges patch into the current state of a match and returns the
// resulting full state.
func (s *StateService) PatchState(ctx context.Context, matchID string, patch model.StatePatch) (*model.MatchState, error) {
	if patch.Empty() {
		return nil, ErrEmptyPatch
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *patch.Status)
	}

	mu := s.matchLock(matchID)
	mu.Lock()
	defer mu.Unlock()

	cur, err := s.FetchState(ctx, matchID)
	if err != nil {
		return nil, err
	}
	next := patch.Apply(cur, s.now())

	if err := s.matchRepo.AppendState(ctx, next); err != nil {
		return nil, err
	}
	if next.Status != cur.Status {
		if err := s.matchRepo.UpdateStatus(ctx, matchID, next.Status); err != nil {
			return nil, err
		}
		log.Info().Str("matchId", matchID).Str("from", string(cur.Status)).Str("to", string(next.Status)).Msg("Match status changed")
	}
	if err := s.cache.SetMatchState(ctx, next); err != nil {
		// Drop the stale entry so the next read falls through to Postgres.
		if delErr := s.cache.DeleteMatchState(ctx, matchID); delErr != nil {
			return nil, fmt.Errorf("set match state: %w", err)
		}
		log.Warn().Err(err).Str("matchId", matchID).Msg("Failed to cache match state")
	}
	return next, nil
}

// loadState rebuilds a match's state from Postgres.
func (s *StateService) loadState(ctx context.Context, matchID string) (*model.MatchState, error) {
	st, err := s.matchRepo.LatestState(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if st != nil {
		return st, nil
	}

	m, err := s.matchRepo.FindByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMatchNotFound
	}
	st = model.InitialState(m.ID, m.CreatedAt)
	st.Status = m.Status
	return st, nil
}

// matchLock returns the mutex for a given match ID.
func (s *StateService) matchLock(matchID string) *sync.Mutex {
	v, _ := s.matchLocks.LoadOrStore(matchID, &sync.Mutex{})
	return v.(*sync.Mutex)
}
