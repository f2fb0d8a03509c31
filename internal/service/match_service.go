package service

import (
	"context"
	"errors"
	"strings"

	"github.com/freeeve/courtside/internal/model"
	"github.com/freeeve/courtside/internal/repository"
)

var ErrInvalidMatch = errors.New("sport and both players are required")

// MatchService handles match setup and the dashboard listing.
type MatchService struct {
	matchRepo repository.MatchRepository
}

// NewMatchService creates a MatchService.
func NewMatchService(matchRepo repository.MatchRepository) *MatchService {
	return &MatchService{matchRepo: matchRepo}
}

// CreateMatch registers a new match in NOT_STARTED status.
func (s *MatchService) CreateMatch(ctx context.Context, sport, playerA, playerB string) (*model.Match, error) {
	sport = strings.ToLower(strings.TrimSpace(sport))
	playerA = strings.TrimSpace(playerA)
	playerB = strings.TrimSpace(playerB)
	if sport == "" || playerA == "" || playerB == "" {
		return nil, ErrInvalidMatch
	}
	return s.matchRepo.Create(ctx, sport, playerA, playerB)
}

// GetMatch returns a match by ID.
func (s *MatchService) GetMatch(ctx context.Context, id string) (*model.Match, error) {
	m, err := s.matchRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMatchNotFound
	}
	return m, nil
}

// ListMatches returns matches, optionally filtered by status.
func (s *MatchService) ListMatches(ctx context.Context, status model.MatchStatus) ([]model.Match, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.matchRepo.List(ctx, status)
}
