package repository

import (
	"context"

	"github.com/freeeve/courtside/internal/model"
)

// MatchRepository defines match setup and state history operations (Postgres).
type MatchRepository interface {
	Create(ctx context.Context, sport, playerA, playerB string) (*model.Match, error)
	FindByID(ctx context.Context, id string) (*model.Match, error)
	List(ctx context.Context, status model.MatchStatus) ([]model.Match, error)
	UpdateStatus(ctx context.Context, id string, status model.MatchStatus) error
	AppendState(ctx context.Context, state *model.MatchState) error
	LatestState(ctx context.Context, matchID string) (*model.MatchState, error)
}

// StateCache defines live match state operations (Redis).
type StateCache interface {
	SetMatchState(ctx context.Context, state *model.MatchState) error
	GetMatchState(ctx context.Context, matchID string) (*model.MatchState, error)
	DeleteMatchState(ctx context.Context, matchID string) error
}
