package realtime

import (
	"context"

	"github.com/freeeve/courtside/internal/model"
)

// Observer receives match state deliveries. Observers are keyed by identity,
// so implementations must be comparable; use pointer receivers.
type Observer interface {
	OnState(state *model.MatchState)
}

// FuncObserver adapts a plain function to Observer. Each call to NewObserver
// yields a distinct identity, even for the same function.
type FuncObserver struct {
	fn func(*model.MatchState)
}

// NewObserver wraps fn as an Observer.
func NewObserver(fn func(*model.MatchState)) *FuncObserver {
	return &FuncObserver{fn: fn}
}

// OnState calls the wrapped function.
func (o *FuncObserver) OnState(state *model.MatchState) {
	o.fn(state)
}

// StateSource is the remote store of match state.
type StateSource interface {
	FetchState(ctx context.Context, matchID string) (*model.MatchState, error)
	PatchState(ctx context.Context, matchID string, patch model.StatePatch) (*model.MatchState, error)
}
