package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/freeeve/courtside/internal/model"
)

func stateKey(matchID string) string { return "match:" + matchID + ":state" }

// SetMatchState stores the live state of a match.
func (c *Client) SetMatchState(ctx context.Context, state *model.MatchState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal match state: %w", err)
	}
	return c.rdb.Set(ctx, stateKey(state.MatchID), data, c.ttl).Err()
}

// GetMatchState retrieves the live state of a match, or nil if it is not cached.
func (c *Client) GetMatchState(ctx context.Context, matchID string) (*model.MatchState, error) {
	data, err := c.rdb.Get(ctx, stateKey(matchID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get match state: %w", err)
	}
	var st model.MatchState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal match state: %w", err)
	}
	return &st, nil
}

// DeleteMatchState removes the cached state of a match.
func (c *Client) DeleteMatchState(ctx context.Context, matchID string) error {
	return c.rdb.Del(ctx, stateKey(matchID)).Err()
}
