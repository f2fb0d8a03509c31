package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/freeeve/courtside/internal/model"
)

// MatchRepo handles match and match state history database operations.
type MatchRepo struct {
	db *sql.DB
}

// NewMatchRepo creates a MatchRepo.
func NewMatchRepo(db *sql.DB) *MatchRepo {
	return &MatchRepo{db: db}
}

// Create inserts a new match in NOT_STARTED status.
func (r *MatchRepo) Create(ctx context.Context, sport, playerA, playerB string) (*model.Match, error) {
	var m model.Match
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO matches (id, sport, player_a, player_b, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, sport, player_a, player_b, status, created_at, updated_at`,
		uuid.NewString(), sport, playerA, playerB, model.StatusNotStarted,
	).Scan(&m.ID, &m.Sport, &m.PlayerA, &m.PlayerB, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	return &m, nil
}

// FindByID returns a match by ID, or nil if it does not exist.
func (r *MatchRepo) FindByID(ctx context.Context, id string) (*model.Match, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	var m model.Match
	err := r.db.QueryRowContext(ctx,
		`SELECT id, sport, player_a, player_b, status, created_at, updated_at
		 FROM matches WHERE id = $1`, id,
	).Scan(&m.ID, &m.Sport, &m.PlayerA, &m.PlayerB, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find match: %w", err)
	}
	return &m, nil
}

// List returns matches newest first. An empty status returns every match.
func (r *MatchRepo) List(ctx context.Context, status model.MatchStatus) ([]model.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, sport, player_a, player_b, status, created_at, updated_at
		 FROM matches WHERE $1 = '' OR status = $1
		 ORDER BY created_at DESC LIMIT 200`, string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		var m model.Match
		if err := rows.Scan(&m.ID, &m.Sport, &m.PlayerA, &m.PlayerB, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// UpdateStatus sets the status column of a match.
func (r *MatchRepo) UpdateStatus(ctx context.Context, id string, status model.MatchStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE matches SET status = $2, updated_at = now() WHERE id = $1`, id, status,
	)
	if err != nil {
		return fmt.Errorf("update match status: %w", err)
	}
	return nil
}

// AppendState records a state snapshot in the match history.
func (r *MatchRepo) AppendState(ctx context.Context, state *model.MatchState) error {
	score := state.Score
	if len(score) == 0 {
		score = json.RawMessage("null")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO match_states (match_id, status, score, updated_at) VALUES ($1, $2, $3, $4)`,
		state.MatchID, state.Status, []byte(score), state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("append match state: %w", err)
	}
	return nil
}

// LatestState returns the most recent snapshot for a match, or nil if none was recorded.
func (r *MatchRepo) LatestState(ctx context.Context, matchID string) (*model.MatchState, error) {
	if _, err := uuid.Parse(matchID); err != nil {
		return nil, nil
	}
	var st model.MatchState
	var score []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT match_id, status, score, updated_at FROM match_states
		 WHERE match_id = $1 ORDER BY id DESC LIMIT 1`, matchID,
	).Scan(&st.MatchID, &st.Status, &score, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest match state: %w", err)
	}
	if string(score) != "null" {
		st.Score = json.RawMessage(score)
	}
	return &st, nil
}
