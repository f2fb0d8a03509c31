package model

import (
	"encoding/json"
	"time"
)

// MatchStatus is the lifecycle status of a match.
type MatchStatus string

const (
	StatusNotStarted MatchStatus = "NOT_STARTED"
	StatusInProgress MatchStatus = "IN_PROGRESS"
	StatusFinished   MatchStatus = "FINISHED"
)

// Valid reports whether s is one of the known statuses.
func (s MatchStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusFinished:
		return true
	}
	return false
}

// Match is a match created through match setup. It carries no score data.
type Match struct {
	ID        string      `json:"id"`
	Sport     string      `json:"sport"`
	PlayerA   string      `json:"player_a"`
	PlayerB   string      `json:"player_b"`
	Status    MatchStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// MatchState is a snapshot of a match's score and progress.
// Score holds the sport-specific sets/games/points document and is never interpreted here.
type MatchState struct {
	MatchID   string          `json:"match_id"`
	Status    MatchStatus     `json:"status"`
	UpdatedAt time.Time       `json:"updated_at"`
	Score     json.RawMessage `json:"score,omitempty"`
}

// InitialState returns the state of a match nobody has scored yet.
func InitialState(matchID string, at time.Time) *MatchState {
	return &MatchState{
		MatchID:   matchID,
		Status:    StatusNotStarted,
		UpdatedAt: at,
	}
}

// StatePatch is a partial state update. Nil fields are left untouched.
type StatePatch struct {
	Status *MatchStatus    `json:"status,omitempty"`
	Score  json.RawMessage `json:"score,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p StatePatch) Empty() bool {
	return p.Status == nil && len(p.Score) == 0
}

// Apply merges the patch into a copy of cur and stamps it with now.
func (p StatePatch) Apply(cur *MatchState, now time.Time) *MatchState {
	next := *cur
	if p.Status != nil {
		next.Status = *p.Status
	}
	if len(p.Score) > 0 {
		next.Score = append(json.RawMessage(nil), p.Score...)
	}
	next.UpdatedAt = now
	return &next
}

// StatusPatch is shorthand for a patch that only changes the status.
func StatusPatch(s MatchStatus) StatePatch {
	return StatePatch{Status: &s}
}
