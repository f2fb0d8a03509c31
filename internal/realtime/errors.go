package realtime

import (
	"errors"
	"fmt"
)

var (
	ErrStateFetch  = errors.New("state fetch failed")
	ErrStateUpdate = errors.New("state update failed")
	ErrNilObserver = errors.New("nil observer")
)

// statusCoder is implemented by source errors that carry a remote status code
// and the message the remote returned with it.
type statusCoder interface {
	StatusCode() int
	StatusMessage() string
}

// FetchError is returned by Subscribe when the immediate state fetch fails.
type FetchError struct {
	MatchID string
	Status  int // remote status code, 0 when the request never got a response
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch state for match %s: status %d: %s", e.MatchID, e.Status, e.Message)
	}
	return fmt.Sprintf("fetch state for match %s: %s", e.MatchID, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrStateFetch }

// UpdateError is returned by PushUpdate when the remote patch fails.
type UpdateError struct {
	MatchID string
	Status  int
	Message string
	Err     error
}

func (e *UpdateError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("update state for match %s: status %d: %s", e.MatchID, e.Status, e.Message)
	}
	return fmt.Sprintf("update state for match %s: %s", e.MatchID, e.Message)
}

func (e *UpdateError) Unwrap() error { return e.Err }

func (e *UpdateError) Is(target error) bool { return target == ErrStateUpdate }

func newFetchError(matchID string, err error) *FetchError {
	status, msg := describe(err)
	return &FetchError{MatchID: matchID, Status: status, Message: msg, Err: err}
}

func newUpdateError(matchID string, err error) *UpdateError {
	status, msg := describe(err)
	return &UpdateError{MatchID: matchID, Status: status, Message: msg, Err: err}
}

func describe(err error) (int, string) {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode(), sc.StatusMessage()
	}
	return 0, err.Error()
}
