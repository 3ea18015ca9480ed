package tournament

import (
	"errors"
	"fmt"

	"github.com/jensholdgaard/swiss-tournament/internal/swiss"
)

// Errors returned by Manager operations.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidPlayer  = errors.New("player is not registered in this tournament")
	ErrSamePlayer     = errors.New("winner and loser are the same player")
	ErrEmptyName      = errors.New("name must not be empty")
	ErrOddPlayerCount = swiss.ErrOddPlayerCount
)

// PersistenceError reports a failed storage operation. The underlying error
// is kept unchanged and can be inspected with errors.Is / errors.As.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
