// player/service/errors.go
package service

import (
	"errors"
	"fmt"
)

// Errors returned to the API layer. Match them with errors.Is.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidOutcome        = fmt.Errorf("%w: outcome must be win or loss", ErrInvalidInput)
	ErrInvalidMethod         = fmt.Errorf("%w: method must be vault or card", ErrInvalidInput)
	ErrInvalidTier           = fmt.Errorf("%w: unknown tier", ErrInvalidInput)
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrNoMatchesRemaining    = errors.New("no matches remaining on current pass")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDependencyUnavailable, err)
}
