package migrate

import (
	"errors"
	"fmt"
)

var (
	// ErrDowngradeNotSupported refuses a downgrade through a one-way episode.
	ErrDowngradeNotSupported = errors.New("Downgrade is not supported") //nolint:staticcheck // operator-facing message

	ErrUnknownRevision = errors.New("migrate: unknown revision")
	ErrNoPath          = errors.New("migrate: no path between revisions")
	ErrInvalidGraph    = errors.New("migrate: invalid episode graph")
	ErrRegistryEmpty   = errors.New("migrate: no episodes registered")
	ErrNoPool          = errors.New("migrate: op has no *bun.DB to build repositories on")
)

// EpisodeError reports the step at which execution halted.
type EpisodeError struct {
	Revision  string
	Direction string
	Err       error
}

func (e *EpisodeError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Direction, e.Revision, e.Err)
}

func (e *EpisodeError) Unwrap() error {
	return e.Err
}
