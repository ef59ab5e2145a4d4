package store

import (
	"context"
	"errors"

	"dinomed-server/models"
)

// ErrNotFound is returned when a session id is unknown, evicted, or was lost
// across a restart of a non-durable backend.
var ErrNotFound = errors.New("session not found")

// Store is the keyed ephemeral session store. Implementations must tolerate
// concurrent access across sessions and make Finish atomic per session:
// exactly one caller wins the finished-flag check-and-set, everyone else gets
// the cached result back.
type Store interface {
	Put(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	// Finish marks the session finished and stores answers and result. When
	// the session was already finished it returns the previously stored
	// result and won=false; the new payload is discarded.
	Finish(ctx context.Context, id string, answers map[string]string, result *models.SubmissionResult) (stored *models.SubmissionResult, won bool, err error)
	// Sweep evicts sessions past the backend's configured TTL and returns
	// how many were removed. A zero TTL disables eviction.
	Sweep(ctx context.Context) (int, error)
	RecordRun(ctx context.Context, run models.Run) error
	RunsByEmail(ctx context.Context, email string) ([]models.Run, error)
	Close() error
}
