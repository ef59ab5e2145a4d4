package bank

import (
	"context"
	"errors"

	"dinomed-server/models"
)

// ErrQuestionNotFound is returned by FetchByID for an unknown question id.
var ErrQuestionNotFound = errors.New("question not found")

// Reader is read-only access to the question bank. The bank is owned by the
// authoring collaborator; this engine only fetches. Implementations must
// surface read failures as errors — an unreachable bank is never reported as
// an empty one.
type Reader interface {
	FetchAll(ctx context.Context) ([]models.Question, error)
	FetchByID(ctx context.Context, id string) (models.Question, error)
}
