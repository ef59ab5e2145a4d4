package exam

import (
	"fmt"
	"strings"

	"dinomed-server/models"
)

// ValidationError rejects a malformed start or submit request. It is never
// retried as-is; the caller must fix the request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// InsufficientPoolError reports that a section asked for more questions than
// the filtered pool holds. It carries everything the caller needs to correct
// the configuration.
type InsufficientPoolError struct {
	Subject   string
	Type      models.QuestionType
	Requested int
	Available int
	Tags      []string
}

func (e *InsufficientPoolError) Error() string {
	msg := fmt.Sprintf("insufficient questions for %s/%s: requested %d, available %d",
		e.Subject, e.Type, e.Requested, e.Available)
	if len(e.Tags) > 0 {
		msg += fmt.Sprintf(" (tags: %s)", strings.Join(e.Tags, ", "))
	}
	return msg
}
