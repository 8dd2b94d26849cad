package replace

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

var (
	// ErrInvalidPattern is returned before any remote call when the search pattern cannot be used
	ErrInvalidPattern = errors.Base("invalid pattern")
	// ErrSchemaFetch is returned when the field listing fails
	ErrSchemaFetch = errors.Base("schema fetch failed")
	// ErrRecordFetch is returned when a records page fails
	ErrRecordFetch = errors.Base("record fetch failed")
	// ErrNoTextFields means the table has nothing to search. The engine turns it into an empty result.
	ErrNoTextFields = errors.Base("no text fields")
	// ErrBatchWrite classifies a failed batch_update call
	ErrBatchWrite = errors.Base("batch write failed")
)

// newFault prefixes the message and cause with one of the sentinels above.
// errors.Is matches the sentinel and the cause, and the stack trace of the
// cause is kept.
func newFault(kind, cause error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if cause == nil {
		return errors.Prefix(errors.New(msg), kind)
	}
	return errors.Prefix(errors.Errorf("%s: %w", msg, cause), kind)
}
