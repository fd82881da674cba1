package quest

import "errors"

var (
	// ErrConfig marks a malformed project document. Fatal for the
	// project being loaded, never for its siblings.
	ErrConfig = errors.New("invalid project document")

	// ErrValidatorUnavailable is returned when a custom quest names a
	// validator that is not registered or that failed to run. Callers
	// treat the quest as not completed.
	ErrValidatorUnavailable = errors.New("validator unavailable")

	// ErrTransport wraps query-execution failures. The affected quest
	// check is aborted; sibling checks keep going.
	ErrTransport = errors.New("query transport failed")

	// ErrInsufficientBalance is surfaced to the caller when a redemption
	// exceeds the available points.
	ErrInsufficientBalance = errors.New("insufficient points balance")

	// ErrQuestNotFound marks a check against a quest id that is not part
	// of the loaded project.
	ErrQuestNotFound = errors.New("quest not found")
)
