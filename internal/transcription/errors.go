package transcription

import (
	"errors"
	"fmt"

	"github.com/yegors/co-scribe/internal/timestamp"
)

// ErrEmptyResponse is returned by remotes whose reply carries no text
var ErrEmptyResponse = errors.New("remote returned an empty response")

// TranscriptionError reports a segment that failed after the retry budget ran out
type TranscriptionError struct {
	StartMs  int64
	Attempts int
	Err      error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription of segment at %s failed after %d attempts: %v",
		timestamp.Format(e.StartMs), e.Attempts, e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}
