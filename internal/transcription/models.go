package transcription

import (
	"fmt"
	"strings"
	"time"
)

// Language selects the transcription and minutes language
type Language string

const (
	// LanguageJapanese is the primary language
	LanguageJapanese Language = "japanese"
	// LanguageEnglish is the secondary language
	LanguageEnglish Language = "english"
)

// Defaults for a transcription run
const (
	DefaultModel             = "gemini-2.0-flash"
	DefaultMaxRetries        = 3
	DefaultMinCharsPerSecond = 1.5
	DefaultBackoffUnit       = time.Second
	DefaultMaxSegmentMinutes = 25
)

// ParseLanguage maps a user-supplied name onto a Language
func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case LanguageJapanese, "":
		return LanguageJapanese, nil
	case LanguageEnglish:
		return LanguageEnglish, nil
	default:
		return "", fmt.Errorf("unsupported language %q (expected %s or %s)", s, LanguageJapanese, LanguageEnglish)
	}
}

// Request is the per-run transcription configuration; immutable during a run
type Request struct {
	Model          string
	Language       Language
	WithTimestamps bool
	MaxRetries     int

	// MinCharsPerSecond is the under-length threshold; shorter results are retried
	MinCharsPerSecond float64
	// BackoffUnit is multiplied by the retry number to get the sleep before it
	BackoffUnit time.Duration
}

// withDefaults fills zero-valued tuning fields
func (r Request) withDefaults() Request {
	if r.Model == "" {
		r.Model = DefaultModel
	}
	if r.Language == "" {
		r.Language = LanguageJapanese
	}
	if r.MinCharsPerSecond <= 0 {
		r.MinCharsPerSecond = DefaultMinCharsPerSecond
	}
	if r.BackoffUnit <= 0 {
		r.BackoffUnit = DefaultBackoffUnit
	}
	return r
}

// Validate checks the request after defaults are applied
func (r Request) Validate() error {
	if r.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0, got %d", r.MaxRetries)
	}
	if _, err := ParseLanguage(string(r.Language)); err != nil {
		return err
	}
	return nil
}

// Phase identifies a step in a run, reported through ProgressEvent
type Phase string

const (
	PhaseSegmenting Phase = "segmenting"
	PhaseEncoding   Phase = "encoding"
	PhaseUploading  Phase = "uploading"
	PhaseGenerating Phase = "generating"
	PhaseRetrying   Phase = "retrying"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
	PhaseMinutes    Phase = "minutes"
)

// ProgressEvent describes one observable step of a run
type ProgressEvent struct {
	Phase   Phase
	Index   int // 1-based segment index, 0 for run-level events
	Total   int
	StartMs int64
	EndMs   int64
	Attempt int
	Chars   int
	Wait    time.Duration
	Err     error
}

// Observer receives progress events. Implementations must be safe for
// concurrent use when segments run in parallel.
type Observer interface {
	OnProgress(ProgressEvent)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(ProgressEvent)

// OnProgress calls f(e)
func (f ObserverFunc) OnProgress(e ProgressEvent) {
	f(e)
}

type nopObserver struct{}

func (nopObserver) OnProgress(ProgressEvent) {}
