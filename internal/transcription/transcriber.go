package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/yegors/co-scribe/internal/audio"
	"github.com/yegors/co-scribe/internal/prompt"
	"github.com/yegors/co-scribe/internal/timestamp"
	"github.com/yegors/co-scribe/pkg/logger"
)

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Transcriber drives a single segment through the remote service with retries
type Transcriber struct {
	remote   Remote
	tempDir  string
	observer Observer
	sleep    SleepFunc
	logger   *logger.Logger
}

// TranscriberOption customises a Transcriber
type TranscriberOption func(*Transcriber)

// WithTempDir sets where re-encoded segment files are written
func WithTempDir(dir string) TranscriberOption {
	return func(t *Transcriber) { t.tempDir = dir }
}

// WithObserver subscribes o to per-attempt progress
func WithObserver(o Observer) TranscriberOption {
	return func(t *Transcriber) {
		if o != nil {
			t.observer = o
		}
	}
}

// WithSleep replaces the backoff sleep
func WithSleep(fn SleepFunc) TranscriberOption {
	return func(t *Transcriber) {
		if fn != nil {
			t.sleep = fn
		}
	}
}

// NewTranscriber creates a segment transcriber backed by remote
func NewTranscriber(remote Remote, log *logger.Logger, opts ...TranscriberOption) *Transcriber {
	t := &Transcriber{
		remote:   remote,
		observer: nopObserver{},
		sleep:    sleepContext,
		logger:   log.Named("transcriber"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeRetryable
	outcomeFatal
)

// attemptOutcome is the typed result of one upload+generate cycle
type attemptOutcome struct {
	kind outcomeKind
	text string
	err  error
}

// Transcribe re-encodes seg, sends it to the remote and returns its text.
// Remote failures are retried up to req.MaxRetries times with linear backoff;
// results shorter than the under-length threshold are retried without backoff
// and the last one is returned once retries run out.
func (t *Transcriber) Transcribe(ctx context.Context, seg audio.Segment, req Request) (string, error) {
	req = req.withDefaults()
	if err := req.Validate(); err != nil {
		return "", err
	}

	log := t.logger.With(
		logger.Int("segment", seg.Index),
		logger.String("start", timestamp.Format(seg.StartMs)))

	instruction, err := prompt.Transcription(string(req.Language), req.WithTimestamps, seg.StartMs)
	if err != nil {
		return "", err
	}

	t.emit(seg, ProgressEvent{Phase: PhaseEncoding})
	artifact, err := audio.EncodeWAV(seg.Buffer, t.tempDir)
	if err != nil {
		return "", fmt.Errorf("failed to encode segment %d: %w", seg.Index, err)
	}
	defer func() {
		if err := os.Remove(artifact); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("Failed to remove temporary segment file", logger.String("path", artifact), logger.Error(err))
		}
	}()

	expectedMinChars := float64(seg.DurationMs()) / 1000 * req.MinCharsPerSecond
	maxAttempts := req.MaxRetries + 1
	retries := 0

	for {
		attempt := retries + 1
		outcome := t.attempt(ctx, seg, req, instruction, artifact, attempt, log)

		switch outcome.kind {
		case outcomeFatal:
			t.emit(seg, ProgressEvent{Phase: PhaseFailed, Attempt: attempt, Err: outcome.err})
			return "", outcome.err

		case outcomeSuccess:
			chars := utf8.RuneCountInString(outcome.text)
			if float64(chars) < expectedMinChars && retries < req.MaxRetries {
				log.Warn("Transcription shorter than expected, retrying",
					logger.Int("chars", chars),
					logger.Int("expected_min_chars", int(expectedMinChars)),
					logger.Int("attempt", attempt),
					logger.Int("max_attempts", maxAttempts))
				retries++
				t.emit(seg, ProgressEvent{Phase: PhaseRetrying, Attempt: attempt, Chars: chars})
				continue
			}

			log.Info("Segment transcribed", logger.Int("chars", chars), logger.Int("attempt", attempt))
			t.emit(seg, ProgressEvent{Phase: PhaseDone, Attempt: attempt, Chars: chars})
			return outcome.text, nil

		case outcomeRetryable:
			log.Warn("Transcription attempt failed",
				logger.Int("attempt", attempt),
				logger.Int("max_attempts", maxAttempts),
				logger.Error(outcome.err))

			if retries >= req.MaxRetries {
				t.emit(seg, ProgressEvent{Phase: PhaseFailed, Attempt: attempt, Err: outcome.err})
				return "", &TranscriptionError{StartMs: seg.StartMs, Attempts: attempt, Err: outcome.err}
			}

			retries++
			wait := time.Duration(retries) * req.BackoffUnit
			log.Info("Backing off before retry", logger.Duration("wait", wait))
			t.emit(seg, ProgressEvent{Phase: PhaseRetrying, Attempt: attempt, Wait: wait, Err: outcome.err})
			if err := t.sleep(ctx, wait); err != nil {
				return "", err
			}
		}
	}
}

// attempt runs one upload+generate cycle against the remote
func (t *Transcriber) attempt(ctx context.Context, seg audio.Segment, req Request, instruction, artifact string, attempt int, log *logger.Logger) attemptOutcome {
	if err := ctx.Err(); err != nil {
		return attemptOutcome{kind: outcomeFatal, err: err}
	}

	t.emit(seg, ProgressEvent{Phase: PhaseUploading, Attempt: attempt})
	uploaded, err := t.remote.UploadAudio(ctx, artifact)
	if err != nil {
		return classify(ctx, fmt.Errorf("failed to upload segment: %w", err))
	}
	defer func() {
		if err := t.remote.DeleteAudio(context.WithoutCancel(ctx), uploaded); err != nil {
			log.Debug("Failed to delete uploaded audio", logger.String("name", uploaded.Name), logger.Error(err))
		}
	}()

	t.emit(seg, ProgressEvent{Phase: PhaseGenerating, Attempt: attempt})
	text, err := t.remote.GenerateFromAudio(ctx, req.Model, instruction, uploaded)
	if err != nil {
		return classify(ctx, fmt.Errorf("failed to generate transcription: %w", err))
	}
	return attemptOutcome{kind: outcomeSuccess, text: text}
}

// classify treats caller cancellation as fatal and every remote error as retryable
func classify(ctx context.Context, err error) attemptOutcome {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return attemptOutcome{kind: outcomeFatal, err: ctxErr}
	}
	return attemptOutcome{kind: outcomeRetryable, err: err}
}

func (t *Transcriber) emit(seg audio.Segment, e ProgressEvent) {
	e.Index = seg.Index
	e.Total = seg.Total
	e.StartMs = seg.StartMs
	e.EndMs = seg.EndMs
	t.observer.OnProgress(e)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
