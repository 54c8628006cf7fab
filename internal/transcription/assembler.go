package transcription

import (
	"context"
	"fmt"
	"strings"

	"github.com/yegors/co-scribe/internal/audio"
	"github.com/yegors/co-scribe/internal/timestamp"
	"github.com/yegors/co-scribe/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Assembler transcribes a whole recording segment by segment and stitches the results
type Assembler struct {
	transcriber SegmentTranscriber
	segmenter   *audio.Segmenter
	concurrency int
	observer    Observer
	logger      *logger.Logger
}

// AssemblerOption customises an Assembler
type AssemblerOption func(*assemblerSettings)

type assemblerSettings struct {
	maxSegmentMinutes int
	concurrency       int
	observer          Observer
}

// WithMaxSegmentMinutes bounds the length of each remote call
func WithMaxSegmentMinutes(minutes int) AssemblerOption {
	return func(s *assemblerSettings) {
		if minutes > 0 {
			s.maxSegmentMinutes = minutes
		}
	}
}

// WithConcurrency allows up to n segments in flight. Output order is unaffected.
func WithConcurrency(n int) AssemblerOption {
	return func(s *assemblerSettings) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRunObserver subscribes o to run-level progress
func WithRunObserver(o Observer) AssemblerOption {
	return func(s *assemblerSettings) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewAssembler creates an assembler around a segment transcriber
func NewAssembler(transcriber SegmentTranscriber, log *logger.Logger, opts ...AssemblerOption) *Assembler {
	settings := assemblerSettings{
		maxSegmentMinutes: DefaultMaxSegmentMinutes,
		concurrency:       1,
		observer:          nopObserver{},
	}
	for _, opt := range opts {
		opt(&settings)
	}

	log = log.Named("assembler")
	return &Assembler{
		transcriber: transcriber,
		segmenter:   audio.NewSegmenter(int64(settings.maxSegmentMinutes)*60_000, log),
		concurrency: settings.concurrency,
		observer:    settings.observer,
		logger:      log,
	}
}

// Run transcribes buf. Recordings up to the segment bound go out in one call
// without headers; longer ones are split and joined in index order. Any
// segment failure aborts the run and no partial transcript is returned.
func (a *Assembler) Run(ctx context.Context, buf *audio.Buffer, req Request) (string, error) {
	durationMs := buf.DurationMs()
	if durationMs <= 0 {
		return "", audio.ErrNoAudio
	}
	maxMs := a.segmenter.MaxDurationMs()

	if durationMs <= maxMs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return a.transcriber.Transcribe(ctx, audio.Whole(buf), req)
	}

	a.logger.Info("Recording exceeds segment limit, splitting",
		logger.Float64("duration_minutes", float64(durationMs)/60_000),
		logger.Int64("max_segment_ms", maxMs))

	segments, err := a.segmenter.Split(buf)
	if err != nil {
		return "", fmt.Errorf("failed to split audio: %w", err)
	}
	a.observer.OnProgress(ProgressEvent{Phase: PhaseSegmenting, Total: len(segments), EndMs: durationMs})

	var texts []string
	if a.concurrency > 1 {
		texts, err = a.transcribeParallel(ctx, segments, req)
	} else {
		texts, err = a.transcribeSequential(ctx, segments, req)
	}
	if err != nil {
		return "", err
	}

	transcript := joinSegments(segments, texts, req.WithTimestamps)
	a.logger.Info("All segments transcribed",
		logger.Int("segments", len(segments)),
		logger.Int("chars", len([]rune(transcript))))
	return transcript, nil
}

func (a *Assembler) transcribeSequential(ctx context.Context, segments []audio.Segment, req Request) ([]string, error) {
	texts := make([]string, len(segments))
	for i, seg := range segments {
		// Cancellation only ever discards the segment in flight
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		a.logger.Info("Processing segment",
			logger.Int("index", seg.Index),
			logger.Int("total", seg.Total),
			logger.String("start", timestamp.Format(seg.StartMs)),
			logger.String("end", timestamp.Format(seg.EndMs)))

		text, err := a.transcriber.Transcribe(ctx, seg, req)
		if err != nil {
			return nil, fmt.Errorf("segment %d/%d: %w", seg.Index, seg.Total, err)
		}
		texts[i] = text
	}
	return texts, nil
}

// transcribeParallel fans segments out and joins them back by index
func (a *Assembler) transcribeParallel(ctx context.Context, segments []audio.Segment, req Request) ([]string, error) {
	texts := make([]string, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, seg := range segments {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := a.transcriber.Transcribe(gctx, seg, req)
			if err != nil {
				return fmt.Errorf("segment %d/%d: %w", seg.Index, seg.Total, err)
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return texts, nil
}

// joinSegments concatenates segment texts with blank lines, optionally headed by their offsets
func joinSegments(segments []audio.Segment, texts []string, withTimestamps bool) string {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if withTimestamps {
			fmt.Fprintf(&b, "[%s] segment %d/%d transcription:\n", timestamp.Format(seg.StartMs), seg.Index, seg.Total)
		}
		b.WriteString(texts[i])
	}
	return b.String()
}
