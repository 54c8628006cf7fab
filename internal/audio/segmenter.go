package audio

import (
	"errors"
	"fmt"

	"github.com/yegors/co-scribe/internal/timestamp"
	"github.com/yegors/co-scribe/pkg/logger"
)

// ErrNoAudio is returned when there is nothing to split
var ErrNoAudio = errors.New("audio buffer is empty")

// Span is a half-open [StartMs, EndMs) range of a recording
type Span struct {
	StartMs int64
	EndMs   int64
}

// DurationMs returns the span length
func (s Span) DurationMs() int64 {
	return s.EndMs - s.StartMs
}

// Segment is one bounded slice of a recording, processed as a single remote call
type Segment struct {
	Span
	Index  int // 1-based
	Total  int
	Buffer *Buffer
}

// Spans partitions [0, totalMs) into consecutive spans of at most maxMs.
// Only the last span may be shorter than maxMs.
func Spans(totalMs, maxMs int64) ([]Span, error) {
	if maxMs <= 0 {
		return nil, fmt.Errorf("max segment duration must be positive, got %d ms", maxMs)
	}
	if totalMs <= 0 {
		return nil, ErrNoAudio
	}

	count := (totalMs + maxMs - 1) / maxMs
	spans := make([]Span, 0, count)
	for i := int64(0); i < count; i++ {
		start := i * maxMs
		end := min((i+1)*maxMs, totalMs)
		spans = append(spans, Span{StartMs: start, EndMs: end})
	}
	return spans, nil
}

// Segmenter splits decoded recordings into duration-bounded segments
type Segmenter struct {
	maxDurationMs int64
	logger        *logger.Logger
}

// NewSegmenter creates a segmenter producing segments of at most maxDurationMs
func NewSegmenter(maxDurationMs int64, log *logger.Logger) *Segmenter {
	return &Segmenter{
		maxDurationMs: maxDurationMs,
		logger:        log.Named("segmenter"),
	}
}

// MaxDurationMs returns the configured segment bound
func (s *Segmenter) MaxDurationMs() int64 {
	return s.maxDurationMs
}

// Split cuts buf into ordered segments covering the whole recording
func (s *Segmenter) Split(buf *Buffer) ([]Segment, error) {
	totalMs := buf.DurationMs()
	spans, err := Spans(totalMs, s.maxDurationMs)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Splitting audio",
		logger.String("total", timestamp.Format(totalMs)),
		logger.Int64("total_ms", totalMs),
		logger.Int("segments", len(spans)),
		logger.Int64("max_segment_ms", s.maxDurationMs))

	segments := make([]Segment, 0, len(spans))
	for i, span := range spans {
		slice, err := buf.Slice(span.StartMs, span.EndMs)
		if err != nil {
			return nil, fmt.Errorf("failed to slice segment %d: %w", i+1, err)
		}
		segments = append(segments, Segment{
			Span:   span,
			Index:  i + 1,
			Total:  len(spans),
			Buffer: slice,
		})

		s.logger.Info("Created segment",
			logger.Int("index", i+1),
			logger.String("start", timestamp.Format(span.StartMs)),
			logger.String("end", timestamp.Format(span.EndMs)),
			logger.String("length", timestamp.Format(span.DurationMs())))
	}

	return segments, nil
}

// Whole wraps an entire buffer as a single segment starting at offset zero
func Whole(buf *Buffer) Segment {
	return Segment{
		Span:   Span{StartMs: 0, EndMs: buf.DurationMs()},
		Index:  1,
		Total:  1,
		Buffer: buf,
	}
}
