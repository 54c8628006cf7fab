package app

import (
	"github.com/yegors/co-scribe/internal/timestamp"
	"github.com/yegors/co-scribe/internal/transcription"
	"github.com/yegors/co-scribe/pkg/logger"
)

// progressLogger reports run progress through the structured logger
type progressLogger struct {
	logger *logger.Logger
}

func newProgressLogger(log *logger.Logger) *progressLogger {
	return &progressLogger{logger: log.Named("progress")}
}

func (p *progressLogger) OnProgress(e transcription.ProgressEvent) {
	switch e.Phase {
	case transcription.PhaseSegmenting:
		p.logger.Info("Audio split into segments",
			logger.Int("segments", e.Total),
			logger.String("duration", timestamp.Format(e.EndMs)))
	case transcription.PhaseUploading:
		p.logger.Info("Uploading segment",
			logger.Int("segment", e.Index),
			logger.Int("total", e.Total),
			logger.String("start", timestamp.Format(e.StartMs)))
	case transcription.PhaseGenerating:
		p.logger.Info("Transcribing segment",
			logger.Int("segment", e.Index),
			logger.Int("total", e.Total),
			logger.String("start", timestamp.Format(e.StartMs)),
			logger.Int("attempt", e.Attempt))
	case transcription.PhaseRetrying:
		p.logger.Debug("Retry scheduled",
			logger.Int("segment", e.Index),
			logger.Int("attempt", e.Attempt),
			logger.Duration("wait", e.Wait))
	case transcription.PhaseDone:
		p.logger.Info("Segment complete",
			logger.Int("segment", e.Index),
			logger.Int("total", e.Total),
			logger.Int("chars", e.Chars))
	case transcription.PhaseFailed:
		p.logger.Error("Segment failed",
			logger.Int("segment", e.Index),
			logger.Int("attempt", e.Attempt),
			logger.Error(e.Err))
	case transcription.PhaseMinutes:
		p.logger.Info("Generating minutes")
	default:
		p.logger.Debug("Progress", logger.String("phase", string(e.Phase)))
	}
}
