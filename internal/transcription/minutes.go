package transcription

import (
	"context"
	"fmt"
	"strings"

	"github.com/yegors/co-scribe/internal/prompt"
	"github.com/yegors/co-scribe/pkg/logger"
)

// MinutesGenerator turns a finished transcript into Markdown meeting minutes
type MinutesGenerator struct {
	generator TextGenerator
	model     string
	language  Language
	logger    *logger.Logger
}

// NewMinutesGenerator creates a minutes generator
func NewMinutesGenerator(generator TextGenerator, model string, language Language, log *logger.Logger) *MinutesGenerator {
	if model == "" {
		model = DefaultModel
	}
	if language == "" {
		language = LanguageJapanese
	}
	return &MinutesGenerator{
		generator: generator,
		model:     model,
		language:  language,
		logger:    log.Named("minutes"),
	}
}

// Generate asks the remote model for minutes. It never fails: on error the
// result is a Markdown report carrying the error and the original transcript.
func (m *MinutesGenerator) Generate(ctx context.Context, transcript string) string {
	m.logger.Info("Generating minutes", logger.String("model", m.model))

	instruction, err := prompt.Minutes(string(m.language), transcript)
	if err != nil {
		return m.fallback(err, transcript)
	}

	minutes, err := m.generator.GenerateText(ctx, m.model, instruction)
	if err == nil && strings.TrimSpace(minutes) == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		return m.fallback(err, transcript)
	}

	m.logger.Info("Minutes generated", logger.Int("chars", len([]rune(minutes))))
	return minutes
}

func (m *MinutesGenerator) fallback(err error, transcript string) string {
	m.logger.Error("Failed to generate minutes", logger.Error(err))
	return fmt.Sprintf("# Minutes generation error\n\nAn error occurred while generating the minutes: %v\n\n## Original transcript\n\n%s", err, transcript)
}
