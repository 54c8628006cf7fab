package transcription

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yegors/co-scribe/pkg/logger"
)

type fakeTextGenerator struct {
	model       string
	instruction string
	reply       string
	err         error
}

func (f *fakeTextGenerator) GenerateText(_ context.Context, model, instruction string) (string, error) {
	f.model = model
	f.instruction = instruction
	return f.reply, f.err
}

func TestMinutesGenerateReturnsModelOutput(t *testing.T) {
	gen := &fakeTextGenerator{reply: "# Minutes\n\n- agreed"}
	minutes := NewMinutesGenerator(gen, "gemini-test", LanguageEnglish, logger.NewNop()).
		Generate(context.Background(), "Alice: let's ship it")

	assert.Equal(t, "# Minutes\n\n- agreed", minutes)
	assert.Equal(t, "gemini-test", gen.model)
	assert.Contains(t, gen.instruction, "Alice: let's ship it")
}

func TestMinutesGenerateDefaults(t *testing.T) {
	gen := &fakeTextGenerator{reply: "議事録"}
	NewMinutesGenerator(gen, "", "", logger.NewNop()).Generate(context.Background(), "本日の議題")

	assert.Equal(t, DefaultModel, gen.model)
	assert.Contains(t, gen.instruction, "本日の議題")
}

func TestMinutesGenerateFallsBackOnError(t *testing.T) {
	transcript := "[00:00] segment 1/2 transcription:\nhello <team> & co"
	gen := &fakeTextGenerator{err: errors.New("rate limited")}

	minutes := NewMinutesGenerator(gen, "m", LanguageJapanese, logger.NewNop()).Generate(context.Background(), transcript)

	require.Contains(t, minutes, "# Minutes generation error")
	assert.Contains(t, minutes, "rate limited")
	assert.Contains(t, minutes, "## Original transcript\n\n"+transcript)
}

func TestMinutesGenerateFallsBackOnEmptyReply(t *testing.T) {
	gen := &fakeTextGenerator{reply: "  \n "}

	minutes := NewMinutesGenerator(gen, "m", LanguageEnglish, logger.NewNop()).Generate(context.Background(), "transcript body")

	assert.Contains(t, minutes, "# Minutes generation error")
	assert.Contains(t, minutes, ErrEmptyResponse.Error())
	assert.Contains(t, minutes, "transcript body")
}

func TestTranscriptionErrorUnwraps(t *testing.T) {
	cause := errors.New("deadline")
	var err error = &TranscriptionError{StartMs: 25 * 60_000, Attempts: 4, Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "transcription of segment at 25:00 failed after 4 attempts: deadline", err.Error())
}

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in      string
		want    Language
		wantErr bool
	}{
		{"", LanguageJapanese, false},
		{"japanese", LanguageJapanese, false},
		{" English ", LanguageEnglish, false},
		{"french", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLanguage(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
