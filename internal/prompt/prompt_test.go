package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptionEnglish(t *testing.T) {
	plain, err := Transcription("english", false, 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(plain, "Transcribe this audio in English."))
	assert.Contains(t, plain, "ENTIRE audio file completely")
	assert.NotContains(t, plain, "timestamp")
	assert.NotContains(t, plain, "This segment starts")

	stamped, err := Transcription("english", true, 25*60_000)
	require.NoError(t, err)
	assert.Contains(t, stamped, "with timestamps")
	assert.Contains(t, stamped, "[MM:SS] or [HH:MM:SS]")
	assert.True(t, strings.HasSuffix(stamped, "This segment starts at 25:00 of the full recording."))
}

func TestTranscriptionJapanese(t *testing.T) {
	plain, err := Transcription("japanese", false, 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(plain, "この音声を日本語で文字起こししてください。"))
	assert.Contains(t, plain, "一言一句漏らさず")
	assert.NotContains(t, plain, "タイムスタンプ")

	stamped, err := Transcription("japanese", true, 3_661_000)
	require.NoError(t, err)
	assert.Contains(t, stamped, "タイムスタンプ")
	assert.Contains(t, stamped, "このセグメントは全体の 01:01:01 から始まります。")
}

func TestTranscriptionUnknownLanguage(t *testing.T) {
	_, err := Transcription("klingon", false, 0)
	require.Error(t, err)
}

func TestMinutesEmbedsTranscriptVerbatim(t *testing.T) {
	transcript := "A: we ship <beta> on Friday & review \"docs\""
	for _, language := range []string{"english", "japanese"} {
		out, err := Minutes(language, transcript)
		require.NoError(t, err)
		assert.Contains(t, out, transcript, language)
		assert.Contains(t, out, "## 5.", language)
	}
}
