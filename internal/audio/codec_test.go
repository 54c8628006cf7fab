package audio

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yegors/co-scribe/pkg/logger"
)

func TestEncodeWAVWrites16BitPCM(t *testing.T) {
	dir := t.TempDir()
	buf := NewSilence(16000, 1, 1000)

	path, err := EncodeWAV(buf, dir)
	require.NoError(t, err)
	require.Equal(t, dir, filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), 44)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.EqualValues(t, 1, binary.LittleEndian.Uint16(data[22:24]))
	assert.EqualValues(t, 16000, binary.LittleEndian.Uint32(data[24:28]))
	assert.EqualValues(t, 16, binary.LittleEndian.Uint16(data[34:36]))
}

func TestDecodeRoundTripsEncodedWAV(t *testing.T) {
	dir := t.TempDir()
	path, err := EncodeWAV(NewSilence(8000, 2, 3000), dir)
	require.NoError(t, err)

	decoder := NewDecoder("", dir, logger.NewNop())
	buf, err := decoder.Decode(context.Background(), path)
	require.NoError(t, err)
	assert.EqualValues(t, 3000, buf.DurationMs())
	assert.Equal(t, 2, buf.Channels())
	assert.Equal(t, 8000, buf.SampleRate())
}

func TestDecodeRejectsUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	_, err := NewDecoder("", "", logger.NewNop()).Decode(context.Background(), path)
	var unsupported *UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "txt", unsupported.Extension)
	assert.Contains(t, err.Error(), "speex")
}

func TestDecodeReportsCorruptMedia(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.WAV")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a riff file"), 0o600))

	_, err := NewDecoder("", "", logger.NewNop()).Decode(context.Background(), path)
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, path, decodeErr.Path)
}

func TestDecodeReportsMissingFile(t *testing.T) {
	_, err := NewDecoder("", "", logger.NewNop()).Decode(context.Background(), "/nonexistent/meeting.mp3")
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecodeReportsMissingFFmpeg(t *testing.T) {
	path := filepath.Join(t.TempDir(), "call.m4a")
	require.NoError(t, os.WriteFile(path, []byte("m4a"), 0o600))

	decoder := NewDecoder(filepath.Join(t.TempDir(), "no-ffmpeg-here"), "", logger.NewNop())
	_, err := decoder.Decode(context.Background(), path)
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "mp3", Extension("/a/b/Meeting.MP3"))
	assert.Equal(t, "", Extension("noext"))
}
