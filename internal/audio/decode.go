package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"
	"github.com/yegors/co-scribe/pkg/logger"
)

// SupportedFormats lists the accepted input file extensions
var SupportedFormats = []string{
	"wav", "flac", "mp3", "ogg", "webm", "mp4",
	"amr", "3gp", "m4a", "opus", "speex",
}

// UnsupportedFormatError reports an input whose extension is not accepted
type UnsupportedFormatError struct {
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported audio format %q (supported: %s)",
		e.Extension, strings.Join(SupportedFormats, ", "))
}

// DecodeError reports malformed or unreadable media
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode audio file %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type streamDecoder func(f *os.File) (beep.StreamSeekCloser, beep.Format, error)

// native decoders; everything else goes through ffmpeg
var nativeDecoders = map[string]streamDecoder{
	"wav":  func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(f) },
	"mp3":  func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return mp3.Decode(f) },
	"flac": func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return flac.Decode(f) },
	"ogg":  func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return vorbis.Decode(f) },
}

// Decoder turns media files into PCM buffers
type Decoder struct {
	ffmpegPath string
	tempDir    string
	logger     *logger.Logger
}

// NewDecoder creates a decoder. ffmpegPath defaults to "ffmpeg" on PATH.
func NewDecoder(ffmpegPath, tempDir string, log *logger.Logger) *Decoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Decoder{
		ffmpegPath: ffmpegPath,
		tempDir:    tempDir,
		logger:     log.Named("decoder"),
	}
}

// Extension returns the lower-cased extension of path without the dot
func Extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Decode reads the media file at path into a buffer
func (d *Decoder) Decode(ctx context.Context, path string) (*Buffer, error) {
	ext := Extension(path)
	if !slices.Contains(SupportedFormats, ext) {
		return nil, &UnsupportedFormatError{Extension: ext}
	}

	if _, err := os.Stat(path); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	if decode, ok := nativeDecoders[ext]; ok {
		buf, err := decodeFile(path, decode)
		if err == nil {
			return buf, nil
		}
		// ogg may carry opus, which only ffmpeg reads
		if ext != "ogg" {
			return nil, &DecodeError{Path: path, Err: err}
		}
		d.logger.Debug("Native ogg decode failed, falling back to ffmpeg", logger.Error(err))
	}

	return d.decodeWithFFmpeg(ctx, path)
}

// decodeWithFFmpeg transcodes to a temporary 16-bit WAV and decodes that
func (d *Decoder) decodeWithFFmpeg(ctx context.Context, path string) (*Buffer, error) {
	tmp, err := os.CreateTemp(d.tempDir, "co-scribe-decoded-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create transcode target: %w", err)
	}
	out := tmp.Name()
	_ = tmp.Close()
	defer func() {
		if err := os.Remove(out); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("Failed to remove transcoded file", logger.String("path", out), logger.Error(err))
		}
	}()

	d.logger.Info("Transcoding with ffmpeg", logger.String("input", path))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-nostdin", "-y", "-loglevel", "error",
		"-i", path,
		"-vn", "-acodec", "pcm_s16le",
		"-f", "wav",
		out,
	)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, &DecodeError{Path: path, Err: fmt.Errorf("ffmpeg is required for .%s input: %w", Extension(path), err)}
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, &DecodeError{Path: path, Err: fmt.Errorf("ffmpeg: %w", err)}
		}
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("ffmpeg: %w: %s", err, msg)}
	}

	buf, err := decodeFile(out, nativeDecoders["wav"])
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return buf, nil
}

func decodeFile(path string, decode streamDecoder) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	streamer, format, err := decode(f)
	if err != nil {
		return nil, err
	}
	defer streamer.Close()

	buf := NewBuffer(format, streamer)
	if err := streamer.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, errors.New("no audio samples")
	}
	return buf, nil
}
