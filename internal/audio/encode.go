package audio

import (
	"fmt"
	"os"

	"github.com/gopxl/beep/wav"
)

// EncodeWAV writes buf as 16-bit PCM WAV into a new temporary file under dir
// (os.TempDir when empty) and returns its path. The caller owns the file.
func EncodeWAV(buf *Buffer, dir string) (string, error) {
	file, err := os.CreateTemp(dir, "co-scribe-segment-*.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary wav file: %w", err)
	}
	path := file.Name()

	format := buf.Format()
	format.Precision = bytesPerSample

	if err := wav.Encode(file, buf.Streamer(), format); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to close wav file: %w", err)
	}

	return path, nil
}
