package audio

import (
	"fmt"

	"github.com/gopxl/beep"
)

// bytesPerSample is the PCM width every buffer is normalised to (16-bit)
const bytesPerSample = 2

// Buffer is an immutable block of decoded PCM audio
type Buffer struct {
	samples *beep.Buffer
}

// NewBuffer drains s into a new buffer with the given format
func NewBuffer(format beep.Format, s beep.Streamer) *Buffer {
	format.Precision = bytesPerSample
	samples := beep.NewBuffer(format)
	samples.Append(s)
	return &Buffer{samples: samples}
}

// NewSilence creates a buffer holding durationMs of silence, mainly for tests and probes
func NewSilence(sampleRate, channels int, durationMs int64) *Buffer {
	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: channels,
		Precision:   bytesPerSample,
	}
	n := int(durationMs * int64(sampleRate) / 1000)
	return NewBuffer(format, beep.Take(n, beep.Silence(-1)))
}

// Format returns the PCM format of the buffer
func (b *Buffer) Format() beep.Format {
	return b.samples.Format()
}

// SampleRate returns the number of samples per second
func (b *Buffer) SampleRate() int {
	return int(b.samples.Format().SampleRate)
}

// Channels returns the channel count
func (b *Buffer) Channels() int {
	return b.samples.Format().NumChannels
}

// Len returns the number of samples (frames) in the buffer
func (b *Buffer) Len() int {
	return b.samples.Len()
}

// DurationMs returns the buffer length in whole milliseconds
func (b *Buffer) DurationMs() int64 {
	rate := int64(b.SampleRate())
	if rate <= 0 {
		return 0
	}
	return int64(b.Len()) * 1000 / rate
}

// Streamer returns a fresh streamer over the whole buffer
func (b *Buffer) Streamer() beep.StreamSeeker {
	return b.samples.Streamer(0, b.samples.Len())
}

// Slice copies the [startMs, endMs) range into a new buffer.
// An endMs at or past DurationMs reaches the last sample, so the sub-millisecond
// tail is never dropped. The returned buffer shares no storage with b.
func (b *Buffer) Slice(startMs, endMs int64) (*Buffer, error) {
	if startMs < 0 || endMs < startMs {
		return nil, fmt.Errorf("invalid slice range %d-%d ms", startMs, endMs)
	}

	from := b.sampleAt(startMs)
	to := b.sampleAt(endMs)
	if endMs >= b.DurationMs() {
		to = b.Len()
	}
	return NewBuffer(b.Format(), b.samples.Streamer(from, to)), nil
}

// sampleAt maps a millisecond offset to a sample index clamped to the buffer
func (b *Buffer) sampleAt(ms int64) int {
	n := int(ms * int64(b.SampleRate()) / 1000)
	if n > b.Len() {
		return b.Len()
	}
	return n
}
