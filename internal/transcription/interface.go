package transcription

import (
	"context"

	"github.com/yegors/co-scribe/internal/audio"
)

// UploadedAudio is a handle on audio staged with the remote service
type UploadedAudio struct {
	Name      string
	URI       string
	MIMEType  string
	LocalPath string
	// Data carries the payload inline for backends without a file store
	Data []byte
}

// Remote is the speech-to-text collaborator driven for every segment
type Remote interface {
	UploadAudio(ctx context.Context, path string) (*UploadedAudio, error)
	GenerateFromAudio(ctx context.Context, model, instruction string, audio *UploadedAudio) (string, error)
	DeleteAudio(ctx context.Context, audio *UploadedAudio) error
}

// TextGenerator is the text-only collaborator used for minutes
type TextGenerator interface {
	GenerateText(ctx context.Context, model, instruction string) (string, error)
}

// SegmentTranscriber turns one segment into text
type SegmentTranscriber interface {
	Transcribe(ctx context.Context, seg audio.Segment, req Request) (string, error)
}

// Ensure the implementations satisfy the interfaces
var (
	_ SegmentTranscriber = (*Transcriber)(nil)
)
