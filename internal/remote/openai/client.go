package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/yegors/co-scribe/internal/transcription"
	"github.com/yegors/co-scribe/pkg/logger"
)

// Models that accept audio input and plain text prompts respectively
const (
	DefaultAudioModel = "gpt-4o-audio-preview"
	DefaultTextModel  = "gpt-4o-mini"
)

// Config holds connection settings for the OpenAI API
type Config struct {
	APIKey  string
	BaseURL string
}

// Client sends audio inline with chat completions. OpenAI has no file
// store for chat audio, so "upload" only loads the bytes.
type Client struct {
	client oai.Client
	logger *logger.Logger
}

var (
	_ transcription.Remote        = (*Client)(nil)
	_ transcription.TextGenerator = (*Client)(nil)
)

// New creates an OpenAI client. SDK-level retries are disabled since the
// transcriber owns the retry policy.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client: oai.NewClient(opts...),
		logger: log.Named("openai"),
	}, nil
}

// UploadAudio reads the WAV file so it can be sent inline
func (c *Client) UploadAudio(_ context.Context, path string) (*transcription.UploadedAudio, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Loaded audio for inline upload",
		logger.String("path", path),
		logger.Int("bytes", len(data)))

	return &transcription.UploadedAudio{
		Name:      path,
		MIMEType:  "audio/wav",
		LocalPath: path,
		Data:      data,
	}, nil
}

// GenerateFromAudio sends the instruction and base64 audio in one user message
func (c *Client) GenerateFromAudio(ctx context.Context, model, instruction string, audio *transcription.UploadedAudio) (string, error) {
	if audio == nil || len(audio.Data) == 0 {
		return "", errors.New("no audio payload to send")
	}

	parts := []oai.ChatCompletionContentPartUnionParam{
		oai.TextContentPart(instruction),
		oai.InputAudioContentPart(oai.ChatCompletionInputAudioDataParam{
			Data:   base64.StdEncoding.EncodeToString(audio.Data),
			Format: "wav",
		}),
	}
	return c.complete(ctx, model, oai.UserMessage(parts))
}

// GenerateText runs a text-only prompt
func (c *Client) GenerateText(ctx context.Context, model, instruction string) (string, error) {
	return c.complete(ctx, model, oai.UserMessage(instruction))
}

// DeleteAudio drops the in-memory payload
func (c *Client) DeleteAudio(_ context.Context, audio *transcription.UploadedAudio) error {
	if audio != nil {
		audio.Data = nil
	}
	return nil
}

func (c *Client) complete(ctx context.Context, model string, message oai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model:    oai.ChatModel(model),
		Messages: []oai.ChatCompletionMessageParamUnion{message},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", transcription.ErrEmptyResponse
	}

	choice := resp.Choices[0]
	if strings.TrimSpace(choice.Message.Content) == "" {
		if choice.Message.Refusal != "" {
			return "", fmt.Errorf("%w: refused: %s", transcription.ErrEmptyResponse, choice.Message.Refusal)
		}
		return "", transcription.ErrEmptyResponse
	}
	return choice.Message.Content, nil
}
