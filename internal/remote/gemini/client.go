package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yegors/co-scribe/internal/transcription"
	"github.com/yegors/co-scribe/pkg/logger"
	"google.golang.org/genai"
)

const (
	audioMIMEType       = "audio/wav"
	defaultPollInterval = 2 * time.Second
	defaultPollTimeout  = 5 * time.Minute
)

// fileStore is the subset of genai.Files used here
type fileStore interface {
	UploadFromPath(ctx context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
	Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error)
}

// contentGenerator is the subset of genai.Models used here
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client talks to the Gemini API through the Files and Models services
type Client struct {
	files        fileStore
	models       contentGenerator
	pollInterval time.Duration
	pollTimeout  time.Duration
	logger       *logger.Logger
}

// Config holds connection settings for the Gemini API
type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint, mostly for testing
	BaseURL     string
	PollTimeout time.Duration
}

var (
	_ transcription.Remote        = (*Client)(nil)
	_ transcription.TextGenerator = (*Client)(nil)
)

// ErrFileProcessing is returned when an upload never becomes active
var ErrFileProcessing = errors.New("uploaded file did not become active")

// New creates a Gemini client
func New(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini API key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	c := newClient(client.Files, client.Models, log)
	if cfg.PollTimeout > 0 {
		c.pollTimeout = cfg.PollTimeout
	}
	return c, nil
}

func newClient(files fileStore, models contentGenerator, log *logger.Logger) *Client {
	return &Client{
		files:        files,
		models:       models,
		pollInterval: defaultPollInterval,
		pollTimeout:  defaultPollTimeout,
		logger:       log.Named("gemini"),
	}
}

// UploadAudio stages a WAV file with the Files API and waits until it is usable
func (c *Client) UploadAudio(ctx context.Context, path string) (*transcription.UploadedAudio, error) {
	file, err := c.files.UploadFromPath(ctx, path, &genai.UploadFileConfig{MIMEType: audioMIMEType})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Uploaded audio",
		logger.String("name", file.Name),
		logger.String("state", string(file.State)))

	file, err = c.waitActive(ctx, file)
	if err != nil {
		// best effort, the upload is useless now
		if _, delErr := c.files.Delete(context.WithoutCancel(ctx), file.Name, nil); delErr != nil {
			c.logger.Debug("Failed to delete unusable upload", logger.String("name", file.Name), logger.Error(delErr))
		}
		return nil, err
	}

	mimeType := file.MIMEType
	if mimeType == "" {
		mimeType = audioMIMEType
	}
	return &transcription.UploadedAudio{
		Name:      file.Name,
		URI:       file.URI,
		MIMEType:  mimeType,
		LocalPath: path,
	}, nil
}

// waitActive polls the file until it leaves the processing state. The
// returned file is never nil so callers can still clean it up.
func (c *Client) waitActive(ctx context.Context, file *genai.File) (*genai.File, error) {
	deadline := time.Now().Add(c.pollTimeout)
	for file.State == genai.FileStateProcessing {
		if time.Now().After(deadline) {
			return file, fmt.Errorf("%w: %s still processing after %s", ErrFileProcessing, file.Name, c.pollTimeout)
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return file, ctx.Err()
		case <-timer.C:
		}

		latest, err := c.files.Get(ctx, file.Name, nil)
		if err != nil {
			return file, fmt.Errorf("failed to poll file %s: %w", file.Name, err)
		}
		file = latest
	}

	if file.State == genai.FileStateFailed {
		msg := "unknown error"
		if file.Error != nil && file.Error.Message != "" {
			msg = file.Error.Message
		}
		return file, fmt.Errorf("%w: %s failed: %s", ErrFileProcessing, file.Name, msg)
	}
	return file, nil
}

// GenerateFromAudio sends the instruction followed by the uploaded audio
func (c *Client) GenerateFromAudio(ctx context.Context, model, instruction string, audio *transcription.UploadedAudio) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(instruction),
		genai.NewPartFromURI(audio.URI, audio.MIMEType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

// GenerateText runs a text-only prompt
func (c *Client) GenerateText(ctx context.Context, model, instruction string) (string, error) {
	resp, err := c.models.GenerateContent(ctx, model, genai.Text(instruction), nil)
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

// DeleteAudio removes the uploaded file from the Files API
func (c *Client) DeleteAudio(ctx context.Context, audio *transcription.UploadedAudio) error {
	if audio == nil || audio.Name == "" {
		return nil
	}
	_, err := c.files.Delete(ctx, audio.Name, nil)
	return err
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", transcription.ErrEmptyResponse
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: blocked (%s)", transcription.ErrEmptyResponse, resp.PromptFeedback.BlockReason)
		}
		return "", transcription.ErrEmptyResponse
	}
	return text, nil
}
