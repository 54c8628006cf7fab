package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yegors/co-scribe/internal/audio"
	"github.com/yegors/co-scribe/internal/cli"
	"github.com/yegors/co-scribe/internal/config"
	"github.com/yegors/co-scribe/internal/remote/gemini"
	"github.com/yegors/co-scribe/internal/remote/openai"
	"github.com/yegors/co-scribe/internal/timestamp"
	"github.com/yegors/co-scribe/internal/transcription"
	"github.com/yegors/co-scribe/pkg/logger"
)

const binaryName = "co-scribe"

// Version is set at build time
var Version = "dev"

// Backend is a remote service able to transcribe audio and write minutes
type Backend interface {
	transcription.Remote
	transcription.TextGenerator
}

// BackendFactory builds the backend selected by cfg
type BackendFactory func(ctx context.Context, cfg *config.Config, log *logger.Logger) (Backend, error)

// DecodeFunc loads an audio file into memory
type DecodeFunc func(ctx context.Context, path string) (*audio.Buffer, error)

// Runner executes one command line invocation
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer

	// Optional hooks; nil selects the real implementations
	NewBackend BackendFactory
	Decode     DecodeFunc
	Sleep      transcription.SleepFunc
}

// Execute runs the CLI and returns the process exit code
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

// Execute runs the CLI and returns the process exit code
func (r Runner) Execute(ctx context.Context, args []string) int {
	opts, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}
	if opts.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}
	if opts.ShowVersion {
		fmt.Fprintf(r.Stdout, "%s %s\n", binaryName, Version)
		return 0
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	applyOverrides(cfg, opts)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logCfg := cfg.Logging
	logCfg.Output = r.Stderr
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()
	log = log.WithRunID(uuid.NewString())

	if err := r.run(ctx, cfg, opts, log); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Run cancelled")
		} else {
			log.Error("Run failed", logger.Error(err))
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func (r Runner) run(ctx context.Context, cfg *config.Config, opts cli.Options, log *logger.Logger) error {
	req, err := cfg.Request()
	if err != nil {
		return err
	}

	decode := r.Decode
	if decode == nil {
		decode = audio.NewDecoder(cfg.Audio.FFmpegPath, cfg.Audio.TempDir, log).Decode
	}
	newBackend := r.NewBackend
	if newBackend == nil {
		newBackend = defaultBackend
	}

	log.Info("Loading audio file", logger.String("path", opts.AudioPath))
	buf, err := decode(ctx, opts.AudioPath)
	if err != nil {
		return err
	}
	log.Info("Audio loaded",
		logger.String("duration", timestamp.Format(buf.DurationMs())),
		logger.Int64("duration_ms", buf.DurationMs()))

	backend, err := newBackend(ctx, cfg, log)
	if err != nil {
		return err
	}

	log.Info("Starting transcription",
		logger.String("backend", cfg.Backend),
		logger.String("model", req.Model),
		logger.String("language", string(req.Language)),
		logger.Bool("timestamps", req.WithTimestamps),
		logger.Bool("minutes", cfg.Minutes.Enabled))

	observer := newProgressLogger(log)
	transcriberOpts := []transcription.TranscriberOption{
		transcription.WithTempDir(cfg.Audio.TempDir),
		transcription.WithObserver(observer),
	}
	if r.Sleep != nil {
		transcriberOpts = append(transcriberOpts, transcription.WithSleep(r.Sleep))
	}
	transcriber := transcription.NewTranscriber(backend, log, transcriberOpts...)
	assembler := transcription.NewAssembler(transcriber, log,
		transcription.WithMaxSegmentMinutes(cfg.Transcription.MaxSegmentMinutes),
		transcription.WithConcurrency(cfg.Transcription.Concurrency),
		transcription.WithRunObserver(observer))

	started := time.Now()
	transcript, err := assembler.Run(ctx, buf, req)
	if err != nil {
		return err
	}
	log.Info("Transcription finished",
		logger.Int("chars", len([]rune(transcript))),
		logger.Duration("elapsed", time.Since(started)))

	transcriptPath, minutesPath := outputPaths(opts)

	// A failed minutes write must not cost the transcript
	var minutesErr error
	if cfg.Minutes.Enabled {
		observer.OnProgress(transcription.ProgressEvent{Phase: transcription.PhaseMinutes})
		minutes := transcription.NewMinutesGenerator(backend, cfg.Minutes.Model, req.Language, log).Generate(ctx, transcript)
		minutesErr = r.emit(minutesPath, "Minutes", minutes, log)
	}

	return errors.Join(minutesErr, r.emit(transcriptPath, "Transcript", transcript, log))
}

// outputPaths resolves explicit paths first, then autosave names next to the input
func outputPaths(opts cli.Options) (transcriptPath, minutesPath string) {
	transcriptPath, minutesPath = opts.OutputPath, opts.MinutesOutput
	if !opts.Autosave {
		return transcriptPath, minutesPath
	}

	base := strings.TrimSuffix(opts.AudioPath, filepath.Ext(opts.AudioPath))
	if transcriptPath == "" {
		transcriptPath = base + ".txt"
	}
	if minutesPath == "" {
		minutesPath = base + "_minutes.md"
	}
	return transcriptPath, minutesPath
}

// emit writes text to path, or prints it between banners when path is empty
func (r Runner) emit(path, title, text string, log *logger.Logger) error {
	if path == "" {
		banner := fmt.Sprintf("===== %s =====", title)
		fmt.Fprintf(r.Stdout, "\n%s\n%s\n%s\n", banner, text, strings.Repeat("=", len(banner)))
		return nil
	}

	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to save %s: %w", strings.ToLower(title), err)
	}
	log.Info("Saved output", logger.String("kind", strings.ToLower(title)), logger.String("path", path))
	return nil
}

func applyOverrides(cfg *config.Config, opts cli.Options) {
	if opts.Backend != nil {
		cfg.Backend = *opts.Backend
	}
	if opts.Model != nil {
		cfg.Transcription.Model = *opts.Model
	}
	if opts.Language != nil {
		cfg.Transcription.Language = *opts.Language
	}
	if opts.Timestamps {
		cfg.Transcription.Timestamps = true
	}
	if opts.MaxRetries != nil {
		cfg.Transcription.MaxRetries = *opts.MaxRetries
	}
	if opts.Concurrency != nil {
		cfg.Transcription.Concurrency = *opts.Concurrency
	}
	if opts.Minutes || opts.MinutesOutput != "" {
		cfg.Minutes.Enabled = true
	}
	if opts.LogLevel != nil {
		cfg.Logging.Level = *opts.LogLevel
	}
}

func defaultBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (Backend, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}

	if cfg.Backend == config.BackendOpenAI {
		client, err := openai.New(openai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
		}, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	client, err := gemini.New(ctx, gemini.Config{
		APIKey:      cfg.Gemini.APIKey,
		BaseURL:     cfg.Gemini.BaseURL,
		PollTimeout: time.Duration(cfg.Gemini.UploadTimeoutSecs) * time.Second,
	}, log)
	if err != nil {
		return nil, err
	}
	return client, nil
}
