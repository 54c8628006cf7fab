package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Options is the parsed command line. Pointer fields are nil unless the
// flag was given, so they only override configuration when set.
type Options struct {
	AudioPath     string
	OutputPath    string
	MinutesOutput string
	ConfigPath    string

	Model       *string
	Language    *string
	Backend     *string
	LogLevel    *string
	MaxRetries  *int
	Concurrency *int

	Timestamps bool
	Minutes    bool
	Autosave   bool

	ShowHelp    bool
	ShowVersion bool
}

type flagKind int

const (
	kindBool flagKind = iota
	kindString
	kindInt
)

type flagSpec struct {
	names []string
	kind  flagKind
	apply func(o *Options, value string) error
}

var flagSpecs = []flagSpec{
	{[]string{"-h", "--help"}, kindBool, func(o *Options, _ string) error { o.ShowHelp = true; return nil }},
	{[]string{"--version"}, kindBool, func(o *Options, _ string) error { o.ShowVersion = true; return nil }},
	{[]string{"-t", "--timestamps"}, kindBool, func(o *Options, _ string) error { o.Timestamps = true; return nil }},
	{[]string{"--minutes"}, kindBool, func(o *Options, _ string) error { o.Minutes = true; return nil }},
	{[]string{"--autosave"}, kindBool, func(o *Options, _ string) error { o.Autosave = true; return nil }},
	{[]string{"-o", "--output"}, kindString, func(o *Options, v string) error { o.OutputPath = v; return nil }},
	{[]string{"--minutes-output"}, kindString, func(o *Options, v string) error { o.MinutesOutput = v; return nil }},
	{[]string{"--config"}, kindString, func(o *Options, v string) error { o.ConfigPath = v; return nil }},
	{[]string{"-m", "--model"}, kindString, func(o *Options, v string) error { o.Model = &v; return nil }},
	{[]string{"-l", "--language"}, kindString, func(o *Options, v string) error {
		v = strings.ToLower(v)
		if v != "japanese" && v != "english" {
			return fmt.Errorf("invalid language %q (choose japanese or english)", v)
		}
		o.Language = &v
		return nil
	}},
	{[]string{"--backend"}, kindString, func(o *Options, v string) error {
		v = strings.ToLower(v)
		if v != "gemini" && v != "openai" {
			return fmt.Errorf("invalid backend %q (choose gemini or openai)", v)
		}
		o.Backend = &v
		return nil
	}},
	{[]string{"--log-level"}, kindString, func(o *Options, v string) error { o.LogLevel = &v; return nil }},
	{[]string{"--max-retries"}, kindInt, func(o *Options, v string) error {
		n, err := parseInt("--max-retries", v, 0)
		if err != nil {
			return err
		}
		o.MaxRetries = &n
		return nil
	}},
	{[]string{"--concurrency"}, kindInt, func(o *Options, v string) error {
		n, err := parseInt("--concurrency", v, 1)
		if err != nil {
			return err
		}
		o.Concurrency = &n
		return nil
	}},
}

func lookup(name string) (flagSpec, bool) {
	for _, spec := range flagSpecs {
		for _, n := range spec.names {
			if n == name {
				return spec, true
			}
		}
	}
	return flagSpec{}, false
}

func parseInt(flag, value string, minimum int) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s expects an integer, got %q", flag, value)
	}
	if n < minimum {
		return 0, fmt.Errorf("%s must be >= %d, got %d", flag, minimum, n)
	}
	return n, nil
}

// Parse reads args (without the program name). Flags and the audio path may
// be given in any order; "--" ends flag parsing.
func Parse(args []string) (Options, error) {
	var opts Options
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			positional = append(positional, arg)
			continue
		}

		name, value, hasValue := strings.Cut(arg, "=")
		spec, ok := lookup(name)
		if !ok {
			return Options{}, fmt.Errorf("unknown flag: %s", name)
		}

		if spec.kind == kindBool {
			if hasValue {
				return Options{}, fmt.Errorf("%s does not take a value", name)
			}
		} else if !hasValue {
			i++
			if i >= len(args) {
				return Options{}, fmt.Errorf("%s requires a value", name)
			}
			value = args[i]
		}

		if err := spec.apply(&opts, value); err != nil {
			return Options{}, err
		}
	}

	if opts.ShowHelp || opts.ShowVersion {
		return opts, nil
	}

	switch len(positional) {
	case 0:
		return Options{}, errors.New("missing audio file argument")
	case 1:
		opts.AudioPath = positional[0]
	default:
		return Options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(positional[1:], " "))
	}
	return opts, nil
}

// HelpText returns the usage message
func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [flags] <audio-file>

Transcribes an audio file with a remote speech model. Recordings longer than
the segment limit are split, transcribed in order and joined.

Flags:
  -o, --output PATH        Write the transcript to PATH (default: stdout)
  -m, --model NAME         Model used for transcription
  -l, --language LANG      japanese or english (default: japanese)
  -t, --timestamps         Ask for timestamps and add segment headers
      --minutes            Also generate meeting minutes
      --minutes-output PATH
                           Write the minutes to PATH (default: stdout)
      --autosave           Save <name>.txt and <name>_minutes.md next to the input
      --backend NAME       gemini or openai (default: gemini)
      --config PATH        TOML configuration file
      --max-retries N      Retries per segment (default: 3)
      --concurrency N      Segments transcribed in parallel (default: 1)
      --log-level LEVEL    debug, info, warn or error
  -h, --help               Show help
      --version            Show version

Environment:
  GOOGLE_API_KEY, OPENAI_API_KEY   API credentials (also read from .env)
  CO_SCRIBE_ENV                    Alternative env file location
`, binaryName)
}
