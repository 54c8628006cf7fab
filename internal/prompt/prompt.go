// Package prompt renders the natural-language instructions sent to the remote model.
package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/yegors/co-scribe/internal/timestamp"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	cacheMu sync.Mutex
	cache   = map[string]*pongo2.Template{}
)

// load compiles an embedded template once and caches it
func load(name string) (*pongo2.Template, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if tpl, ok := cache[name]; ok {
		return tpl, nil
	}

	data, err := templateFS.ReadFile("templates/" + name + ".tmpl")
	if err != nil {
		return nil, fmt.Errorf("unknown prompt template %q: %w", name, err)
	}
	tpl, err := pongo2.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template %q: %w", name, err)
	}
	cache[name] = tpl
	return tpl, nil
}

func render(name string, ctx pongo2.Context) (string, error) {
	tpl, err := load(name)
	if err != nil {
		return "", err
	}
	out, err := tpl.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to render prompt template %q: %w", name, err)
	}
	return strings.TrimSpace(out), nil
}

// Transcription renders the per-segment instruction. language is "japanese"
// or "english"; offsetMs > 0 adds the segment's position in the recording.
func Transcription(language string, withTimestamps bool, offsetMs int64) (string, error) {
	offset := ""
	if offsetMs > 0 {
		offset = timestamp.Format(offsetMs)
	}
	return render("transcribe_"+language, pongo2.Context{
		"timestamps": withTimestamps,
		"offset":     offset,
	})
}

// Minutes renders the meeting-minutes instruction embedding the full transcript
func Minutes(language string, transcript string) (string, error) {
	return render("minutes_"+language, pongo2.Context{
		"transcript": transcript,
	})
}
