package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yegors/co-scribe/internal/transcription"
	"github.com/yegors/co-scribe/pkg/logger"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

type contentPart struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	InputAudio struct {
		Data   string `json:"data"`
		Format string `json:"format"`
	} `json:"input_audio"`
}

func completionServer(t *testing.T, reply string, status int, captured *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if captured != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "gpt-test",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(Config{APIKey: "test-key", BaseURL: srv.URL + "/"}, logger.NewNop())
	require.NoError(t, err)
	return c
}

func writeAudio(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "segment.wav")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestGenerateFromAudioSendsInlineAudio(t *testing.T) {
	var captured chatRequest
	srv := completionServer(t, "transcribed text", http.StatusOK, &captured)
	c := newTestClient(t, srv)

	payload := []byte("RIFF....WAVE")
	uploaded, err := c.UploadAudio(context.Background(), writeAudio(t, payload))
	require.NoError(t, err)
	assert.Equal(t, payload, uploaded.Data)

	text, err := c.GenerateFromAudio(context.Background(), DefaultAudioModel, "transcribe this", uploaded)
	require.NoError(t, err)
	assert.Equal(t, "transcribed text", text)

	assert.Equal(t, DefaultAudioModel, captured.Model)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)

	var parts []contentPart
	require.NoError(t, json.Unmarshal(captured.Messages[0].Content, &parts))
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "transcribe this", parts[0].Text)
	assert.Equal(t, "input_audio", parts[1].Type)
	assert.Equal(t, "wav", parts[1].InputAudio.Format)
	assert.Equal(t, base64.StdEncoding.EncodeToString(payload), parts[1].InputAudio.Data)

	require.NoError(t, c.DeleteAudio(context.Background(), uploaded))
	assert.Nil(t, uploaded.Data)
}

func TestGenerateTextSendsPlainPrompt(t *testing.T) {
	var captured chatRequest
	srv := completionServer(t, "# Minutes", http.StatusOK, &captured)

	text, err := newTestClient(t, srv).GenerateText(context.Background(), DefaultTextModel, "summarise")
	require.NoError(t, err)
	assert.Equal(t, "# Minutes", text)

	var content string
	require.NoError(t, json.Unmarshal(captured.Messages[0].Content, &content))
	assert.Equal(t, "summarise", content)
}

func TestGenerateTextEmptyReply(t *testing.T) {
	srv := completionServer(t, "", http.StatusOK, nil)
	_, err := newTestClient(t, srv).GenerateText(context.Background(), DefaultTextModel, "summarise")
	require.ErrorIs(t, err, transcription.ErrEmptyResponse)
}

func TestGenerateTextServerError(t *testing.T) {
	srv := completionServer(t, "", http.StatusServiceUnavailable, nil)
	_, err := newTestClient(t, srv).GenerateText(context.Background(), DefaultTextModel, "summarise")
	require.Error(t, err)
	assert.NotErrorIs(t, err, transcription.ErrEmptyResponse)
}

func TestUploadAudioMissingFile(t *testing.T) {
	c, err := New(Config{APIKey: "k"}, logger.NewNop())
	require.NoError(t, err)
	_, err = c.UploadAudio(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{APIKey: "  "}, logger.NewNop())
	require.Error(t, err)
}
