package client_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/forgelink/forgelink/internal/ai/client"
	"github.com/forgelink/forgelink/internal/ai/limits"
	"github.com/forgelink/forgelink/internal/setup/config"
	"github.com/forgelink/forgelink/pkg/utils"
	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func completionBody(finishReason, content string) string {
	return `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "mapped-model",
		"choices": [
			{
				"index": 0,
				"finish_reason": "` + finishReason + `",
				"message": {"role": "assistant", "content": "` + content + `"}
			}
		]
	}`
}

func newTestClient(t *testing.T, baseURL string) *client.AIClient {
	t.Helper()

	cfg := &config.OpenAI{
		BaseURL:       baseURL,
		APIKey:        "test-key",
		MaxConcurrent: 2,
		ModelMappings: map[string]string{"test-model": "mapped-model"},
	}
	retry := &config.Retry{MaxRetries: 3, Delay: 1, MaxDelay: 5}

	c, err := client.NewClient(cfg, retry, limits.NewTracker(zap.NewNop()), zap.NewNop())
	require.NoError(t, err)

	return c
}

func chatParams() openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")},
		Model:    "test-model",
	}
}

func TestNewWithRetryRecoversFromAPIError(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) == 1 {
			http.Error(w, `{"error": {"message": "upstream unavailable"}}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody("stop", "ok")))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)

	var content string

	err := c.Chat().NewWithRetry(t.Context(), chatParams(), func(resp *openai.ChatCompletion, err error) error {
		if err != nil {
			return err
		}

		content = resp.Choices[0].Message.Content

		return nil
	})
	require.NoError(t, err)

	// A transient gateway failure is retried rather than treated as permanent
	assert.Equal(t, "ok", content)
	assert.Equal(t, int64(2), requests.Load())
}

func TestNewWithRetryContentFilterIsNotRetried(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody("content_filter", "")))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)

	err := c.Chat().NewWithRetry(t.Context(), chatParams(), func(_ *openai.ChatCompletion, err error) error {
		return err
	})
	require.Error(t, err)

	assert.ErrorIs(t, err, utils.ErrContentBlocked)
	assert.Equal(t, int64(1), requests.Load())
}

func TestNewRejectsUnmappedModel(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "http://127.0.0.1:1")

	params := chatParams()
	params.Model = "unknown-model"

	_, err := c.Chat().New(t.Context(), params)
	assert.ErrorIs(t, err, client.ErrNoProvidersAvailable)
}
