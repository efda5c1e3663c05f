package client

import (
	"context"

	"github.com/openai/openai-go"
)

// RetryCallback handles each attempt's response or error. Returning a
// backoff.Permanent error stops further retries.
type RetryCallback func(resp *openai.ChatCompletion, err error) error

// Client provides a unified interface for making AI requests.
type Client interface {
	Chat() ChatCompletions
}

// ChatCompletions provides chat completion methods.
type ChatCompletions interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
	NewWithRetry(ctx context.Context, params openai.ChatCompletionNewParams, callback RetryCallback) error
}
