package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/forgelink/forgelink/internal/ai/limits"
	"github.com/forgelink/forgelink/internal/setup/config"
	"github.com/forgelink/forgelink/pkg/utils"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var (
	ErrNoProvidersAvailable = errors.New("no providers available")
	ErrBreakerOpen          = errors.New("inference gateway circuit breaker is open")
)

// AIClient implements the Client interface.
type AIClient struct {
	client        *openai.Client
	breaker       *gobreaker.CircuitBreaker
	semaphore     *semaphore.Weighted
	modelMappings map[string]string
	tracker       *limits.Tracker
	retryOptions  utils.RetryOptions
	logger        *zap.Logger
}

// NewClient creates a new AIClient.
func NewClient(cfg *config.OpenAI, retry *config.Retry, tracker *limits.Tracker, logger *zap.Logger) (*AIClient, error) {
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithRequestTimeout(90*time.Second),
		option.WithMaxRetries(0),
	)

	// Create circuit breaker settings
	settings := gobreaker.Settings{
		Name:        "openai",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		Interval:    0,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	// Layer configured overrides on the retry defaults
	options := utils.GetAIRetryOptions()
	if retry.MaxRetries > 0 {
		options.MaxRetries = retry.MaxRetries
	}

	if retry.Delay > 0 {
		options.InitialInterval = time.Duration(retry.Delay) * time.Millisecond
	}

	if retry.MaxDelay > 0 {
		options.MaxInterval = time.Duration(retry.MaxDelay) * time.Millisecond
	}

	return &AIClient{
		client:        &client,
		breaker:       gobreaker.NewCircuitBreaker(settings),
		semaphore:     semaphore.NewWeighted(cfg.MaxConcurrent),
		modelMappings: cfg.ModelMappings,
		tracker:       tracker,
		retryOptions:  options,
		logger:        logger.Named("ai_client"),
	}, nil
}

// Chat returns a ChatCompletions implementation.
func (c *AIClient) Chat() ChatCompletions {
	return &chatCompletions{client: c}
}

// chatCompletions implements the ChatCompletions interface.
type chatCompletions struct {
	client *AIClient
}

// New makes a chat completion request.
func (c *chatCompletions) New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	// Map model name
	originalModel := params.Model
	if mappedModel, ok := c.client.modelMappings[originalModel]; ok {
		params.Model = mappedModel
	} else {
		return nil, fmt.Errorf("%w: %s", ErrNoProvidersAvailable, originalModel)
	}

	// Try to acquire semaphore
	if err := c.client.semaphore.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer c.client.semaphore.Release(1)

	// Execute request
	result, err := c.client.breaker.Execute(func() (any, error) {
		resp, err := c.execute(ctx, originalModel, params)
		if err != nil {
			// API errors stay retryable; block detection only applies to
			// responses the gateway actually produced
			return resp, err
		}
		if bl := c.checkBlockReasons(resp, params.Model); bl != nil {
			return resp, bl
		}
		return resp, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState):
			return nil, fmt.Errorf("%w: %w", ErrBreakerOpen, err)
		case errors.Is(err, utils.ErrContentBlocked):
			return nil, err
		default:
			c.client.logger.Warn("Failed to make request", zap.Error(err))
			return nil, err
		}
	}

	return result.(*openai.ChatCompletion), nil
}

// NewWithRetry makes a chat completion request with retry logic.
func (c *chatCompletions) NewWithRetry(
	ctx context.Context, params openai.ChatCompletionNewParams, callback RetryCallback,
) error {
	// Map initial model name
	originalModel := params.Model
	if mappedModel, ok := c.client.modelMappings[originalModel]; ok {
		params.Model = mappedModel
	} else {
		return fmt.Errorf("%w: %s", ErrNoProvidersAvailable, originalModel)
	}

	// Try to acquire semaphore
	if err := c.client.semaphore.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer c.client.semaphore.Release(1)

	var (
		attempt uint64
		resp    *openai.ChatCompletion
		lastErr error
	)

	options := c.client.retryOptions

	// Create retry operation
	operation := func() error {
		// Check context before making request
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		attempt++

		// Execute request with circuit breaker
		result, err := c.client.breaker.Execute(func() (any, error) {
			var execErr error
			resp, execErr = c.execute(ctx, originalModel, params)
			if execErr != nil {
				return resp, execErr
			}
			if bl := c.checkBlockReasons(resp, params.Model); bl != nil {
				return resp, bl
			}
			return resp, nil
		})
		if err != nil {
			lastErr = err
			switch {
			case errors.Is(err, gobreaker.ErrOpenState):
				return backoff.Permanent(fmt.Errorf("%w: %w", ErrBreakerOpen, err))
			case errors.Is(err, utils.ErrContentBlocked):
				return backoff.Permanent(err)
			default:
				c.client.logger.Warn("Failed to make request",
					zap.Error(err),
					zap.String("model", params.Model),
					zap.Uint64("attempt", attempt))
			}

			// Call callback to handle response and error
			if cbErr := callback(resp, err); cbErr != nil {
				permanentError := &backoff.PermanentError{}
				if errors.As(cbErr, &permanentError) {
					return backoff.Permanent(fmt.Errorf("permanent callback error: %w", cbErr))
				}

				c.client.logger.Warn("Callback error, will retry",
					zap.Error(cbErr),
					zap.Uint64("attempt", attempt))
				return cbErr
			}

			return err
		}

		// Call callback for successful response
		resp = result.(*openai.ChatCompletion)
		if cbErr := callback(resp, nil); cbErr != nil {
			permanentError := &backoff.PermanentError{}
			if errors.As(cbErr, &permanentError) {
				return backoff.Permanent(fmt.Errorf("permanent callback error: %w", cbErr))
			}
			return cbErr
		}
		return nil
	}

	// Execute with retry
	if err := utils.WithRetry(ctx, operation, options); err != nil {
		if lastErr != nil {
			return fmt.Errorf("all retry attempts failed: %w (last error: %w)", err, lastErr)
		}
		return fmt.Errorf("all retry attempts failed: %w", err)
	}

	return nil
}

// execute performs the request and records rate limit signals under the
// unmapped model name so routing decisions line up with configuration.
func (c *chatCompletions) execute(
	ctx context.Context, originalModel string, params openai.ChatCompletionNewParams,
) (*openai.ChatCompletion, error) {
	var raw *http.Response

	resp, err := c.client.client.Chat.Completions.New(ctx, params, option.WithResponseInto(&raw))

	if raw != nil {
		c.client.tracker.Observe(originalModel, limits.ObservationFromHeaders(raw.Header))
	}

	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			c.client.tracker.MarkLimited(originalModel)
		}
	}

	return resp, err
}

// checkBlockReasons checks if the response was blocked by content filtering.
func (c *chatCompletions) checkBlockReasons(resp *openai.ChatCompletion, model string) error {
	// Check if response is provided
	if resp == nil {
		c.client.logger.Warn("Received nil response", zap.String("model", model))
		return fmt.Errorf("%w: received nil response", utils.ErrContentBlocked)
	}

	// Check if choices are provided
	if len(resp.Choices) == 0 {
		c.client.logger.Warn("Received empty choices", zap.String("model", model))
		return fmt.Errorf("%w: received empty choices", utils.ErrContentBlocked)
	}

	// Check if finish reason is provided
	finishReason := resp.Choices[0].FinishReason
	if finishReason == "" {
		c.client.logger.Warn("No finish reason provided", zap.String("model", model))
		return fmt.Errorf("%w: no finish reason provided", utils.ErrContentBlocked)
	}

	// Map of finish reasons to their error handling
	finishReasonHandlers := map[string]error{
		"content_filter": utils.ErrContentBlocked,
		"stop":           nil,
		"length":         nil,
	}

	err, known := finishReasonHandlers[finishReason]
	if !known {
		c.client.logger.Warn("Unknown finish reason",
			zap.String("model", model),
			zap.String("finishReason", finishReason))
		err = utils.ErrContentBlocked
	}

	if err != nil {
		c.client.logger.Warn("Content blocked",
			zap.String("model", model),
			zap.String("finishReason", finishReason))
		return backoff.Permanent(err)
	}

	return nil
}
