package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"vin_appraisal/internal/config"
	"vin_appraisal/internal/jobs"
	"vin_appraisal/internal/retry"

	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is where the valuation worker listens by default.
const DefaultBaseURL = "http://localhost:8000"

// Client talks to the valuation worker.
type Client struct {
	baseURL string
	// stream carries the long-lived submission response and has no overall timeout.
	stream *http.Client
	// control carries the short stop and status calls.
	control *http.Client

	stopPolicy   retry.Config
	statusPolicy retry.Config

	callCount atomic.Int64
}

type statusResponse struct {
	IsProcessing bool `json:"is_processing"`
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	stopPolicy := config.DefaultResilienceConfig.StopSignal
	stopPolicy.Retryable = IsRetryable
	statusPolicy := config.DefaultResilienceConfig.WorkerStatus
	statusPolicy.Retryable = IsRetryable

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		stream:  &http.Client{},
		control: &http.Client{
			Timeout: 10 * time.Second,
		},
		stopPolicy:   stopPolicy,
		statusPolicy: statusPolicy,
	}
}

// WithStopPolicy replaces the retry policy of the stop signal.
func (c *Client) WithStopPolicy(policy retry.Config) *Client {
	if policy.Retryable == nil {
		policy.Retryable = IsRetryable
	}
	c.stopPolicy = policy
	return c
}

// CallCount returns how many requests the client has issued.
func (c *Client) CallCount() int64 {
	return c.callCount.Load()
}

// Submit posts a batch and returns the event stream body. The caller closes it.
// Submission is never retried.
func (c *Client) Submit(ctx context.Context, batch jobs.Batch) (io.ReadCloser, error) {
	payload, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch: %w", err)
	}

	url := c.baseURL + "/api/process"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	log.Debug().
		Str("url", url).
		Int("rows", len(batch.ValidRows)).
		Bool("headless", batch.Headless).
		Msg("Submitting batch to worker")

	c.callCount.Add(1)
	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit batch: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, newError("submit", resp)
	}

	log.Debug().
		Int("status_code", resp.StatusCode).
		Str("content_type", resp.Header.Get("Content-Type")).
		Msg("Worker accepted batch")

	return resp.Body, nil
}

// Stop asks the worker to halt its current run and returns at once.
// The request is retried in the background; failures are only logged.
func (c *Client) Stop(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := c.SignalStop(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to deliver stop signal to worker")
		}
	}()
}

// SignalStop posts the stop request and waits for the outcome.
func (c *Client) SignalStop(ctx context.Context) error {
	return retry.Do(ctx, c.stopPolicy, func(ctx context.Context) error {
		url := c.baseURL + "/api/stop"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w: %w", err, retry.ErrPermanent)
		}

		c.callCount.Add(1)
		resp, err := c.control.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send stop signal: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 400 {
			return newError("stop", resp)
		}

		log.Debug().Int("status_code", resp.StatusCode).Msg("Worker acknowledged stop signal")
		return nil
	})
}

// Status reports whether the worker is currently processing a batch.
func (c *Client) Status(ctx context.Context) (bool, error) {
	return retry.WithRetry(ctx, c.statusPolicy, func(ctx context.Context) (bool, error) {
		url := c.baseURL + "/api/status"
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false, fmt.Errorf("failed to create request: %w: %w", err, retry.ErrPermanent)
		}

		c.callCount.Add(1)
		resp, err := c.control.Do(req)
		if err != nil {
			return false, fmt.Errorf("failed to make request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return false, newError("status", resp)
		}

		var status statusResponse
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return false, fmt.Errorf("failed to decode response: %w", err)
		}
		return status.IsProcessing, nil
	})
}

// IsRetryable reports whether err is worth another attempt.
// Worker errors decide by status; anything else is treated as transient.
func IsRetryable(err error) bool {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.IsRetryable()
	}
	return true
}
