package notifications

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"vin_appraisal/internal/export"
	"vin_appraisal/internal/results"
	"vin_appraisal/internal/retry"

	"github.com/rs/zerolog/log"
)

// maxListed caps how many vehicles a summary names.
const maxListed = 5

type Client struct {
	httpClient *http.Client
	baseURL    string
	topic      string
	enabled    bool
	priority   string
	policy     retry.Config
	// Circuit breaker state
	failures    int
	lastFailure time.Time
	circuitOpen bool
	mutex       sync.Mutex
	// Metrics
	totalSent    int64
	totalFailed  int64
	totalRetries int64
}

// RunSummary describes how an appraisal run ended.
type RunSummary struct {
	Metrics results.Metrics
	Results []results.Result
	Stopped bool
	Failure string
}

type NotificationError struct {
	Type       string
	StatusCode int
	Attempt    int
	Underlying error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed [%s] attempt %d: %v", e.Type, e.Attempt, e.Underlying)
}

func (e *NotificationError) Unwrap() error {
	return e.Underlying
}

func (e *NotificationError) IsRetryable() bool {
	switch e.Type {
	case "network", "server", "timeout", "rate_limit":
		return true
	case "auth", "client", "circuit_open":
		return false
	default:
		return e.StatusCode >= 500
	}
}

func NewClient(baseURL, topic string, enabled bool, priority string, policy retry.Config) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:  strings.TrimRight(baseURL, "/"),
		topic:    topic,
		enabled:  enabled,
		priority: priority,
		policy:   policy,
	}
	c.policy.Retryable = func(err error) bool {
		var notifErr *NotificationError
		if errors.As(err, &notifErr) {
			return notifErr.IsRetryable()
		}
		return true
	}
	return c
}

// Enabled reports whether messages are actually sent.
func (c *Client) Enabled() bool {
	return c.enabled
}

func (c *Client) SendNotification(ctx context.Context, message string) error {
	if !c.enabled {
		log.Debug().Msg("Notifications disabled, skipping")
		return nil
	}

	if c.isCircuitOpen() {
		log.Warn().Msg("Circuit breaker open, skipping notification")
		return &NotificationError{
			Type:       "circuit_open",
			Underlying: fmt.Errorf("circuit breaker is open"),
		}
	}

	attempt := 0
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			c.incrementRetries()
		}
		return c.sendSingleNotification(ctx, message, attempt)
	})
	if err != nil {
		c.recordFailure()
		log.Warn().Err(err).Int("attempts", attempt).Msg("Notification failed")
		return err
	}

	c.recordSuccess()
	return nil
}

func (c *Client) sendSingleNotification(ctx context.Context, message string, attempt int) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, c.topic)

	log.Debug().
		Str("url", url).
		Int("attempt", attempt).
		Msg("Sending notification")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(message))
	if err != nil {
		return &NotificationError{
			Type:       "client",
			Attempt:    attempt,
			Underlying: err,
		}
	}

	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Title", "VIN appraisal")
	if c.priority != "" {
		req.Header.Set("Priority", c.priority)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NotificationError{
			Type:       "network",
			Attempt:    attempt,
			Underlying: err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &NotificationError{
			Type:       categorizeHTTPError(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Attempt:    attempt,
			Underlying: fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
		}
	}

	log.Debug().
		Int("status_code", resp.StatusCode).
		Int("attempt", attempt).
		Msg("Notification sent successfully")

	return nil
}

func (c *Client) SendNotificationAsync(ctx context.Context, message string) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := c.SendNotification(ctx, message); err != nil {
			log.Warn().Err(err).Msg("Async notification failed")
		}
	}()
}

// NotifyRunSummary announces the end of a run. It does not block.
func (c *Client) NotifyRunSummary(ctx context.Context, summary RunSummary) {
	if !c.enabled {
		return
	}

	log.Info().
		Int("processed", summary.Metrics.Processed).
		Int("success", summary.Metrics.Success).
		Bool("stopped", summary.Stopped).
		Msg("Sending run summary notification")

	c.SendNotificationAsync(ctx, FormatRunSummary(summary))
}

// FormatRunSummary renders the summary message body.
func FormatRunSummary(summary RunSummary) string {
	var sb strings.Builder

	switch {
	case summary.Failure != "":
		sb.WriteString(fmt.Sprintf("Appraisal run failed: %s\n", summary.Failure))
	case summary.Stopped:
		sb.WriteString("Appraisal run stopped\n")
	default:
		sb.WriteString("Appraisal run complete\n")
	}

	m := summary.Metrics
	sb.WriteString(fmt.Sprintf("%d processed, %d valued, %d without value\n", m.Processed, m.Success, m.Errors))

	winners := profitable(summary.Results)
	if len(winners) > 0 {
		var total float64
		for _, r := range winners {
			total += profitOf(r)
		}
		sb.WriteString(fmt.Sprintf("%d profitable, total %s\n", len(winners), export.Currency(total)))

		for i, r := range winners {
			if i == maxListed {
				sb.WriteString(fmt.Sprintf("... and %d more\n", len(winners)-maxListed))
				break
			}
			sb.WriteString(fmt.Sprintf("• %s %s: %s\n", r.VIN, vehicleName(r), export.Currency(profitOf(r))))
		}
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

// profitable returns valued results with positive profit, best first.
func profitable(rs []results.Result) []results.Result {
	var out []results.Result
	for _, r := range rs {
		if results.Succeeded(r) && profitOf(r) > 0 {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return profitOf(out[i]) > profitOf(out[j])
	})
	return out
}

func profitOf(r results.Result) float64 {
	v, _ := r.Profit.Float()
	return v
}

func vehicleName(r results.Result) string {
	var parts []string
	for _, p := range []results.Text{r.Year, r.Make, r.Model} {
		if s := strings.TrimSpace(p.String()); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "(unknown vehicle)"
	}
	return strings.Join(parts, " ")
}

// Circuit breaker helpers

func (c *Client) isCircuitOpen() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.circuitOpen {
		return false
	}

	// half-open after 30s
	if time.Since(c.lastFailure) > 30*time.Second {
		c.circuitOpen = false
		c.failures = 0
		log.Info().Msg("Circuit breaker moving to half-open state")
	}

	return c.circuitOpen
}

func (c *Client) recordSuccess() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.totalSent++
	c.failures = 0
	if c.circuitOpen {
		c.circuitOpen = false
		log.Info().Msg("Circuit breaker closed after successful notification")
	}
}

func (c *Client) recordFailure() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.totalFailed++
	c.failures++
	c.lastFailure = time.Now()

	if c.failures >= 5 && !c.circuitOpen {
		c.circuitOpen = true
		log.Warn().
			Int("failures", c.failures).
			Msg("Circuit breaker opened due to consecutive failures")
	}
}

func (c *Client) incrementRetries() {
	c.mutex.Lock()
	c.totalRetries++
	c.mutex.Unlock()
}

func categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == 401 || statusCode == 403:
		return "auth"
	case statusCode == 429:
		return "rate_limit"
	case statusCode >= 400 && statusCode < 500:
		return "client"
	case statusCode >= 500:
		return "server"
	default:
		return "unknown"
	}
}

// GetMetrics returns current notification metrics
func (c *Client) GetMetrics() (sent, failed, retries int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.totalSent, c.totalFailed, c.totalRetries
}
