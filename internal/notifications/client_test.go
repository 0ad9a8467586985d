package notifications

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"vin_appraisal/internal/results"
	"vin_appraisal/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() retry.Config {
	return retry.Config{
		Name:       "notification",
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Timeout:    time.Second,
	}
}

func TestSendNotification_Disabled(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := NewClient(server.URL, "lot", false, "", testPolicy())
	require.NoError(t, client.SendNotification(context.Background(), "hello"))
	assert.Equal(t, int32(0), calls.Load())
}

func TestSendNotification_PostsToTopic(t *testing.T) {
	var path, body, priority string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		priority = r.Header.Get("Priority")
		data, _ := io.ReadAll(r.Body)
		body = string(data)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "lot-42", true, "high", testPolicy())
	require.NoError(t, client.SendNotification(context.Background(), "run complete"))

	assert.Equal(t, "/lot-42", path)
	assert.Equal(t, "run complete", body)
	assert.Equal(t, "high", priority)

	sent, failed, retries := client.GetMetrics()
	assert.Equal(t, int64(1), sent)
	assert.Equal(t, int64(0), failed)
	assert.Equal(t, int64(0), retries)
}

func TestSendNotification_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "lot", true, "", testPolicy())
	require.NoError(t, client.SendNotification(context.Background(), "x"))
	assert.Equal(t, int32(2), calls.Load())

	_, _, retries := client.GetMetrics()
	assert.Equal(t, int64(1), retries)
}

func TestSendNotification_AuthErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.URL, "lot", true, "", testPolicy())
	err := client.SendNotification(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var notifErr *NotificationError
	require.True(t, errors.As(err, &notifErr))
	assert.Equal(t, "auth", notifErr.Type)
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, "lot", true, "", testPolicy())
	for i := 0; i < 5; i++ {
		_ = client.SendNotification(context.Background(), "x")
	}
	require.Equal(t, int32(5), calls.Load())

	err := client.SendNotification(context.Background(), "x")
	var notifErr *NotificationError
	require.True(t, errors.As(err, &notifErr))
	assert.Equal(t, "circuit_open", notifErr.Type)
	assert.Equal(t, int32(5), calls.Load())
}

func TestFormatRunSummary(t *testing.T) {
	rs := []results.Result{
		{VIN: "1HGCM82633A004352", Year: "2019", Make: "Honda", Model: "Accord", ExportValueCAD: "21500", Profit: "2600"},
		{VIN: "2T1BURHE0JC034567", Year: "2018", Make: "Toyota", Model: "Corolla", ExportValueCAD: "15000", Profit: "-400"},
		{VIN: "5YJ3E1EA7KF317000", Make: "Tesla", ExportValueCAD: "40000", Profit: "$12,000"},
		{VIN: "3FAHP0HA6AR123456", Status: results.StatusNoData},
	}

	msg := FormatRunSummary(RunSummary{Metrics: results.Tally(rs), Results: rs})
	lines := strings.Split(msg, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Appraisal run complete", lines[0])
	assert.Equal(t, "4 processed, 3 valued, 1 without value", lines[1])
	assert.Equal(t, "2 profitable, total $14,600", lines[2])
	assert.Equal(t, "• 5YJ3E1EA7KF317000 Tesla: $12,000", lines[3])
	assert.Equal(t, "• 1HGCM82633A004352 2019 Honda Accord: $2,600", lines[4])
}

func TestFormatRunSummary_StoppedAndFailed(t *testing.T) {
	assert.True(t, strings.HasPrefix(FormatRunSummary(RunSummary{Stopped: true}), "Appraisal run stopped"))
	assert.True(t, strings.HasPrefix(FormatRunSummary(RunSummary{Failure: "connection refused"}), "Appraisal run failed: connection refused"))
}
