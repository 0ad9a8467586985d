package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"vin_appraisal/internal/sheets"
	"vin_appraisal/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lotCSV = `VIN,Kilometers,Price,Make,Model,Year
1HGCM82633A004352,45000,"$18,900",Honda,Accord,2019
JH4KA8260MC000000,120000,$4500,Acura,Legend,1991
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOGLEVEL", "disabled")
	t.Setenv("NTFY_ENABLED", "false")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeLot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lot.csv")
	require.NoError(t, os.WriteFile(path, []byte(lotCSV), 0o600))
	return path
}

func TestPreview(t *testing.T) {
	out, err := execute(t, "preview", "--sheet", writeLot(t), "--prefixes", "1,2")
	require.NoError(t, err)

	assert.Contains(t, out, "Rows:     2")
	assert.Contains(t, out, "Eligible: 1")
	assert.Contains(t, out, "rejected JH4KA8260MC000000")
	assert.Contains(t, out, "Prefixes: 1,2")
}

func TestPreview_InvalidReference(t *testing.T) {
	_, err := execute(t, "preview", "--sheet", "https://example.com/not-a-sheet")
	assert.ErrorIs(t, err, sheets.ErrInvalidReference)
}

func TestStatus(t *testing.T) {
	worker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/status", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"is_processing": true}`)
	}))
	defer worker.Close()

	out, err := execute(t, "status", "--worker", worker.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "is processing")
}

func TestRun_WritesExports(t *testing.T) {
	worker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/process":
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: {\"type\":\"progress\",\"progress\":0.5,\"message\":\"Halfway\"}\n\n")
			fmt.Fprint(w, "data: {\"type\":\"result\",\"result\":{\"vin\":\"1HGCM82633A004352\",\"export_value_cad\":21500,\"profit\":2600,\"status\":\"PROFIT\"}}\n\n")
			fmt.Fprint(w, "data: {\"type\":\"complete\",\"message\":\"All done\"}\n\n")
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer worker.Close()

	dir := t.TempDir()
	out, err := execute(t, "run",
		"--worker", worker.URL,
		"--sheet", writeLot(t),
		"--prefixes", "1",
		"--email", "dealer@example.com",
		"--password", "secret",
		"--out", dir,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "All done")
	assert.Contains(t, out, "Processed 1, valued 1, without value 0")

	jsonFiles, _ := filepath.Glob(filepath.Join(dir, "vin_appraisal_*.json"))
	csvFiles, _ := filepath.Glob(filepath.Join(dir, "vin_appraisal_*.csv"))
	assert.Len(t, jsonFiles, 1)
	assert.Len(t, csvFiles, 1)
}

func TestSignalStop_DeliversBeforeReturning(t *testing.T) {
	var stops atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/stop", r.URL.Path)
		stops.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	signalStop(ctx, worker.NewClient(srv.URL), time.Second)
	assert.Equal(t, int32(1), stops.Load())
}

func TestSignalStop_UnreachableWorker(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	done := make(chan struct{})
	go func() {
		signalStop(context.Background(), worker.NewClient(url), 200*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("signalStop did not honour its timeout")
	}
}
