package config

import (
	"time"

	"vin_appraisal/internal/retry"
)

// ResilienceConfig holds the retry policies for the calls that may repeat.
// Batch submission is never retried; a repeated submit would start a second run.
type ResilienceConfig struct {
	StopSignal   retry.Config
	WorkerStatus retry.Config
	Notify       retry.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	StopSignal: retry.Config{
		Name:       "stop signal",
		MaxRetries: 3,
		BaseDelay:  250 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Timeout:    5 * time.Second,
	},
	WorkerStatus: retry.Config{
		Name:       "worker status",
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Timeout:    5 * time.Second,
	},
	Notify: retry.Config{
		Name:       "notification",
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   10 * time.Second,
		Timeout:    10 * time.Second,
	},
}
