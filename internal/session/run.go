package session

import (
	"context"
	"errors"
	"fmt"

	"vin_appraisal/internal/jobs"
	"vin_appraisal/internal/results"
	"vin_appraisal/internal/stream"
	"vin_appraisal/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Run is one submission and its event stream.
type Run struct {
	ID uuid.UUID

	done    chan struct{}
	err     error
	summary stream.Summary
}

func newRun(id uuid.UUID) *Run {
	return &Run{ID: id, done: make(chan struct{})}
}

// Done is closed when the run's stream has been fully consumed or abandoned.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run ends and returns its transport error, if any.
// A run ended by Stop returns the cancellation error.
func (r *Run) Wait() error {
	<-r.done
	return r.err
}

// Summary returns the consumer's line counts. Valid after Done is closed.
func (r *Run) Summary() stream.Summary {
	<-r.done
	return r.summary
}

func (s *Session) execute(ctx context.Context, run *Run, batch jobs.Batch) {
	defer close(run.done)

	body, err := s.worker.Submit(ctx, batch)
	if err != nil {
		run.err = submitError(err)
		s.finish(ctx, run.ID, run.err)
		return
	}
	defer body.Close()

	// unblock a pending read once the run is cancelled
	stopClosing := context.AfterFunc(ctx, func() { body.Close() })
	defer stopClosing()

	run.summary, run.err = stream.Consume(ctx, body, &observer{s: s, runID: run.ID})

	log.Debug().
		Str("run_id", run.ID.String()).
		Int("lines", run.summary.Lines).
		Int("events", run.summary.Events).
		Int("results", run.summary.Results).
		Int("malformed", run.summary.Malformed).
		Msg("Event stream ended")

	s.finish(ctx, run.ID, run.err)
}

// finish returns the session to idle after the stream ends. Runs already
// stopped by the user are left alone.
func (s *Session) finish(ctx context.Context, runID uuid.UUID, err error) {
	s.mu.Lock()
	if s.runID != runID || s.state != StateRunning {
		s.mu.Unlock()
		return
	}

	s.state = StateIdle
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	failure := ""
	switch {
	case err != nil:
		failure = failureMessage(err)
		s.message = failure
		s.appendLog("error", fmt.Sprintf("Stream error: %s", failure))
	case !s.completed:
		s.message = "Stream ended before completion"
		s.appendLog("warning", s.message)
	}
	summary := s.summaryLocked(false, failure)
	s.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("run_id", runID.String()).Msg("Appraisal run failed")
	} else {
		log.Info().
			Str("run_id", runID.String()).
			Int("processed", summary.Metrics.Processed).
			Int("success", summary.Metrics.Success).
			Msg("Appraisal run finished")
	}

	s.notify(context.WithoutCancel(ctx), summary)
}

// submitError marks a refusal from a worker that is already running a batch.
func submitError(err error) error {
	var werr *worker.Error
	if errors.As(err, &werr) && werr.Busy() {
		return fmt.Errorf("failed to submit batch: %w: %w", ErrWorkerBusy, err)
	}
	return fmt.Errorf("failed to submit batch: %w", err)
}

// failureMessage prefers the worker's own error text over the raw response.
func failureMessage(err error) string {
	var werr *worker.Error
	if !errors.As(err, &werr) {
		return err.Error()
	}
	msg := werr.Message()
	if msg == "" {
		msg = werr.Error()
	}
	if werr.Busy() {
		return fmt.Sprintf("%s: %s", ErrWorkerBusy.Error(), msg)
	}
	return msg
}

// observer applies stream events to the session while its run is current.
type observer struct {
	s     *Session
	runID uuid.UUID
}

// apply runs fn under the session lock if the run is still the active one.
func (o *observer) apply(fn func(s *Session)) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if o.s.runID != o.runID || o.s.state != StateRunning {
		log.Debug().Str("run_id", o.runID.String()).Msg("Dropping event from inactive run")
		return
	}
	fn(o.s)
}

func (o *observer) OnProgress(fraction float64, message string) {
	o.apply(func(s *Session) {
		s.progress = fraction
		if message != "" {
			s.message = message
		}
	})
}

func (o *observer) OnLog(level, message string) {
	o.apply(func(s *Session) {
		s.appendLog(level, message)
	})
}

func (o *observer) OnResult(r results.Result) {
	o.apply(func(s *Session) {
		s.results = append(s.results, r)
	})
}

func (o *observer) OnComplete(message string) {
	o.apply(func(s *Session) {
		s.completed = true
		s.progress = 1
		if message == "" {
			message = "Processing complete"
		}
		s.message = message
		s.appendLog("success", message)
	})
}

func (o *observer) OnError(message string) {
	o.apply(func(s *Session) {
		s.appendLog("error", message)
	})
}
