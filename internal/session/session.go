package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"vin_appraisal/internal/jobs"
	"vin_appraisal/internal/notifications"
	"vin_appraisal/internal/results"
	"vin_appraisal/internal/tabular"
	"vin_appraisal/internal/vin"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrBusy           = errors.New("processing already in progress")
	ErrNoRows         = errors.New("no rows found in sheet")
	ErrNoEligibleRows = errors.New("no rows match the active VIN prefixes")
	ErrNoResults      = errors.New("no results to export")
	ErrWorkerBusy     = errors.New("worker is already processing a batch")
)

// StopMessage is logged when the user ends a run.
const StopMessage = "Processing stopped by user"

// State tags whether a run is active.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Source fetches the raw delimited text behind a sheet reference.
type Source interface {
	Fetch(ctx context.Context, ref string) (string, error)
}

// Worker submits batches and relays stop requests to the valuation worker.
type Worker interface {
	Submit(ctx context.Context, batch jobs.Batch) (io.ReadCloser, error)
	Stop(ctx context.Context)
}

// Notifier is told how each run ended.
type Notifier interface {
	NotifyRunSummary(ctx context.Context, summary notifications.RunSummary)
}

// LogEntry is one line of the session log view.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// Options configure a new Session. Zero values fall back to defaults.
type Options struct {
	Prefixes        []string
	IdentifierField string
	Columns         jobs.ColumnMap
	ExportPrefix    string
	Notifier        Notifier
}

// RunConfig is read at submission time.
type RunConfig struct {
	Credentials jobs.Credentials
	Options     jobs.Options
}

// Session owns all state of one appraisal workspace. User actions and the
// stream consumer of the active run are its only writers.
type Session struct {
	mu sync.Mutex

	source   Source
	worker   Worker
	notifier Notifier

	exportPrefix string

	// starting selection restored by Clear
	initPrefixes *vin.PrefixSet
	initField    string
	initColumns  jobs.ColumnMap

	reference string
	records   []tabular.Record
	headers   []string

	prefixes *vin.PrefixSet
	field    string
	columns  jobs.ColumnMap
	accepted []tabular.Record
	rejected []tabular.Record

	results   []results.Result
	logs      []LogEntry
	progress  float64
	message   string
	completed bool

	state  State
	runID  uuid.UUID
	cancel context.CancelFunc
}

func New(source Source, worker Worker, opts Options) *Session {
	prefixes := vin.NewPrefixSet(opts.Prefixes...)
	if opts.Prefixes == nil {
		prefixes = vin.ParsePrefixes("1,2,3,4,5")
	}
	field := strings.ToLower(strings.TrimSpace(opts.IdentifierField))
	if field == "" {
		field = "vin"
	}
	columns := opts.Columns
	if columns.VIN == "" {
		columns.VIN = field
	}
	exportPrefix := opts.ExportPrefix
	if exportPrefix == "" {
		exportPrefix = "vin_appraisal"
	}

	columns = columns.WithDefaults()

	return &Session{
		source:       source,
		worker:       worker,
		notifier:     opts.Notifier,
		exportPrefix: exportPrefix,
		initPrefixes: prefixes.Clone(),
		initField:    field,
		initColumns:  columns,
		prefixes:     prefixes,
		field:        field,
		columns:      columns,
		state:        StateIdle,
	}
}

// Load fetches and parses the sheet behind ref, then re-partitions it.
func (s *Session) Load(ctx context.Context, ref string) error {
	if s.State() == StateRunning {
		return ErrBusy
	}

	text, err := s.source.Fetch(ctx, ref)
	if err != nil {
		s.mu.Lock()
		s.message = err.Error()
		s.appendLog("error", fmt.Sprintf("Failed to load sheet: %v", err))
		s.mu.Unlock()
		return fmt.Errorf("failed to load sheet: %w", err)
	}

	records := tabular.Parse(text)
	if len(records) == 0 {
		s.mu.Lock()
		s.message = ErrNoRows.Error()
		s.mu.Unlock()
		return ErrNoRows
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		return ErrBusy
	}
	s.reference = ref
	s.records = records
	s.headers = tabular.Headers(text)
	s.repartition()
	s.message = fmt.Sprintf("Loaded %d rows, %d eligible", len(records), len(s.accepted))
	s.appendLog("info", s.message)

	log.Info().
		Int("rows", len(records)).
		Int("eligible", len(s.accepted)).
		Int("columns", len(s.headers)).
		Msg("Loaded sheet")

	return nil
}

// SetPrefixes replaces the prefix set.
func (s *Session) SetPrefixes(prefixes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefixes = vin.NewPrefixSet(prefixes...)
	s.repartition()
}

// TogglePrefix flips one prefix and reports whether it is now active.
func (s *Session) TogglePrefix(prefix string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := s.prefixes.Toggle(prefix)
	s.repartition()
	return active
}

// SetIdentifierField changes which column holds the VIN.
func (s *Session) SetIdentifierField(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	field = strings.ToLower(strings.TrimSpace(field))
	if field == "" {
		field = "vin"
	}
	s.field = field
	s.columns.VIN = field
	s.repartition()
}

// SetColumns replaces the column mapping. The VIN column also becomes the identifier field.
func (s *Session) SetColumns(columns jobs.ColumnMap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.columns = columns.WithDefaults()
	s.field = strings.ToLower(strings.TrimSpace(s.columns.VIN))
	s.repartition()
}

// repartition derives accepted and rejected from the stored records only.
// Callers hold mu.
func (s *Session) repartition() {
	s.accepted, s.rejected = vin.Partition(s.records, s.field, s.prefixes)
}

// Start submits the eligible rows and consumes the worker's event stream on
// a new goroutine. The run outlives ctx; Stop ends it.
func (s *Session) Start(ctx context.Context, cfg RunConfig) (*Run, error) {
	s.mu.Lock()

	if s.state == StateRunning {
		s.message = ErrBusy.Error()
		s.appendLog("warning", s.message)
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if len(s.accepted) == 0 {
		s.message = ErrNoEligibleRows.Error()
		s.mu.Unlock()
		return nil, ErrNoEligibleRows
	}

	batch := jobs.Build(s.accepted, s.columns, cfg.Credentials, cfg.Options)
	if err := jobs.Validate(batch); err != nil {
		s.message = err.Error()
		s.appendLog("error", s.message)
		s.mu.Unlock()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	run := newRun(uuid.New())

	s.results = nil
	s.progress = 0
	s.completed = false
	s.state = StateRunning
	s.runID = run.ID
	s.cancel = cancel
	s.message = fmt.Sprintf("Submitting %d vehicles", len(batch.ValidRows))
	s.appendLog("info", s.message)
	s.mu.Unlock()

	log.Info().
		Str("run_id", run.ID.String()).
		Int("rows", len(batch.ValidRows)).
		Bool("headless", batch.Headless).
		Msg("Starting appraisal run")

	go s.execute(runCtx, run, batch)
	return run, nil
}

// Stop ends the active run. The worker is asked to halt without waiting for
// an answer and the session is idle when Stop returns. It reports whether a
// run was active.
func (s *Session) Stop(ctx context.Context) bool {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return false
	}

	cancel := s.cancel
	runID := s.runID
	s.state = StateIdle
	s.cancel = nil
	s.message = StopMessage
	s.appendLog("warning", StopMessage)
	summary := s.summaryLocked(true, "")
	s.mu.Unlock()

	log.Info().Str("run_id", runID.String()).Msg("Stopping appraisal run")

	s.worker.Stop(ctx)
	if cancel != nil {
		cancel()
	}
	s.notify(ctx, summary)
	return true
}

// Clear stops any active run and resets the session to how New left it.
func (s *Session) Clear(ctx context.Context) {
	s.Stop(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefixes = s.initPrefixes.Clone()
	s.field = s.initField
	s.columns = s.initColumns
	s.reference = ""
	s.records = nil
	s.headers = nil
	s.accepted = nil
	s.rejected = nil
	s.results = nil
	s.logs = nil
	s.progress = 0
	s.message = ""
	s.completed = false

	log.Debug().Msg("Cleared session")
}

// State returns the current state tag.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Eligible returns copies of the accepted and rejected records.
func (s *Session) Eligible() (accepted, rejected []tabular.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tabular.Record(nil), s.accepted...), append([]tabular.Record(nil), s.rejected...)
}

// Results returns a copy of the result collection in arrival order.
func (s *Session) Results() []results.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]results.Result(nil), s.results...)
}

// appendLog adds to the session log. Callers hold mu.
func (s *Session) appendLog(level, message string) {
	if level == "" {
		level = "info"
	}
	s.logs = append(s.logs, LogEntry{
		Time:    time.Now(),
		Level:   level,
		Message: message,
	})
}

func (s *Session) summaryLocked(stopped bool, failure string) notifications.RunSummary {
	rs := append([]results.Result(nil), s.results...)
	return notifications.RunSummary{
		Metrics: results.Tally(rs),
		Results: rs,
		Stopped: stopped,
		Failure: failure,
	}
}

func (s *Session) notify(ctx context.Context, summary notifications.RunSummary) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyRunSummary(ctx, summary)
}
