package session

import (
	"fmt"
	"time"

	"vin_appraisal/internal/export"
	"vin_appraisal/internal/jobs"
	"vin_appraisal/internal/results"
	"vin_appraisal/internal/vin"
)

// Snapshot is a point-in-time copy of the session view.
type Snapshot struct {
	Reference       string           `json:"reference"`
	State           State            `json:"state"`
	RunID           string           `json:"run_id,omitempty"`
	Headers         []string         `json:"headers"`
	Prefixes        []string         `json:"prefixes"`
	IdentifierField string           `json:"identifier_field"`
	Columns         jobs.ColumnMap   `json:"columns"`
	TotalRows       int              `json:"total_rows"`
	Eligible        []string         `json:"eligible"`
	Rejected        []string         `json:"rejected"`
	Results         []results.Result `json:"results"`
	Logs            []LogEntry       `json:"logs"`
	Progress        float64          `json:"progress"`
	Message         string           `json:"message"`
	Completed       bool             `json:"completed"`
	Metrics         results.Metrics  `json:"metrics"`
}

// File is a rendered export ready to be written or downloaded.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Snapshot returns a copy of the current view state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Reference:       s.reference,
		State:           s.state,
		Headers:         append([]string{}, s.headers...),
		Prefixes:        append([]string{}, s.prefixes.Values()...),
		IdentifierField: s.field,
		Columns:         s.columns,
		TotalRows:       len(s.records),
		Eligible:        make([]string, 0, len(s.accepted)),
		Rejected:        make([]string, 0, len(s.rejected)),
		Results:         append([]results.Result{}, s.results...),
		Logs:            append([]LogEntry{}, s.logs...),
		Progress:        s.progress,
		Message:         s.message,
		Completed:       s.completed,
		Metrics:         results.Tally(s.results),
	}
	if s.state == StateRunning {
		snap.RunID = s.runID.String()
	}
	for _, r := range s.accepted {
		snap.Eligible = append(snap.Eligible, vin.Normalize(r.Get(s.field)))
	}
	for _, r := range s.rejected {
		snap.Rejected = append(snap.Rejected, vin.Normalize(r.Get(s.field)))
	}
	return snap
}

// Metrics tallies the current results.
func (s *Session) Metrics() results.Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return results.Tally(s.results)
}

// ExportJSON renders the structured export.
func (s *Session) ExportJSON(now time.Time) (File, error) {
	rs, err := s.exportable()
	if err != nil {
		return File{}, err
	}
	data, err := export.JSON(rs, now)
	if err != nil {
		return File{}, err
	}
	return File{Name: export.FileName(s.exportPrefix, "json", now), ContentType: "application/json", Data: data}, nil
}

// ExportCSV renders the flat export.
func (s *Session) ExportCSV(now time.Time) (File, error) {
	rs, err := s.exportable()
	if err != nil {
		return File{}, err
	}
	data, err := export.CSV(rs)
	if err != nil {
		return File{}, err
	}
	return File{Name: export.FileName(s.exportPrefix, "csv", now), ContentType: "text/csv", Data: data}, nil
}

// ExportXLSX renders the flat export as a workbook.
func (s *Session) ExportXLSX(now time.Time) (File, error) {
	rs, err := s.exportable()
	if err != nil {
		return File{}, err
	}
	data, err := export.XLSX(rs)
	if err != nil {
		return File{}, err
	}
	return File{
		Name:        export.FileName(s.exportPrefix, "xlsx", now),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        data,
	}, nil
}

func (s *Session) exportable() ([]results.Result, error) {
	rs := s.Results()
	if len(rs) == 0 {
		return nil, fmt.Errorf("cannot export: %w", ErrNoResults)
	}
	return rs, nil
}
