package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

// Summary counts what a Consume call saw.
type Summary struct {
	Lines     int
	Events    int
	Results   int
	Malformed int
	Ignored   int
	Completed bool
}

// Consume reads the feed until EOF and dispatches every marker line to obs.
// Lines split across reads are reassembled before dispatch. Malformed lines are
// logged and skipped. An error is returned only for transport failure or
// cancellation of ctx; events never end consumption.
func Consume(ctx context.Context, body io.Reader, obs Observer) (Summary, error) {
	var summary Summary
	reader := bufio.NewReader(body)

	for {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("stream cancelled: %w", err)
		}

		line, readErr := reader.ReadString('\n')
		if line != "" {
			summary.Lines++
			dispatchLine(strings.TrimRight(line, "\r\n"), obs, &summary)
		}

		if errors.Is(readErr, io.EOF) {
			log.Debug().
				Int("lines", summary.Lines).
				Int("events", summary.Events).
				Int("results", summary.Results).
				Int("malformed", summary.Malformed).
				Msg("Stream ended")
			return summary, nil
		}
		if readErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, fmt.Errorf("stream cancelled: %w", ctxErr)
			}
			return summary, fmt.Errorf("failed to read stream: %w", readErr)
		}
	}
}

func dispatchLine(line string, obs Observer, summary *Summary) {
	payload, ok := strings.CutPrefix(line, Marker)
	if !ok {
		return
	}

	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		summary.Malformed++
		log.Warn().Err(err).Str("line", truncate(payload, 200)).Msg("Failed to decode stream event")
		return
	}
	summary.Events++

	switch ev.Type {
	case TypeProgress:
		fraction := 0.0
		if ev.Progress != nil {
			fraction = clamp(*ev.Progress)
		}
		obs.OnProgress(fraction, ev.Message)
	case TypeLog:
		obs.OnLog(ev.Level, ev.Message)
	case TypeResult:
		if ev.Result == nil {
			summary.Malformed++
			log.Warn().Msg("Result event without a result payload")
			return
		}
		summary.Results++
		obs.OnResult(*ev.Result)
	case TypeComplete:
		summary.Completed = true
		obs.OnComplete(ev.Message)
	case TypeError:
		obs.OnError(ev.Message)
	default:
		summary.Ignored++
		log.Debug().Str("type", ev.Type).Msg("Ignoring unknown event type")
	}
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
