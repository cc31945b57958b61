// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stream defines the incremental research events and their line
// protocol. Each event is one JSON object on a line prefixed with "data: "
// and followed by a blank line. Consumers skip lines they cannot decode.
package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/insight-engine/pkg/types"
)

// EventType discriminates the events of a run.
type EventType string

const (
	TypeInsight  EventType = "insight"
	TypeProgress EventType = "progress"
	TypeDone     EventType = "done"
)

const linePrefix = "data: "

// Event is the union of all wire events. Only the fields of its Type are set.
type Event struct {
	Type EventType `json:"type"`

	// insight
	Insight *types.Insight `json:"insight,omitempty"`
	Seq     int            `json:"seq,omitempty"`

	// progress
	Completed     int `json:"completed,omitempty"`
	Total         int `json:"total,omitempty"`
	InsightsCount int `json:"insightsCount,omitempty"`

	// done
	TotalInsights int `json:"totalInsights,omitempty"`

	TotalSources int    `json:"totalSources"`
	RunID        string `json:"runId,omitempty"`
}

// InsightEvent carries one insight and the running source count. seq is the
// run's emission index starting at 1.
func InsightEvent(ins types.Insight, totalSources, seq int) Event {
	return Event{Type: TypeInsight, Insight: &ins, TotalSources: totalSources, Seq: seq}
}

// ProgressEvent summarizes the categories completed so far.
func ProgressEvent(completed, total, insights, totalSources int, runID string) Event {
	return Event{
		Type:          TypeProgress,
		Completed:     completed,
		Total:         total,
		InsightsCount: insights,
		TotalSources:  totalSources,
		RunID:         runID,
	}
}

// DoneEvent is the terminal event of a run.
func DoneEvent(totalInsights, totalSources int, runID string) Event {
	return Event{Type: TypeDone, TotalInsights: totalInsights, TotalSources: totalSources, RunID: runID}
}

// MarshalJSON writes the progress and done counters even when zero; a done
// event reporting zero insights is a valid outcome.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case TypeInsight:
		return json.Marshal(struct {
			Type         EventType      `json:"type"`
			Insight      *types.Insight `json:"insight"`
			TotalSources int            `json:"totalSources"`
			Seq          int            `json:"seq"`
		}{e.Type, e.Insight, e.TotalSources, e.Seq})
	case TypeProgress:
		return json.Marshal(struct {
			Type          EventType `json:"type"`
			Completed     int       `json:"completed"`
			Total         int       `json:"total"`
			InsightsCount int       `json:"insightsCount"`
			TotalSources  int       `json:"totalSources"`
			RunID         string    `json:"runId,omitempty"`
		}{e.Type, e.Completed, e.Total, e.InsightsCount, e.TotalSources, e.RunID})
	case TypeDone:
		return json.Marshal(struct {
			Type          EventType `json:"type"`
			TotalInsights int       `json:"totalInsights"`
			TotalSources  int       `json:"totalSources"`
			RunID         string    `json:"runId,omitempty"`
		}{e.Type, e.TotalInsights, e.TotalSources, e.RunID})
	}
	return nil, fmt.Errorf("unknown event type %q", e.Type)
}

// Flusher is implemented by writers that buffer, such as http.ResponseWriter.
type Flusher interface {
	Flush()
}

// Encoder writes events to w, flushing after each one when w supports it.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder { return &Encoder{w: w} }

// Encode writes one event line.
func (e *Encoder) Encode(ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", ev.Type, err)
	}
	if _, err := fmt.Fprintf(e.w, "%s%s\n\n", linePrefix, b); err != nil {
		return err
	}
	if f, ok := e.w.(Flusher); ok {
		f.Flush()
	}
	return nil
}

// ErrDone is returned by Decoder.Next after the terminal event has been read.
var ErrDone = errors.New("stream: done")

// Decoder reads events, skipping blank, unprefixed, malformed and
// unknown-type lines.
type Decoder struct {
	sc   *bufio.Scanner
	done bool
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Decoder{sc: sc}
}

// Next returns the next valid event. It returns ErrDone once a done event has
// been returned, and io.EOF if the stream ends without one.
func (d *Decoder) Next() (Event, error) {
	if d.done {
		return Event{}, ErrDone
	}
	for d.sc.Scan() {
		ev, ok := parseLine(d.sc.Text())
		if !ok {
			continue
		}
		if ev.Type == TypeDone {
			d.done = true
		}
		return ev, nil
	}
	if err := d.sc.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}

func parseLine(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, strings.TrimSpace(linePrefix)) {
		return Event{}, false
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, false
	}
	switch ev.Type {
	case TypeInsight:
		if ev.Insight == nil {
			return Event{}, false
		}
	case TypeProgress, TypeDone:
	default:
		return Event{}, false
	}
	return ev, true
}
