package aco

import (
	"fmt"
	"io"
)

// EventKind discriminates trace events. The string values are part of the
// wire format published to stream subscribers; do not rename.
type EventKind string

const (
	EventAntStarted      EventKind = "AntStarted"
	EventStepStarted     EventKind = "StepStarted"
	EventCandidateScored EventKind = "CandidateScored"
	EventRandomDrawn     EventKind = "RandomDrawn"
	EventCitySelected    EventKind = "CitySelected"
	EventPathCompleted   EventKind = "PathCompleted"
	EventPathScored      EventKind = "PathScored"
	EventEdgeUpdated     EventKind = "EdgeUpdated"
)

// Event is a single step of the iteration computation. Only the fields
// relevant to Kind are populated:
//
//	AntStarted      Ant, To (start city)
//	StepStarted     Ant, Step, From (current city)
//	CandidateScored Ant, From, To, Weight, Probability
//	RandomDrawn     Ant, Value (the uniform draw)
//	CitySelected    Ant, To
//	PathCompleted   Ant, Path
//	PathScored      Ant, Path, Cost
//	EdgeUpdated     From, To, Evaporated, Deposits, Value
type Event struct {
	Kind        EventKind `json:"kind"`
	Ant         int       `json:"ant"`
	Step        int       `json:"step,omitempty"`
	From        int       `json:"from,omitempty"`
	To          int       `json:"to,omitempty"`
	Weight      float64   `json:"weight,omitempty"`
	Probability float64   `json:"probability,omitempty"`
	Value       float64   `json:"value,omitempty"`
	Evaporated  float64   `json:"evaporated,omitempty"`
	Path        []int     `json:"path,omitempty"`
	Cost        float64   `json:"cost,omitempty"`
	Deposits    []float64 `json:"deposits,omitempty"`
}

// Sink accepts trace events during an iteration. A non-nil error aborts the
// iteration in progress and propagates to the RunIteration caller.
type Sink interface {
	Write(Event) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Write(Event) error { return nil }

// MultiSink fans every event out to each sink in order, stopping at the
// first error.
type MultiSink []Sink

func (m MultiSink) Write(ev Event) error {
	for _, s := range m {
		if err := s.Write(ev); err != nil {
			return err
		}
	}
	return nil
}

// TextSink renders events as human-readable trace text onto an io.Writer.
// Write failures are reported wrapped in ErrSinkWrite.
type TextSink struct {
	w io.Writer
}

func NewTextSink(w io.Writer) *TextSink { return &TextSink{w: w} }

func (t *TextSink) Write(ev Event) error {
	var err error
	switch ev.Kind {
	case EventAntStarted:
		_, err = fmt.Fprintf(t.w, "Ant %d\nStart city: %s\n", ev.Ant+1, Label(ev.To))
	case EventStepStarted:
		_, err = fmt.Fprintf(t.w, "Step %d from %s\n", ev.Step, Label(ev.From))
	case EventCandidateScored:
		_, err = fmt.Fprintf(t.w, "%s -> %s: weight = %v, prob = %v\n",
			Label(ev.From), Label(ev.To), ev.Weight, ev.Probability)
	case EventRandomDrawn:
		_, err = fmt.Fprintf(t.w, "Random number: %v\n", ev.Value)
	case EventCitySelected:
		_, err = fmt.Fprintf(t.w, "Next city: %s\n\n", Label(ev.To))
	case EventPathCompleted:
		_, err = fmt.Fprintf(t.w, "Path of ant %d: %s\n---\n", ev.Ant+1, PathLabel(ev.Path))
	case EventPathScored:
		_, err = fmt.Fprintf(t.w, "Ant %d: %s (cost: %v)\n", ev.Ant+1, PathLabel(ev.Path), ev.Cost)
	case EventEdgeUpdated:
		_, err = fmt.Fprintf(t.w, "%s -> %s: pheromone = %v ", Label(ev.From), Label(ev.To), ev.Evaporated)
		if err == nil {
			for _, d := range ev.Deposits {
				if _, err = fmt.Fprintf(t.w, "+ %v ", d); err != nil {
					break
				}
			}
		}
		if err == nil {
			_, err = fmt.Fprintf(t.w, "= %v\n", ev.Value)
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSinkWrite, err)
	}
	return nil
}
