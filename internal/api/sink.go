package api

import (
	"antsys/internal/aco"
	"antsys/internal/metrics"
)

// brokerSink forwards iteration trace events to colony stream subscribers.
// Event types on the wire are "trace." plus the event kind, e.g.
// "trace.CitySelected". Publishing never fails, so the iteration is never
// aborted by a slow or absent subscriber.
type brokerSink struct {
	broker   EventBroker
	colonyID string
}

func (b brokerSink) Write(ev aco.Event) error {
	metrics.TraceEvents.WithLabelValues(string(ev.Kind)).Inc()
	b.broker.Publish(b.colonyID, SSEEvent{Type: "trace." + string(ev.Kind), Data: ev})
	return nil
}
