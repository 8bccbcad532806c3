package api

import (
	"sync"
)

// SSEEvent is one event published to colony stream subscribers. Data is any
// JSON-marshalable value; trace events carry an aco.Event here.
type SSEEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan SSEEvent]struct{} // colonyId -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan SSEEvent]struct{}{}}
}

func (b *Broker) Subscribe(colonyID string) chan SSEEvent {
	ch := make(chan SSEEvent, 64)
	b.mu.Lock()
	if b.subs[colonyID] == nil {
		b.subs[colonyID] = map[chan SSEEvent]struct{}{}
	}
	b.subs[colonyID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(colonyID string, ch chan SSEEvent) {
	b.mu.Lock()
	if m := b.subs[colonyID]; m != nil {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, colonyID)
		}
	}
	b.mu.Unlock()
	close(ch)
}

func (b *Broker) Publish(colonyID string, evt SSEEvent) {
	b.mu.Lock()
	m := b.subs[colonyID]
	for ch := range m {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}
