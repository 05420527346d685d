// Package realtime delivers insert/update notifications for durably
// written messages to in-process subscribers. It stands in for the hosted
// backend's push channel: writers publish after a successful store write,
// and each open chat session holds at most one revocable handle.
package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/glowdesk/teamchat/internal/logging"
	"github.com/glowdesk/teamchat/internal/metrics"
	"github.com/glowdesk/teamchat/internal/models"
)

// Predicate filters events at the transport level. Handlers may still
// re-validate: a predicate can intentionally be broader than the exact
// interest (e.g. OR-of-ANDs across a direct pair).
type Predicate func(models.Event) bool

// HandlerFunc receives matching events. It runs on the publisher's
// goroutine; a panic is logged and dropped without affecting other
// subscribers.
type HandlerFunc func(models.Event)

type subscription struct {
	id      uint64
	pred    Predicate
	handler HandlerFunc
}

// Handle is a revocable registration. Revoke is idempotent: after it
// returns, no subsequent Publish will match the subscription. A
// delivery already snapshotted by a concurrent Publish may still
// complete, so handlers must tolerate one event after revocation.
type Handle struct {
	broker *Broker
	id     uint64
	once   sync.Once
}

func (h *Handle) Revoke() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		h.broker.mu.Lock()
		delete(h.broker.subs, h.id)
		h.broker.mu.Unlock()
		metrics.ActiveSubscriptions.Dec()
	})
}

type Broker struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID atomic.Uint64
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[uint64]*subscription)}
}

func (b *Broker) Subscribe(pred Predicate, handler HandlerFunc) *Handle {
	id := b.nextID.Add(1)
	b.mu.Lock()
	b.subs[id] = &subscription{id: id, pred: pred, handler: handler}
	b.mu.Unlock()
	metrics.ActiveSubscriptions.Inc()
	return &Handle{broker: b, id: id}
}

// Publish dispatches the event to every subscriber whose predicate
// matches. Delivery is synchronous with respect to the caller.
func (b *Broker) Publish(event models.Event) {
	b.mu.RLock()
	matched := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.pred == nil || sub.pred(event) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range matched {
		b.deliver(sub, event)
	}
}

func (b *Broker) deliver(sub *subscription, event models.Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.EventsDropped.Inc()
			logging.L().Error().
				Interface("panic", r).
				Str("event", event.Kind.String()).
				Int64("message_id", event.Message.ID).
				Msg("event handler panicked; event dropped")
		}
	}()
	sub.handler(event)
	metrics.EventsDelivered.Inc()
}

// Subscribers returns the number of live handles.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
