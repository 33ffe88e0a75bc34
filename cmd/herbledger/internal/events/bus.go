package events

import (
	"sync"

	"github.com/rs/zerolog"
)

// Subscriber receives events synchronously on the publishing goroutine.
type Subscriber func(Event)

// Bus distributes committed events to subscribers in publish order.
type Bus struct {
	log         zerolog.Logger
	lock        sync.RWMutex
	nextID      int
	subscribers map[int]Subscriber
	order       []int
}

// NewBus returns a bus that logs recovered subscriber panics to log.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		log:         log.With().Str("component", "event_bus").Logger(),
		subscribers: make(map[int]Subscriber),
	}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Subscriber) (unsubscribe func()) {
	b.lock.Lock()
	defer b.lock.Unlock()

	id := b.nextID
	b.nextID++
	b.subscribers[id] = fn
	b.order = append(b.order, id)

	return func() {
		b.lock.Lock()
		defer b.lock.Unlock()
		if _, ok := b.subscribers[id]; !ok {
			return
		}
		delete(b.subscribers, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers evs to every subscriber. A panicking subscriber is logged
// and skipped; the remaining subscribers still run.
func (b *Bus) Publish(evs ...Event) {
	b.lock.RLock()
	subs := make([]Subscriber, 0, len(b.order))
	for _, id := range b.order {
		subs = append(subs, b.subscribers[id])
	}
	b.lock.RUnlock()

	for _, ev := range evs {
		for _, fn := range subs {
			b.deliver(fn, ev)
		}
	}
}

func (b *Bus) deliver(fn Subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Interface("panic", r).
				Str("kind", string(ev.Kind)).
				Int64("seq", ev.Seq).
				Msg("event subscriber panicked")
		}
	}()
	fn(ev)
}

// LogSubscriber returns a subscriber that writes one debug line per event.
func LogSubscriber(log zerolog.Logger) Subscriber {
	return func(ev Event) {
		entry := log.Debug().
			Str("kind", string(ev.Kind)).
			Int64("seq", ev.Seq).
			Str("writer", ev.Writer)
		if ev.BatchID != 0 {
			entry = entry.Int64("batch_id", ev.BatchID)
		}
		if ev.ContentID != "" {
			entry = entry.Str("content_id", ev.ContentID)
		}
		if ev.Principal != "" {
			entry = entry.Str("principal", ev.Principal).Str("mask", ev.Mask.String())
		}
		entry.Msg("ledger event")
	}
}
