package event

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minjae-dev/stockpulse/pkg/logger"
)

// drainWait bounds how long a drain goroutine sleeps on an empty queue, so
// Stop is observed promptly.
const drainWait = 500 * time.Millisecond

// Subscription is the token returned by Subscribe and accepted by
// Unsubscribe. Handlers are funcs and not comparable, so the token stands in
// for the (type, handler) pair.
type Subscription struct {
	id      uint64
	typ     Type
	handler Handler
}

// Broker is the process-wide publish/subscribe hub. Publish is safe from any
// goroutine and never blocks on consumers; one drain goroutine per event
// type invokes subscribed handlers in subscription order.
type Broker struct {
	mu      sync.Mutex
	queues  map[Type]*mailbox
	subs    map[Type][]*Subscription
	nextSub uint64
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	journal *Journal
	logger  *logger.Logger
}

// NewBroker creates a broker. journal may be nil to disable persistence.
func NewBroker(log *logger.Logger, journal *Journal) *Broker {
	return &Broker{
		queues:  make(map[Type]*mailbox),
		subs:    make(map[Type][]*Subscription),
		stopCh:  make(chan struct{}),
		journal: journal,
		logger:  log.WithComponent("broker"),
	}
}

// Subscribe registers a handler for an event type and returns its token.
func (b *Broker) Subscribe(typ Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSub++
	sub := &Subscription{id: b.nextSub, typ: typ, handler: handler}
	b.subs[typ] = append(b.subs[typ], sub)
	b.ensureQueueLocked(typ)

	b.logger.WithFields(map[string]interface{}{
		"type":        string(typ),
		"subscribers": len(b.subs[typ]),
	}).Debug("Handler subscribed")

	return sub
}

// Unsubscribe removes a previously registered handler.
func (b *Broker) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[sub.typ]
	for i, s := range list {
		if s.id == sub.id {
			b.subs[sub.typ] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Publish enriches the payload with an id, timestamp and type tag, then
// hands it to the owning queue. It never blocks on the drain loop.
func (b *Broker) Publish(typ Type, payload interface{}) Event {
	evt := Event{
		ID:        uuid.New().String(),
		Type:      typ,
		Timestamp: time.Now(),
		Payload:   payload,
	}

	if b.journal != nil {
		if err := b.journal.Append(evt); err != nil {
			b.logger.WithError(err).Warn("Event journal write failed")
		}
	}

	b.mu.Lock()
	q := b.ensureQueueLocked(typ)
	b.mu.Unlock()

	q.push(evt)
	return evt
}

// Start launches the drain goroutines. Queues created after Start get their
// goroutine on creation.
func (b *Broker) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return
	}
	b.started = true

	for typ, q := range b.queues {
		b.startDrainLocked(typ, q)
	}

	b.logger.WithField("types", len(b.queues)).Info("Broker started")
}

// Stop halts the drain goroutines. In-flight handler invocations finish
// their current event; queued events are abandoned (best-effort shutdown).
func (b *Broker) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	close(b.stopCh)
	b.mu.Unlock()

	b.wg.Wait()

	if b.journal != nil {
		_ = b.journal.Close()
	}

	b.logger.Info("Broker stopped")
}

// QueueDepths reports the number of undelivered events per type.
func (b *Broker) QueueDepths() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()

	depths := make(map[string]int, len(b.queues))
	for typ, q := range b.queues {
		depths[string(typ)] = q.len()
	}
	return depths
}

func (b *Broker) ensureQueueLocked(typ Type) *mailbox {
	q, ok := b.queues[typ]
	if !ok {
		q = newMailbox()
		b.queues[typ] = q
		if b.started {
			b.startDrainLocked(typ, q)
		}
	}
	return q
}

func (b *Broker) startDrainLocked(typ Type, q *mailbox) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.drain(typ, q)
	}()
}

// drain delivers events for one type until the broker stops.
func (b *Broker) drain(typ Type, q *mailbox) {
	for {
		select {
		case <-b.stopCh:
			return
		default:
		}

		evt, ok := q.pop(drainWait)
		if !ok {
			continue
		}

		b.dispatch(evt)
	}
}

// dispatch invokes every currently-subscribed handler in subscription
// order. A panicking handler is isolated and does not block siblings.
func (b *Broker) dispatch(evt Event) {
	b.mu.Lock()
	subs := make([]*Subscription, len(b.subs[evt.Type]))
	copy(subs, b.subs[evt.Type])
	b.mu.Unlock()

	for _, sub := range subs {
		b.invoke(sub, evt)
	}
}

func (b *Broker) invoke(sub *Subscription, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithFields(map[string]interface{}{
				"type":     string(evt.Type),
				"event_id": evt.ID,
				"panic":    r,
			}).Error("Event handler panicked")
		}
	}()

	sub.handler(evt)
}

// mailbox is an unbounded FIFO queue with a non-blocking push and a
// bounded-wait pop.
type mailbox struct {
	mu     sync.Mutex
	items  []Event
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (m *mailbox) push(evt Event) {
	m.mu.Lock()
	m.items = append(m.items, evt)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *mailbox) pop(wait time.Duration) (Event, bool) {
	if evt, ok := m.take(); ok {
		return evt, true
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-m.notify:
		return m.take()
	case <-timer.C:
		return Event{}, false
	}
}

func (m *mailbox) take() (Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) == 0 {
		return Event{}, false
	}

	evt := m.items[0]
	m.items = m.items[1:]

	// Re-arm the signal if more items remain so the next pop wakes fast.
	if len(m.items) > 0 {
		select {
		case m.notify <- struct{}{}:
		default:
		}
	}

	return evt, true
}

func (m *mailbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
