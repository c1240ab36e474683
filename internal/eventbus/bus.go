package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event types published by the notifier.
const (
	TypeScheduleFetched        = "schedule.fetched"
	TypeNotificationsScheduled = "notifications.scheduled"
	TypeNotifyDelivered        = "notify.delivered"
	TypeNotifyFailed           = "notify.failed"
)

// Event is a lightweight, in-memory signal used to decouple components.
//
// Contract:
//   - Publish never blocks.
//   - Subscribers get buffered channels.
//   - Slow subscribers drop events.
type Event struct {
	Type string
	Time time.Time
	Data any
}

// ScheduleFetched is the Data of TypeScheduleFetched.
type ScheduleFetched struct {
	Hash      string
	FromCache bool
	Sessions  int
	Changed   bool
}

// NotificationsScheduled is the Data of TypeNotificationsScheduled.
type NotificationsScheduled struct {
	Hash   string
	Groups int
	Tasks  int
	Forced bool
}

// Delivery is the Data of TypeNotifyDelivered and TypeNotifyFailed.
// Webhook is the logical name, never the URL.
type Delivery struct {
	Kind     string // "programme" or "room"
	Webhook  string
	Sessions []string
	Err      string
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fanout bus. It owns no goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

// Nop returns a bus that drops every event.
func Nop() Bus { return nopBus{} }

type nopBus struct{}

func (nopBus) Publish(Event) {}

func (nopBus) Subscribe(int) (<-chan Event, func()) {
	ch := make(chan Event)
	var once sync.Once
	return ch, func() { once.Do(func() { close(ch) }) }
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			// Publish holds the read lock while sending, so the channel is
			// never closed under a concurrent send.
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
	return ch, unsub
}
