// Package events carries change notifications from the command layer to
// live observers within one process.
package events

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Type names what happened to the affected notes.
type Type string

const (
	Created  Type = "created"
	Updated  Type = "updated"
	Trashed  Type = "trashed"
	Restored Type = "restored"
	Purged   Type = "purged"
	Imported Type = "imported"
)

// Event describes one successful mutation.
type Event struct {
	ID      string  `json:"id"`
	Type    Type    `json:"type"`
	NoteIDs []int64 `json:"note_ids"`
	At      int64   `json:"at"`
}

// New builds an event with a fresh ULID and the current time in ms.
func New(typ Type, noteIDs ...int64) Event {
	now := time.Now()
	return Event{
		ID:      ulid.Make().String(),
		Type:    typ,
		NoteIDs: noteIDs,
		At:      now.UnixMilli(),
	}
}

// Publisher receives events from the command layer.
type Publisher interface {
	Publish(Event)
}

// Subscriber hands out event streams.
type Subscriber interface {
	Subscribe() (<-chan Event, func())
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(Event) {}

// Bus fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event and a warning is logged.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	buffer int
	closed bool
	logger zerolog.Logger
}

// NewBus creates a bus giving each subscriber a channel of the given capacity.
func NewBus(buffer int, logger zerolog.Logger) *Bus {
	if buffer <= 0 {
		buffer = 1
	}
	return &Bus{
		subs:   make(map[int]chan Event),
		buffer: buffer,
		logger: logger,
	}
}

// Publish delivers e to every current subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.logger.Warn().
				Int("subscriber", id).
				Str("event_id", e.ID).
				Str("type", string(e.Type)).
				Msg("subscriber buffer full, event dropped")
		}
	}
}

// Subscribe registers a new subscriber. The returned func unsubscribes and
// closes the channel; calling it more than once is safe.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Close closes every subscriber channel. Later publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
