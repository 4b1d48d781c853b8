package tribunal

import (
	"sync"

	"lexhub/internal/httpapi/models"
)

// Bus fans the tribunal-update buffer out to in-process subscribers.
// Every subscriber receives the full current buffer immediately on
// subscription and again on every change.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]func([]models.TribunalUpdate)
	buffer      []models.TribunalUpdate
	nextID      int
}

func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[int]func([]models.TribunalUpdate)),
	}
}

// Subscribe registers a callback and delivers the current buffer to it
// right away. The returned function unsubscribes.
func (b *Bus) Subscribe(fn func([]models.TribunalUpdate)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = fn
	snapshot := b.snapshotLocked()
	b.mu.Unlock()

	fn(snapshot)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subscribers, id)
	}
}

// Publish replaces the buffer and fans it out to all subscribers.
func (b *Bus) Publish(buffer []models.TribunalUpdate) {
	b.mu.Lock()
	b.buffer = make([]models.TribunalUpdate, len(buffer))
	copy(b.buffer, buffer)
	snapshot := b.snapshotLocked()
	fns := make([]func([]models.TribunalUpdate), 0, len(b.subscribers))
	for _, fn := range b.subscribers {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

// Snapshot returns a copy of the current buffer.
func (b *Bus) Snapshot() []models.TribunalUpdate {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotLocked()
}

func (b *Bus) snapshotLocked() []models.TribunalUpdate {
	snapshot := make([]models.TribunalUpdate, len(b.buffer))
	copy(snapshot, b.buffer)
	return snapshot
}

// SubscriberCount reports how many subscribers are registered.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
