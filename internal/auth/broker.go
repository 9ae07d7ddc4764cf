package auth

import (
	"sync"

	"github.com/alimgiray/perfguide/internal/models"
)

// Listener receives auth state changes
type Listener = func(event models.AuthEvent)

// Broker fans auth events out to subscribers. Listeners run synchronously
// on the publishing goroutine, in subscription order, without the lock held.
type Broker struct {
	mu        sync.RWMutex
	nextID    int
	order     []int
	listeners map[int]Listener
}

func NewBroker() *Broker {
	return &Broker{
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers a listener and returns its unsubscribe function.
// Calling the returned function more than once is safe.
func (b *Broker) Subscribe(listener Listener) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = listener
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners, id)
			for i, existing := range b.order {
				if existing == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers event to every current listener
func (b *Broker) Publish(event models.AuthEvent) {
	b.mu.RLock()
	snapshot := make([]Listener, 0, len(b.order))
	for _, id := range b.order {
		snapshot = append(snapshot, b.listeners[id])
	}
	b.mu.RUnlock()

	for _, listener := range snapshot {
		listener(event)
	}
}

// Len returns the number of active listeners
func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
