// Package events fans typed notifications out to subscribers.
// The same broker carries auth state changes inside the client and the store
// change feed inside the server.
package events

import (
	"log/slog"
	"sync"
)

const defaultBufferSize = 64

// Subscriber receives published values on C
type Subscriber[T any] struct {
	C    <-chan T
	send chan T
	name string
}

// Broker delivers every published value to every subscriber.
// A subscriber whose buffer is full misses the value; publishers never block.
type Broker[T any] struct {
	name    string
	buffer  int
	logger  *slog.Logger
	mu      sync.RWMutex
	clients map[*Subscriber[T]]bool

	register   chan *Subscriber[T]
	unregister chan *Subscriber[T]
	broadcast  chan T
	done       chan struct{}
	closeOnce  sync.Once
	stopped    chan struct{}
}

// NewBroker creates a broker and starts its event loop.
// Close must be called to stop the loop.
func NewBroker[T any](name string, buffer int, logger *slog.Logger) *Broker[T] {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	b := &Broker[T]{
		name:       name,
		buffer:     buffer,
		logger:     logger.With(slog.String("broker", name)),
		clients:    make(map[*Subscriber[T]]bool),
		register:   make(chan *Subscriber[T]),
		unregister: make(chan *Subscriber[T]),
		broadcast:  make(chan T, 256),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broker[T]) run() {
	defer close(b.stopped)
	for {
		select {
		case sub := <-b.register:
			b.mu.Lock()
			b.clients[sub] = true
			count := len(b.clients)
			b.mu.Unlock()
			b.logger.Debug("subscriber registered",
				slog.String("subscriber", sub.name),
				slog.Int("total_subscribers", count))

		case sub := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[sub]; ok {
				delete(b.clients, sub)
				close(sub.send)
			}
			count := len(b.clients)
			b.mu.Unlock()
			b.logger.Debug("subscriber unregistered",
				slog.String("subscriber", sub.name),
				slog.Int("total_subscribers", count))

		case value := <-b.broadcast:
			b.mu.RLock()
			dropped := 0
			for sub := range b.clients {
				select {
				case sub.send <- value:
				default:
					dropped++
				}
			}
			b.mu.RUnlock()
			if dropped > 0 {
				b.logger.Warn("notification dropped - subscriber buffer full",
					slog.Int("dropped", dropped))
			}

		case <-b.done:
			b.mu.Lock()
			count := len(b.clients)
			for sub := range b.clients {
				close(sub.send)
				delete(b.clients, sub)
			}
			b.mu.Unlock()
			b.logger.Debug("broker stopped", slog.Int("disconnected_subscribers", count))
			return
		}
	}
}

// Subscribe registers a new subscriber. The returned function unsubscribes it
// and closes its channel; it is safe to call more than once.
func (b *Broker[T]) Subscribe(name string) (*Subscriber[T], func()) {
	ch := make(chan T, b.buffer)
	sub := &Subscriber[T]{C: ch, send: ch, name: name}

	select {
	case b.register <- sub:
	case <-b.done:
		close(ch)
		return sub, func() {}
	}

	var once sync.Once
	return sub, func() {
		once.Do(func() {
			select {
			case b.unregister <- sub:
			case <-b.done:
			}
		})
	}
}

// Publish queues value for delivery without blocking
func (b *Broker[T]) Publish(value T) {
	select {
	case <-b.done:
		return
	default:
	}
	select {
	case b.broadcast <- value:
	default:
		b.logger.Warn("notification dropped - broker buffer full")
	}
}

// Close stops the event loop and closes every subscriber channel
func (b *Broker[T]) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
	<-b.stopped
}

// SubscriberCount returns the number of registered subscribers
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
