package winnersfeed

import (
	"context"
	"sync"

	"github.com/spinwin-labs/spin-reward-service/pkg/providers"
)

// Broadcaster fans winner announcements out to every active subscriber.
type Broadcaster struct {
	buffer int

	mu     sync.Mutex
	subs   map[int]chan providers.Winner
	nextID int
}

// NewBroadcaster creates a broadcaster; buffer sizes each subscriber
// channel.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = 1
	}
	return &Broadcaster{
		buffer: buffer,
		subs:   make(map[int]chan providers.Winner),
	}
}

// Send publishes a winner to every subscriber. A subscriber whose buffer
// is full misses the event rather than blocking the rest; the cache still
// holds the win.
func (b *Broadcaster) Send(winner providers.Winner) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- winner:
		default:
		}
	}
}

// Listen registers a subscriber and returns its channel plus a cancel
// function that unsubscribes and closes it.
func (b *Broadcaster) Listen(ctx context.Context) (<-chan providers.Winner, context.CancelFunc) {
	ch := make(chan providers.Winner, b.buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	listenerCtx, cancel := context.WithCancel(ctx)
	go func() {
		<-listenerCtx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()

	return ch, cancel
}

// Subscribers reports the number of active listeners. Test helper.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
