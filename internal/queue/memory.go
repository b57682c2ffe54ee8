package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryBroker is an in-process broker for local runs and tests. Messages
// sharing a DedupID are accepted once, mirroring FIFO deduplication.
type MemoryBroker struct {
	mu       sync.Mutex
	pending  []Delivery
	inFlight map[string]Delivery
	seen     map[string]string
	max      int
	closed   bool
	notify   chan struct{}
}

func NewMemoryBroker(maxMessages int) *MemoryBroker {
	if maxMessages < 1 {
		maxMessages = 1
	}
	return &MemoryBroker{
		inFlight: make(map[string]Delivery),
		seen:     make(map[string]string),
		max:      maxMessages,
		notify:   make(chan struct{}, 1),
	}
}

func (b *MemoryBroker) Send(ctx context.Context, msg Outgoing) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf(errFailedSendMessageFmt, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return "", fmt.Errorf(errFailedSendMessageFmt, ErrClosed)
	}
	if msg.DedupID != "" {
		if id, ok := b.seen[msg.DedupID]; ok {
			return id, nil
		}
	}

	id := uuid.NewString()
	body := make([]byte, len(msg.Body))
	copy(body, msg.Body)
	b.pending = append(b.pending, Delivery{ID: id, Body: body, Receipt: uuid.NewString()})
	if msg.DedupID != "" {
		b.seen[msg.DedupID] = id
	}

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return id, nil
}

// Receive returns immediately when messages are pending and otherwise waits
// for a Send or ctx cancellation.
func (b *MemoryBroker) Receive(ctx context.Context) ([]Delivery, error) {
	for {
		if out, err := b.take(); out != nil || err != nil {
			return out, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-b.notify:
		}
	}
}

func (b *MemoryBroker) take() ([]Delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if len(b.pending) == 0 {
		return nil, nil
	}
	n := min(len(b.pending), b.max)
	out := make([]Delivery, n)
	copy(out, b.pending[:n])
	b.pending = b.pending[n:]
	for _, d := range out {
		b.inFlight[d.Receipt] = d
	}
	return out, nil
}

func (b *MemoryBroker) Ack(_ context.Context, d Delivery) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.inFlight[d.Receipt]; !ok {
		return fmt.Errorf(errBadReceiptFmt, d.Receipt)
	}
	delete(b.inFlight, d.Receipt)
	return nil
}

// Requeue returns every unacknowledged delivery to the queue, like a
// visibility timeout expiring.
func (b *MemoryBroker) Requeue() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for r, d := range b.inFlight {
		b.pending = append(b.pending, d)
		delete(b.inFlight, r)
	}
}

func (b *MemoryBroker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *MemoryBroker) InFlight() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.inFlight)
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
