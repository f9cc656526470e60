package messaging

import (
	"errors"
	"sync"
)

// ErrMailboxClosed is returned when delivering to a closed mailbox.
var ErrMailboxClosed = errors.New("mailbox closed")

// Mailbox is the message queue of one instance.
//
// Messages are delivered at the tail. Select claims and removes a matching
// message atomically: two concurrent selectors never receive the same
// message. The queue is unbounded so that a burst of sends within one tick
// never blocks the executor.
//
// Thread-safety: Mailbox is safe for concurrent use.
type Mailbox struct {
	mu       sync.Mutex
	messages []Message
	closed   bool
	signal   chan struct{} // buffered, size 1
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{
		messages: make([]Message, 0, 8),
		signal:   make(chan struct{}, 1),
	}
}

// Deliver appends m. It fails with ErrMailboxClosed after Close.
func (b *Mailbox) Deliver(m Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrMailboxClosed
	}
	b.messages = append(b.messages, m)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case b.signal <- struct{}{}:
	default:
	}
	return nil
}

// Select removes and returns the first message matching p. In HeadOnly
// mode only the head message is considered.
func (b *Mailbox) Select(p Pattern, mode SelectMode) (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, m := range b.messages {
		if p.Match(m) {
			b.remove(i)
			return m, true
		}
		if mode == HeadOnly {
			break
		}
	}
	return Message{}, false
}

// remove deletes index i. Caller holds mu.
func (b *Mailbox) remove(i int) {
	last := len(b.messages) - 1
	copy(b.messages[i:], b.messages[i+1:])
	// Clear the vacated slot so its field map can be collected.
	b.messages[last] = Message{}
	b.messages = b.messages[:last]
}

// Wait returns a channel that signals when messages may be available.
// It is closed by Close.
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-box.Wait():
//	    // try Select
//	}
func (b *Mailbox) Wait() <-chan struct{} {
	return b.signal
}

// Len returns the number of queued messages.
func (b *Mailbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

// Snapshot returns the queued messages, head first.
func (b *Mailbox) Snapshot() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.messages...)
}

// Close rejects further deliveries and wakes waiters. Queued messages stay
// selectable. A pending wake-up is discarded, so receivers on Wait see the
// channel closed at once.
func (b *Mailbox) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	select {
	case <-b.signal:
	default:
	}
	close(b.signal)
}
