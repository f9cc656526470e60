package messaging

import (
	"log/slog"
	"slices"
	"sync"
)

// PostOffice maps instance keys to mailboxes.
//
// Mailboxes are created on first use, so a message sent to an instance
// that has not been spawned yet waits for it.
//
// Thread-safety: PostOffice is safe for concurrent use.
type PostOffice struct {
	mu     sync.RWMutex
	boxes  map[string]*Mailbox
	logger *slog.Logger
}

// NewPostOffice creates an empty post office. A nil logger means
// slog.Default().
func NewPostOffice(logger *slog.Logger) *PostOffice {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostOffice{boxes: make(map[string]*Mailbox), logger: logger}
}

// Mailbox returns the mailbox of key, creating it if needed.
func (o *PostOffice) Mailbox(key string) *Mailbox {
	o.mu.RLock()
	b, ok := o.boxes[key]
	o.mu.RUnlock()
	if ok {
		return b
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if b, ok := o.boxes[key]; ok {
		return b
	}
	b = NewMailbox()
	o.boxes[key] = b
	return b
}

// Deliver puts m into the mailbox of key.
func (o *PostOffice) Deliver(key string, m Message) error {
	if err := o.Mailbox(key).Deliver(m); err != nil {
		return err
	}
	o.logger.Debug("message delivered", "to", key, "message", m.String())
	return nil
}

// Keys returns the keys that own a mailbox, sorted.
func (o *PostOffice) Keys() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	keys := make([]string, 0, len(o.boxes))
	for k := range o.boxes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Close closes every mailbox.
func (o *PostOffice) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, b := range o.boxes {
		b.Close()
	}
}
