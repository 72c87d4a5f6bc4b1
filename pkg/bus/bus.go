// Package bus provides the unbounded mailboxes the pollers use to talk to the configuration surface.
// Receivers never block: every poll tick drains what is there and moves on.
package bus

import "sync"

type Mailbox[M any] struct {
	mu    sync.Mutex
	queue []M
}

func NewMailbox[M any]() *Mailbox[M] {
	return &Mailbox[M]{}
}

// Send never blocks and never drops.
func (b *Mailbox[M]) Send(msg M) {
	b.mu.Lock()
	b.queue = append(b.queue, msg)
	b.mu.Unlock()
}

func (b *Mailbox[M]) TryRecv() (M, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var zero M
	if len(b.queue) == 0 {
		return zero, false
	}
	msg := b.queue[0]
	b.queue[0] = zero
	b.queue = b.queue[1:]
	if len(b.queue) == 0 {
		b.queue = nil
	}
	return msg, true
}

// Drain discards all queued messages and returns how many there were.
func (b *Mailbox[M]) Drain() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.queue)
	b.queue = nil
	return n
}

func (b *Mailbox[M]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}
