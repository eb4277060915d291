// Package events provides a small synchronous publish/subscribe primitive.
// Listeners are invoked in subscription order on the publisher's goroutine;
// a Notifier carries no payload, so listeners re-query whatever state they
// care about.
package events

import "sync"

// Notifier is a coalescing, payload-free change signal.
type Notifier struct {
	mu        sync.Mutex
	nextID    int
	listeners []listener
}

type listener struct {
	id int
	fn func()
}

// Subscribe registers fn and returns a handle that removes it.
// Unsubscribing stops future delivery; missed notifications are not replayed.
func (n *Notifier) Subscribe(fn func()) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	n.listeners = append(n.listeners, listener{id: id, fn: fn})

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		for i, l := range n.listeners {
			if l.id == id {
				n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
				return
			}
		}
	}
}

// Notify invokes all current listeners synchronously, in subscription order.
func (n *Notifier) Notify() {
	n.mu.Lock()
	current := make([]listener, len(n.listeners))
	copy(current, n.listeners)
	n.mu.Unlock()

	for _, l := range current {
		l.fn()
	}
}
