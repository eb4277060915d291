package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotify_DeliversInSubscriptionOrder(t *testing.T) {
	var n Notifier
	var order []int

	n.Subscribe(func() { order = append(order, 1) })
	n.Subscribe(func() { order = append(order, 2) })
	n.Subscribe(func() { order = append(order, 3) })

	n.Notify()
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	var n Notifier
	count := 0

	unsub := n.Subscribe(func() { count++ })
	n.Notify()
	unsub()
	n.Notify()

	assert.Equal(t, 1, count)

	// Unsubscribing twice is harmless.
	unsub()
	n.Notify()
	assert.Equal(t, 1, count)
}

func TestUnsubscribe_RemovesOnlyOwnListener(t *testing.T) {
	var n Notifier
	a, b := 0, 0

	unsubA := n.Subscribe(func() { a++ })
	n.Subscribe(func() { b++ })

	unsubA()
	n.Notify()

	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
}
