package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	h := newHub[int](nil)
	slow := h.subscribe(0)
	defer slow.Cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			h.publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on an unread subscriber")
	}

	for i := 0; i < 1000; i++ {
		select {
		case v := <-slow.C:
			require.Equal(t, i, v)
		case <-time.After(2 * time.Second):
			t.Fatalf("value %d not delivered", i)
		}
	}
}

func TestHub_EverySubscriberGetsEveryValue(t *testing.T) {
	h := newHub[string](nil)
	a := h.subscribe(1)
	b := h.subscribe(1)
	defer a.Cancel()
	defer b.Cancel()

	h.publish("x")
	h.publish("y")

	for _, sub := range []*Subscription[string]{a, b} {
		assert.Equal(t, "x", <-sub.C)
		assert.Equal(t, "y", <-sub.C)
	}
}

func TestSubscription_CancelRemovesAndCloses(t *testing.T) {
	h := newHub[int](nil)
	sub := h.subscribe(0)
	require.Equal(t, 1, h.size())

	sub.Cancel()
	sub.Cancel()
	assert.Zero(t, h.size())

	h.publish(1)
	select {
	case _, ok := <-sub.C:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}

func TestHub_CloneGivesEachSubscriberItsOwnValue(t *testing.T) {
	h := newHub(func(v []int) []int { return append([]int(nil), v...) })
	a := h.subscribe(1)
	b := h.subscribe(1)
	defer a.Cancel()
	defer b.Cancel()

	h.publish([]int{1, 2})

	got := <-a.C
	got[0] = 99
	assert.Equal(t, []int{1, 2}, <-b.C)
}
