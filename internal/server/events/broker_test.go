package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/tasklink/pkg/logging"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
	closed bool
	err    error
}

func (r *recorder) Send(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorder) received() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func TestBrokerDeliversInOrder(t *testing.T) {
	b := NewBroker(logging.NewNopLogger())
	a, c := &recorder{}, &recorder{err: errors.New("gone")}
	b.Subscribe(a)
	b.Subscribe(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	b.Publish(PairLinked, map[string]string{"pair_id": "p1"})
	b.Publish(DriftDetected, map[string]string{"pair_id": "p2"})

	require.Eventually(t, func() bool { return len(a.received()) == 2 }, time.Second, 5*time.Millisecond)
	got := a.received()
	assert.Equal(t, PairLinked, got[0].Type)
	assert.Equal(t, DriftDetected, got[1].Type)
	assert.False(t, got[0].Timestamp.IsZero())

	// a failing subscriber still receives later events
	require.Eventually(t, func() bool { return len(c.received()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := NewBroker(logging.NewNopLogger())
	r := &recorder{}
	b.Subscribe(r)
	assert.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe(r)
	assert.Equal(t, 0, b.SubscriberCount())
	assert.True(t, r.isClosed())

	// unknown subscribers are ignored
	b.Unsubscribe(&recorder{})
}

func TestBrokerClosesSubscribersOnStop(t *testing.T) {
	b := NewBroker(logging.NewNopLogger())
	r := &recorder{}
	b.Subscribe(r)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broker did not stop")
	}
	assert.True(t, r.isClosed())
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestPublishDropsWhenFull(t *testing.T) {
	b := NewBroker(logging.NewNopLogger())
	for i := 0; i < cap(b.events)+10; i++ {
		b.Publish(PairLinked, i)
	}
	assert.Len(t, b.events, cap(b.events))
}
