package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// loopbackRelay delivers published messages to every subscriber in-process
type loopbackRelay struct {
	mu   sync.Mutex
	subs []chan []byte
	fail bool

	// firstDelay stalls the first publish
	firstDelay time.Duration
	delayed    sync.Once
}

func (r *loopbackRelay) Publish(_ context.Context, msg []byte) error {
	r.delayed.Do(func() { time.Sleep(r.firstDelay) })

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("relay down")
	}
	for _, ch := range r.subs {
		ch <- msg
	}
	return nil
}

func (r *loopbackRelay) Subscribe(ctx context.Context, deliver func([]byte)) error {
	ch := make(chan []byte, 16)
	r.mu.Lock()
	r.subs = append(r.subs, ch)
	r.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-ch:
			deliver(msg)
		}
	}
}

func (r *loopbackRelay) subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestRelayFansOutAcrossInstances(t *testing.T) {
	t.Parallel()

	relay := &loopbackRelay{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hubA := NewHub(testLogger(), nil)
	hubB := NewHub(testLogger(), nil)
	dA := NewDispatcher(hubA, relay, testLogger(), nil)
	dB := NewDispatcher(hubB, relay, testLogger(), nil)
	go dA.Run(ctx)
	go dB.Run(ctx)
	waitFor(t, func() bool { return relay.subscribers() == 2 })

	onA := NewSession(1, 0)
	onB := NewSession(2, 0)
	hubA.Join(onA, 42)
	hubB.Join(onB, 42)

	dA.Publish(context.Background(), 42, EventItemDeleted, 1, ItemDeletedPayload{ItemID: 5})

	waitFor(t, func() bool { return len(onA.send) == 1 && len(onB.send) == 1 })
}

func TestRelayFailureFallsBackToLocal(t *testing.T) {
	t.Parallel()

	relay := &loopbackRelay{fail: true}
	hub := NewHub(testLogger(), nil)
	d := NewDispatcher(hub, relay, testLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	s := NewSession(1, 0)
	hub.Join(s, 1)

	d.Publish(context.Background(), 1, EventItemDeleted, 1, ItemDeletedPayload{ItemID: 5})
	waitFor(t, func() bool { return len(s.send) == 1 })
}

func TestRelayKeepsPublishOrder(t *testing.T) {
	t.Parallel()

	relay := &loopbackRelay{firstDelay: 50 * time.Millisecond}
	hub := NewHub(testLogger(), nil)
	d := NewDispatcher(hub, relay, testLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)
	waitFor(t, func() bool { return relay.subscribers() == 1 })

	s := NewSession(1, 0)
	hub.Join(s, 42)

	d.Publish(context.Background(), 42, EventItemAdded, 1, ItemPayload{})
	d.Publish(context.Background(), 42, EventItemDeleted, 1, ItemDeletedPayload{ItemID: 5})

	waitFor(t, func() bool { return len(s.send) == 2 })
	got := drain(s)
	if got[0].Type != EventItemAdded || got[1].Type != EventItemDeleted {
		t.Fatalf("delivery order: [%s %s]", got[0].Type, got[1].Type)
	}
}

func TestFullRelayQueueDeliversLocally(t *testing.T) {
	t.Parallel()

	hub := NewHub(testLogger(), nil)
	// Nothing drains the queue without Run.
	d := NewDispatcher(hub, &loopbackRelay{}, testLogger(), nil)

	s := NewSession(1, 4)
	hub.Join(s, 3)

	for i := 0; i <= relayQueueSize; i++ {
		d.Publish(context.Background(), 3, EventItemDeleted, 1, ItemDeletedPayload{ItemID: int64(i)})
	}

	if len(s.send) != 1 {
		t.Fatalf("locally delivered = %d, want 1 overflow event", len(s.send))
	}
}

func TestDeliverAppliesMembershipSideEffects(t *testing.T) {
	t.Parallel()

	hub := NewHub(testLogger(), nil)
	d := NewDispatcher(hub, nil, testLogger(), nil)

	removed := NewSession(7, 0)
	stays := NewSession(8, 0)
	hub.Join(removed, 1)
	hub.Join(stays, 1)

	d.Publish(context.Background(), 1, EventMemberRemoved, 8, MemberRemovedPayload{UserID: 7})

	if len(removed.send) != 1 {
		t.Fatal("removed member should still see the removal event")
	}
	if hub.IsJoined(removed, 1) {
		t.Fatal("removed member is still subscribed")
	}
	if !hub.IsJoined(stays, 1) {
		t.Fatal("remaining member was evicted")
	}

	d.Publish(context.Background(), 1, EventWishlistDeleted, 8, WishlistDeletedPayload{WishlistID: 1})
	if hub.Subscribers(1) != 0 {
		t.Fatal("channel survived wishlist deletion")
	}
}

func TestObserversSeeEveryPublishedEvent(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(NewHub(testLogger(), nil), nil, testLogger(), nil)

	var seen []EventType
	d.Observe(func(ev Event) { seen = append(seen, ev.Type) })

	d.Publish(context.Background(), 1, EventItemAdded, 1, nil)
	d.Publish(context.Background(), 1, EventItemClaimed, 1, nil)

	if len(seen) != 2 || seen[0] != EventItemAdded || seen[1] != EventItemClaimed {
		t.Fatalf("observed %v", seen)
	}
}
