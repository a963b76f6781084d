package snapshots

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type countingLoader struct {
	mu    sync.Mutex
	calls int
	state map[uuid.UUID]string
	err   error
}

func (c *countingLoader) load(ctx context.Context, wishlistID uuid.UUID) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.state[wishlistID], nil
}

func (c *countingLoader) set(wishlistID uuid.UUID, state string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		c.state = map[uuid.UUID]string{}
	}
	c.state[wishlistID] = state
}

func recv(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed")
		}
		return snap
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func TestSubscribePushesInitialSnapshot(t *testing.T) {
	loader := &countingLoader{}
	wishlistID := uuid.New()
	loader.set(wishlistID, "v0")
	hub := NewHub(loader.load, nil, nil)

	ch, cancel, err := hub.Subscribe(context.Background(), wishlistID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	snap := recv(t, ch)
	if snap.Payload != "v0" || snap.WishlistID != wishlistID {
		t.Fatalf("unexpected initial snapshot %+v", snap)
	}
}

func TestPublishDeliversOrderedSnapshots(t *testing.T) {
	loader := &countingLoader{}
	wishlistID := uuid.New()
	loader.set(wishlistID, "v0")
	hub := NewHub(loader.load, nil, nil)

	ch, cancel, err := hub.Subscribe(context.Background(), wishlistID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	first := recv(t, ch)

	loader.set(wishlistID, "v1")
	hub.Publish(context.Background(), wishlistID)
	second := recv(t, ch)

	if second.Seq <= first.Seq {
		t.Fatalf("sequence must increase: %d then %d", first.Seq, second.Seq)
	}
	if second.Payload != "v1" {
		t.Fatalf("expected fresh payload, got %v", second.Payload)
	}
}

func TestPublishCoalescesForSlowSubscriber(t *testing.T) {
	loader := &countingLoader{}
	wishlistID := uuid.New()
	loader.set(wishlistID, "v0")
	hub := NewHub(loader.load, nil, nil)

	ch, cancel, err := hub.Subscribe(context.Background(), wishlistID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	recv(t, ch)

	// Publish twice without draining; the first update is superseded.
	loader.set(wishlistID, "v1")
	hub.Publish(context.Background(), wishlistID)
	loader.set(wishlistID, "v2")
	hub.Publish(context.Background(), wishlistID)

	snap := recv(t, ch)
	if snap.Payload != "v2" {
		t.Fatalf("expected latest snapshot to win, got %v", snap.Payload)
	}
	select {
	case extra := <-ch:
		t.Fatalf("expected coalesced stream, got extra %+v", extra)
	default:
	}
}

func TestPublishWithoutSubscribersSkipsLoader(t *testing.T) {
	loader := &countingLoader{}
	hub := NewHub(loader.load, nil, nil)

	hub.Publish(context.Background(), uuid.New())

	loader.mu.Lock()
	defer loader.mu.Unlock()
	if loader.calls != 0 {
		t.Fatalf("loader must not run for unwatched wishlists, ran %d times", loader.calls)
	}
}

func TestCancelClosesChannelAndDropsTopic(t *testing.T) {
	loader := &countingLoader{}
	wishlistID := uuid.New()
	loader.set(wishlistID, "v0")
	hub := NewHub(loader.load, nil, nil)

	ch, cancel, err := hub.Subscribe(context.Background(), wishlistID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	recv(t, ch)
	cancel()

	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after cancel")
	}
	if n := hub.Subscribers(wishlistID); n != 0 {
		t.Fatalf("expected topic dropped, still %d subscribers", n)
	}
}

func TestSubscribeLoaderError(t *testing.T) {
	loader := &countingLoader{err: errors.New("boom")}
	hub := NewHub(loader.load, nil, nil)

	if _, _, err := hub.Subscribe(context.Background(), uuid.New()); err == nil {
		t.Fatalf("expected loader error to surface")
	}
}

func TestIndependentTopics(t *testing.T) {
	loader := &countingLoader{}
	a, b := uuid.New(), uuid.New()
	loader.set(a, "a0")
	loader.set(b, "b0")
	hub := NewHub(loader.load, nil, nil)

	chA, cancelA, err := hub.Subscribe(context.Background(), a)
	if err != nil {
		t.Fatalf("subscribe a: %v", err)
	}
	defer cancelA()
	chB, cancelB, err := hub.Subscribe(context.Background(), b)
	if err != nil {
		t.Fatalf("subscribe b: %v", err)
	}
	defer cancelB()
	recv(t, chA)
	recv(t, chB)

	loader.set(a, "a1")
	hub.Publish(context.Background(), a)

	snap := recv(t, chA)
	if snap.Payload != "a1" {
		t.Fatalf("expected update on topic a, got %v", snap.Payload)
	}
	select {
	case extra := <-chB:
		t.Fatalf("topic b must not receive a's update, got %+v", extra)
	default:
	}
}

func TestSubscribeNeverBlocksUnderPublishLoad(t *testing.T) {
	loader := &countingLoader{}
	wishlistID := uuid.New()
	loader.set(wishlistID, "v0")
	hub := NewHub(loader.load, nil, nil)

	// Keep one watcher alive so every Publish walks the topic.
	_, cancelFirst, err := hub.Subscribe(context.Background(), wishlistID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancelFirst()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				hub.Publish(context.Background(), wishlistID)
			}
		}
	}()
	defer wg.Wait()
	defer close(stop)

	for i := 0; i < 200; i++ {
		done := make(chan struct{})
		var (
			ch     <-chan Snapshot
			cancel func()
			subErr error
		)
		go func() {
			ch, cancel, subErr = hub.Subscribe(context.Background(), wishlistID)
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("subscribe %d blocked behind publishes", i)
		}
		if subErr != nil {
			t.Fatalf("subscribe %d: %v", i, subErr)
		}
		recv(t, ch)
		cancel()
	}
}
