// Package snapshots fans out wishlist state to live subscribers. Guests
// watching a shared wishlist see reservation changes as a stream of whole
// snapshots: per wishlist the sequence is monotonic and the latest snapshot
// always wins, so a slow consumer skips intermediate states instead of
// lagging behind.
package snapshots

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Faith-Anthony/presently/pkg/logger"
	"github.com/Faith-Anthony/presently/pkg/metrics"
)

// Loader produces the current public view of a wishlist.
type Loader func(ctx context.Context, wishlistID uuid.UUID) (any, error)

// Snapshot is one full state of a wishlist.
type Snapshot struct {
	WishlistID uuid.UUID `json:"wishlist_id"`
	Seq        uint64    `json:"seq"`
	Payload    any       `json:"payload"`
}

type subscriber struct {
	ch chan Snapshot
}

type topic struct {
	seq  uint64
	subs map[int]*subscriber
}

// Hub tracks subscribers per wishlist.
type Hub struct {
	mu      sync.Mutex
	topics  map[uuid.UUID]*topic
	nextID  int
	loader  Loader
	logg    *logger.Logger
	metrics *metrics.ReservationMetrics
}

// NewHub builds a snapshot hub around the given loader.
func NewHub(loader Loader, logg *logger.Logger, m *metrics.ReservationMetrics) *Hub {
	return &Hub{
		topics:  map[uuid.UUID]*topic{},
		loader:  loader,
		logg:    logg,
		metrics: m,
	}
}

// Subscribe registers for snapshots of one wishlist. The returned cancel
// function must be called exactly once; after it returns the channel is
// closed. A fresh snapshot is pushed immediately so subscribers never start
// blind.
func (h *Hub) Subscribe(ctx context.Context, wishlistID uuid.UUID) (<-chan Snapshot, func(), error) {
	payload, err := h.loader(ctx, wishlistID)
	if err != nil {
		return nil, nil, err
	}

	h.mu.Lock()
	t, ok := h.topics[wishlistID]
	if !ok {
		t = &topic{subs: map[int]*subscriber{}}
		h.topics[wishlistID] = t
	}
	h.nextID++
	id := h.nextID
	sub := &subscriber{ch: make(chan Snapshot, 1)}
	// Seed before registering: the buffer is empty and no Publish can reach
	// this channel yet, so the send never blocks.
	sub.ch <- Snapshot{WishlistID: wishlistID, Seq: t.seq, Payload: payload}
	t.subs[id] = sub
	h.mu.Unlock()

	h.metrics.SubscriberConnected()

	cancel := func() {
		h.mu.Lock()
		if t, ok := h.topics[wishlistID]; ok {
			if _, present := t.subs[id]; present {
				delete(t.subs, id)
				close(sub.ch)
				if len(t.subs) == 0 {
					delete(h.topics, wishlistID)
				}
			}
		}
		h.mu.Unlock()
		h.metrics.SubscriberDisconnected()
	}
	return sub.ch, cancel, nil
}

// Publish loads the wishlist's current state and delivers it to every
// subscriber. Wishlists nobody watches cost nothing.
func (h *Hub) Publish(ctx context.Context, wishlistID uuid.UUID) {
	h.mu.Lock()
	t, ok := h.topics[wishlistID]
	if !ok || len(t.subs) == 0 {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	payload, err := h.loader(ctx, wishlistID)
	if err != nil {
		if h.logg != nil {
			h.logg.Warn(ctx, "snapshot load failed: "+err.Error())
		}
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok = h.topics[wishlistID]
	if !ok {
		return
	}
	t.seq++
	snap := Snapshot{WishlistID: wishlistID, Seq: t.seq, Payload: payload}
	for _, sub := range t.subs {
		// Coalesce: replace a stale queued snapshot with the newest one.
		select {
		case sub.ch <- snap:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- snap:
			default:
			}
		}
	}
}

// Subscribers reports the watcher count for one wishlist.
func (h *Hub) Subscribers(wishlistID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.topics[wishlistID]; ok {
		return len(t.subs)
	}
	return 0
}
