// Package claims keeps a per-device record of which items a guest has
// reserved and the claim tokens that prove it. The ledger is a convenience
// cache for clients, never an authority: the item row's token hash is the
// only thing the reservation service trusts.
package claims

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	pkgerrors "github.com/Faith-Anthony/presently/pkg/errors"
)

// Store is the slice of the redis client the ledger needs.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	ClaimLedgerKey(deviceID string) string
}

// Entry records one reservation held by a device.
type Entry struct {
	ItemID     uuid.UUID `json:"item_id"`
	WishlistID uuid.UUID `json:"wishlist_id"`
	ClaimToken string    `json:"claim_token"`
	ReservedAt time.Time `json:"reserved_at"`
}

// Ledger reads and writes device claim records.
type Ledger struct {
	store Store
	ttl   time.Duration
}

// NewLedger builds a ledger. A zero TTL keeps entries until removed.
func NewLedger(store Store, ttl time.Duration) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("claims store is required")
	}
	return &Ledger{store: store, ttl: ttl}, nil
}

// Record stores the claim under the device, replacing any prior claim for
// the same item.
func (l *Ledger) Record(ctx context.Context, deviceID string, entry Entry) error {
	if err := validDevice(deviceID); err != nil {
		return err
	}
	if entry.ItemID == uuid.Nil || strings.TrimSpace(entry.ClaimToken) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id and claim token are required")
	}

	entries, err := l.load(ctx, deviceID)
	if err != nil {
		return err
	}
	entries[entry.ItemID] = entry
	return l.save(ctx, deviceID, entries)
}

// Forget drops the device's claim for an item. Unknown items are a no-op.
func (l *Ledger) Forget(ctx context.Context, deviceID string, itemID uuid.UUID) error {
	if err := validDevice(deviceID); err != nil {
		return err
	}
	entries, err := l.load(ctx, deviceID)
	if err != nil {
		return err
	}
	if _, ok := entries[itemID]; !ok {
		return nil
	}
	delete(entries, itemID)
	if len(entries) == 0 {
		return l.store.Del(ctx, l.store.ClaimLedgerKey(deviceID))
	}
	return l.save(ctx, deviceID, entries)
}

// TokenFor returns the stored claim token for an item, if the device has one.
func (l *Ledger) TokenFor(ctx context.Context, deviceID string, itemID uuid.UUID) (string, bool, error) {
	if err := validDevice(deviceID); err != nil {
		return "", false, err
	}
	entries, err := l.load(ctx, deviceID)
	if err != nil {
		return "", false, err
	}
	entry, ok := entries[itemID]
	if !ok {
		return "", false, nil
	}
	return entry.ClaimToken, true, nil
}

// List returns every claim the device holds, newest first.
func (l *Ledger) List(ctx context.Context, deviceID string) ([]Entry, error) {
	if err := validDevice(deviceID); err != nil {
		return nil, err
	}
	entries, err := l.load(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry)
	}
	sortEntries(out)
	return out, nil
}

func (l *Ledger) load(ctx context.Context, deviceID string) (map[uuid.UUID]Entry, error) {
	raw, err := l.store.Get(ctx, l.store.ClaimLedgerKey(deviceID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return map[uuid.UUID]Entry{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read claim ledger")
	}
	var entries map[uuid.UUID]Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		// A corrupt ledger only affects convenience state; start fresh.
		return map[uuid.UUID]Entry{}, nil
	}
	return entries, nil
}

func (l *Ledger) save(ctx context.Context, deviceID string, entries map[uuid.UUID]Entry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode claim ledger")
	}
	key := l.store.ClaimLedgerKey(deviceID)
	if err := l.store.Set(ctx, key, string(payload), l.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write claim ledger")
	}
	return nil
}

func validDevice(deviceID string) error {
	if strings.TrimSpace(deviceID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "device id is required")
	}
	return nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ReservedAt.After(entries[j].ReservedAt)
	})
}
