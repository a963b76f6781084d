// Package payloads defines the event data shapes serialized into the outbox.
package payloads

import (
	"time"

	"github.com/google/uuid"
)

// UserRegistered is emitted once when a new account is created.
type UserRegistered struct {
	UserID      uuid.UUID `json:"userId"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
}

// WishlistCreated is emitted when an owner creates a wishlist, after the
// quota counter has been consumed in the same transaction.
type WishlistCreated struct {
	WishlistID uuid.UUID  `json:"wishlistId"`
	OwnerID    uuid.UUID  `json:"ownerId"`
	Name       string     `json:"name"`
	EventDate  *time.Time `json:"eventDate,omitempty"`
	ItemCount  int        `json:"itemCount"`
}

// WishlistUpdated is emitted when wishlist metadata changes.
type WishlistUpdated struct {
	WishlistID uuid.UUID `json:"wishlistId"`
	OwnerID    uuid.UUID `json:"ownerId"`
	Name       string    `json:"name"`
}

// WishlistDeleted is emitted when a wishlist and its items are removed.
type WishlistDeleted struct {
	WishlistID   uuid.UUID `json:"wishlistId"`
	OwnerID      uuid.UUID `json:"ownerId"`
	ItemsRemoved int       `json:"itemsRemoved"`
}

// ItemAdded is emitted when an item joins a wishlist.
type ItemAdded struct {
	ItemID     uuid.UUID `json:"itemId"`
	WishlistID uuid.UUID `json:"wishlistId"`
	Name       string    `json:"name"`
}

// ItemUpdated is emitted when an owner edits item details.
type ItemUpdated struct {
	ItemID     uuid.UUID `json:"itemId"`
	WishlistID uuid.UUID `json:"wishlistId"`
}

// ItemDeleted is emitted when an owner removes an item.
type ItemDeleted struct {
	ItemID     uuid.UUID `json:"itemId"`
	WishlistID uuid.UUID `json:"wishlistId"`
}

// ItemReserved is emitted when a guest wins the reservation race for an item.
type ItemReserved struct {
	ItemID        uuid.UUID `json:"itemId"`
	WishlistID    uuid.UUID `json:"wishlistId"`
	ReservedBy    string    `json:"reservedBy"`
	ReservedAt    time.Time `json:"reservedAt"`
	HasPhone      bool      `json:"hasPhone"`
	MessageLength int       `json:"messageLength"`
}

// ItemUnreserved is emitted when a reservation is released.
type ItemUnreserved struct {
	ItemID     uuid.UUID `json:"itemId"`
	WishlistID uuid.UUID `json:"wishlistId"`
}
