package reservations

import (
	"time"

	"github.com/google/uuid"

	"github.com/Faith-Anthony/presently/internal/items"
	"github.com/Faith-Anthony/presently/internal/visibility"
)

// ReserveRequest is the guest payload for claiming an item. No account is
// involved; the name is whatever the guest wants the owner to see, and the
// phone number is how the owner reaches the claimant.
type ReserveRequest struct {
	Name    string  `json:"name" validate:"required,max=120"`
	Phone   string  `json:"phone" validate:"required,max=32"`
	Message *string `json:"message" validate:"omitempty,max=500"`
}

// ReserveResponse returns the item's new state plus the capability token the
// guest must keep to undo the reservation later.
type ReserveResponse struct {
	Item       items.ItemDTO `json:"item"`
	ClaimToken string        `json:"claim_token"`
}

// UnreserveRequest presents the capability token from a prior reservation.
// The token may be omitted when the caller's device ledger holds one.
type UnreserveRequest struct {
	ClaimToken string `json:"claim_token" validate:"omitempty,max=128"`
}

// PublicWishlistDTO is the guest-facing view. Reserved items expose only the
// claimant name, never phone or message, and the owner id is withheld. A
// viewer who owns the wishlist sees the full contact details instead.
type PublicWishlistDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	EventDate   *time.Time      `json:"event_date,omitempty"`
	OwnerName   string          `json:"owner_name"`
	ItemCount   int             `json:"item_count"`
	Items       []PublicItemDTO `json:"items"`
}

// PublicItemDTO is an item as a guest sees it. Actions carries the resolved
// action surface so clients never have to re-derive the policy.
type PublicItemDTO struct {
	items.ItemDTO
	ReservedBy *string                `json:"reserved_by,omitempty"`
	Actions    visibility.ItemActions `json:"actions"`
}

// Viewer identifies who is asking for the guest surface. The zero value is an
// anonymous guest.
type Viewer struct {
	// UserID is set when the caller presented valid owner credentials.
	UserID uuid.UUID
	// ClaimedItems holds the item ids the caller's device ledger has claim
	// tokens for.
	ClaimedItems map[uuid.UUID]struct{}
}

func (v Viewer) holdsClaim(itemID uuid.UUID) bool {
	_, ok := v.ClaimedItems[itemID]
	return ok
}
