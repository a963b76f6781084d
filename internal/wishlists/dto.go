package wishlists

import (
	"time"

	"github.com/google/uuid"

	"github.com/Faith-Anthony/presently/internal/items"
	"github.com/Faith-Anthony/presently/pkg/db/models"
)

// CreateWishlistRequest is the owner payload for creating a wishlist. Items
// supplied here count toward the per-wishlist item quota.
type CreateWishlistRequest struct {
	Name        string            `json:"name" validate:"required,max=200"`
	Description string            `json:"description" validate:"max=2000"`
	EventDate   *time.Time        `json:"event_date"`
	Items       []items.ItemInput `json:"items" validate:"dive"`
}

// UpdateWishlistRequest carries partial wishlist metadata edits.
type UpdateWishlistRequest struct {
	Name        *string    `json:"name" validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	EventDate   *time.Time `json:"event_date"`
	ClearDate   bool       `json:"clear_date"`
}

// WishlistDTO is the transport shape for a wishlist without its items.
type WishlistDTO struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	EventDate   *time.Time `json:"event_date,omitempty"`
	ItemCount   int        `json:"item_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// WishlistDetailDTO bundles a wishlist with its item collection.
type WishlistDetailDTO struct {
	WishlistDTO
	Items []items.ItemDTO `json:"items"`
}

// WishlistPageDTO is a cursor-paginated slice of the owner's wishlists.
type WishlistPageDTO struct {
	Wishlists  []WishlistDTO `json:"wishlists"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// ShareLinks carries every URL surface the owner can hand out.
type ShareLinks struct {
	Direct   string `json:"direct"`
	Personal string `json:"personal"`
}

// CreateWishlistResponse returns the fresh wishlist plus its share links.
type CreateWishlistResponse struct {
	Wishlist WishlistDetailDTO `json:"wishlist"`
	Share    ShareLinks        `json:"share"`
}

// FromModel converts a wishlist row to its transport shape.
func FromModel(w *models.Wishlist) *WishlistDTO {
	if w == nil {
		return nil
	}
	return &WishlistDTO{
		ID:          w.ID,
		OwnerID:     w.OwnerID,
		Name:        w.Name,
		Description: w.Description,
		EventDate:   w.EventDate,
		ItemCount:   w.ItemCount,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}
