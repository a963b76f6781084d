package items

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Faith-Anthony/presently/pkg/db/models"
	"github.com/Faith-Anthony/presently/pkg/enums"
)

// ItemInput is the owner-supplied shape for creating or replacing item
// details. Status and reservation fields are never accepted here.
type ItemInput struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Quantity    int     `json:"quantity" validate:"omitempty,min=1,max=999"`
	Price       string  `json:"price" validate:"omitempty"`
	Currency    string  `json:"currency" validate:"omitempty"`
	VendorLink  string  `json:"vendor_link" validate:"omitempty,url,max=2048"`
	ImageURL    string  `json:"image_url" validate:"omitempty,url,max=2048"`
}

// UpdateItemRequest carries partial edits; nil fields are left untouched.
type UpdateItemRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Quantity    *int    `json:"quantity" validate:"omitempty,min=1,max=999"`
	Price       *string `json:"price"`
	Currency    *string `json:"currency"`
	VendorLink  *string `json:"vendor_link" validate:"omitempty,url,max=2048"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url,max=2048"`
}

// ReservationView is what guests and owners see about a reserved item. The
// claim token hash never leaves the database.
type ReservationView struct {
	ReservedBy *string    `json:"reserved_by,omitempty"`
	Phone      *string    `json:"phone,omitempty"`
	Message    *string    `json:"message,omitempty"`
	ReservedAt *time.Time `json:"reserved_at,omitempty"`
}

// ItemDTO is the transport shape for a wishlist item.
type ItemDTO struct {
	ID          uuid.UUID        `json:"id"`
	WishlistID  uuid.UUID        `json:"wishlist_id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Quantity    int              `json:"quantity"`
	Price       decimal.Decimal  `json:"price"`
	Currency    enums.Currency   `json:"currency"`
	VendorLink  string           `json:"vendor_link,omitempty"`
	ImageURL    string           `json:"image_url,omitempty"`
	Status      enums.ItemStatus `json:"status"`
	Reservation *ReservationView `json:"reservation,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// FromModel converts an item row to its transport shape. Reservation detail
// is included only when the item is reserved; callers decide whether the
// viewer may see it at all.
func FromModel(item *models.Item, includeReservation bool) *ItemDTO {
	if item == nil {
		return nil
	}
	dto := &ItemDTO{
		ID:          item.ID,
		WishlistID:  item.WishlistID,
		Name:        item.Name,
		Description: item.Description,
		Quantity:    item.Quantity,
		Price:       item.Price,
		Currency:    item.Currency,
		VendorLink:  item.VendorLink,
		ImageURL:    item.ImageURL,
		Status:      item.Status,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
	if includeReservation && item.Status == enums.ItemStatusReserved {
		dto.Reservation = &ReservationView{
			ReservedBy: item.ReservedByName,
			Phone:      item.ReservedByPhone,
			Message:    item.ReservedMessage,
			ReservedAt: item.ReservedAt,
		}
	}
	return dto
}

// FromModels maps a slice of rows preserving order.
func FromModels(rows []models.Item, includeReservation bool) []ItemDTO {
	out := make([]ItemDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i], includeReservation))
	}
	return out
}
