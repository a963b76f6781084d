package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Faith-Anthony/presently/pkg/enums"
)

// Item is the unit of reservation contention. Status transitions are owned by
// the reservation service; owners edit every other field but never status.
// ClaimTokenHash stores the sha256 of the capability token handed to the
// reserving guest; it is the only accepted proof on unreserve.
type Item struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	WishlistID      uuid.UUID        `gorm:"column:wishlist_id;type:uuid;not null;index:items_wishlist_id_idx"`
	Name            string           `gorm:"column:name;type:text;not null"`
	Description     string           `gorm:"column:description;type:text;not null;default:''"`
	Quantity        int              `gorm:"column:quantity;not null;default:1"`
	Price           decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null;default:0"`
	Currency        enums.Currency   `gorm:"column:currency;type:text;not null"`
	VendorLink      string           `gorm:"column:vendor_link;type:text;not null;default:''"`
	ImageURL        string           `gorm:"column:image_url;type:text;not null;default:''"`
	Status          enums.ItemStatus `gorm:"column:status;type:text;not null;default:'unpicked';index:items_status_idx"`
	ReservedByName  *string          `gorm:"column:reserved_by_name"`
	ReservedByPhone *string          `gorm:"column:reserved_by_phone"`
	ReservedMessage *string          `gorm:"column:reserved_message"`
	ReservedAt      *time.Time       `gorm:"column:reserved_at"`
	ClaimTokenHash  *string          `gorm:"column:claim_token_hash"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
