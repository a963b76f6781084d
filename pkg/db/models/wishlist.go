package models

import (
	"time"

	"github.com/google/uuid"
)

// Wishlist is an event gift list owned by exactly one user. ItemCount is a
// denormalized cache of the live item rows and must be adjusted in the same
// transaction as any item insert or delete.
type Wishlist struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID     uuid.UUID  `gorm:"column:owner_id;type:uuid;not null;index:wishlists_owner_id_idx"`
	Name        string     `gorm:"column:name;type:text;not null"`
	Description string     `gorm:"column:description;type:text;not null;default:''"`
	EventDate   *time.Time `gorm:"column:event_date"`
	ItemCount   int        `gorm:"column:item_count;not null;default:0"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
