package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents the canonical identity entity. FreeWishlistsCreated is the
// quota counter: it is only ever mutated inside the same transaction that
// creates or deletes a wishlist.
type User struct {
	ID                   uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email                string     `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash         string     `gorm:"column:password_hash;not null"`
	DisplayName          string     `gorm:"column:display_name;not null"`
	FreeWishlistsCreated int        `gorm:"column:free_wishlists_created;not null;default:0"`
	IsActive             bool       `gorm:"column:is_active;not null;default:true"`
	LastLoginAt          *time.Time `gorm:"column:last_login_at"`
	CreatedAt            time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
