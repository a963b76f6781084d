package items

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Faith-Anthony/presently/pkg/db/models"
	"github.com/Faith-Anthony/presently/pkg/enums"
)

// Repository exposes item persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an items repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the item rows in order.
func (r *Repository) Create(ctx context.Context, rows []*models.Item) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

// FindByID loads a single item.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindInWishlist loads an item while asserting it belongs to the wishlist.
func (r *Repository) FindInWishlist(ctx context.Context, wishlistID, itemID uuid.UUID) (*models.Item, error) {
	var item models.Item
	err := r.db.WithContext(ctx).
		First(&item, "id = ? AND wishlist_id = ?", itemID, wishlistID).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByWishlist returns all items of a wishlist in insertion order.
func (r *Repository) ListByWishlist(ctx context.Context, wishlistID uuid.UUID) ([]models.Item, error) {
	var rows []models.Item
	err := r.db.WithContext(ctx).
		Where("wishlist_id = ?", wishlistID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// Save persists owner edits to an existing row.
func (r *Repository) Save(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// Delete removes the item row and reports whether anything was deleted.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Item{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteByWishlist removes every item of a wishlist, returning the count.
func (r *Repository) DeleteByWishlist(ctx context.Context, wishlistID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Item{}, "wishlist_id = ?", wishlistID)
	return res.RowsAffected, res.Error
}

// MarkReserved flips the item to reserved only if it is still unpicked. The
// guarded update is the whole concurrency story: of N simultaneous guests
// exactly one update matches the status predicate.
func (r *Repository) MarkReserved(ctx context.Context, itemID uuid.UUID, claim ReservationWrite) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ? AND status = ?", itemID, enums.ItemStatusUnpicked).
		Updates(map[string]any{
			"status":            enums.ItemStatusReserved,
			"reserved_by_name":  claim.Name,
			"reserved_by_phone": claim.Phone,
			"reserved_message":  claim.Message,
			"reserved_at":       claim.At,
			"claim_token_hash":  claim.TokenHash,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkUnpicked releases a reservation only when the item is reserved and the
// presented token hash matches the stored one.
func (r *Repository) MarkUnpicked(ctx context.Context, itemID uuid.UUID, tokenHash string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ? AND status = ? AND claim_token_hash = ?",
			itemID, enums.ItemStatusReserved, tokenHash).
		Updates(map[string]any{
			"status":            enums.ItemStatusUnpicked,
			"reserved_by_name":  nil,
			"reserved_by_phone": nil,
			"reserved_message":  nil,
			"reserved_at":       nil,
			"claim_token_hash":  nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ForceUnpick clears a reservation without a token. Owner-only path.
func (r *Repository) ForceUnpick(ctx context.Context, itemID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ? AND status = ?", itemID, enums.ItemStatusReserved).
		Updates(map[string]any{
			"status":            enums.ItemStatusUnpicked,
			"reserved_by_name":  nil,
			"reserved_by_phone": nil,
			"reserved_message":  nil,
			"reserved_at":       nil,
			"claim_token_hash":  nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReservationWrite bundles the columns set when a reservation succeeds. At
// must come from the database clock, never the caller's.
type ReservationWrite struct {
	Name      string
	Phone     *string
	Message   *string
	At        time.Time
	TokenHash string
}
