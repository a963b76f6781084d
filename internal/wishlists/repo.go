package wishlists

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Faith-Anthony/presently/pkg/db/models"
	"github.com/Faith-Anthony/presently/pkg/pagination"
)

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the wishlist row.
func (r *Repository) Create(ctx context.Context, wishlist *models.Wishlist) error {
	return r.db.WithContext(ctx).Create(wishlist).Error
}

// FindByID loads a wishlist by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Wishlist, error) {
	var wishlist models.Wishlist
	if err := r.db.WithContext(ctx).First(&wishlist, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &wishlist, nil
}

// FindOwned loads a wishlist while asserting ownership.
func (r *Repository) FindOwned(ctx context.Context, ownerID, id uuid.UUID) (*models.Wishlist, error) {
	var wishlist models.Wishlist
	err := r.db.WithContext(ctx).
		First(&wishlist, "id = ? AND owner_id = ?", id, ownerID).Error
	if err != nil {
		return nil, err
	}
	return &wishlist, nil
}

// ListByOwner returns a cursor-paginated page of the owner's wishlists,
// newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, cursor string, limit int) (WishlistPageDTO, error) {
	normalizedLimit := pagination.NormalizeLimit(limit)
	limitWithBuffer := pagination.LimitWithBuffer(limit)
	decodedCursor, err := pagination.ParseCursor(strings.TrimSpace(cursor))
	if err != nil {
		return WishlistPageDTO{}, err
	}

	query := r.db.WithContext(ctx).
		Model(&models.Wishlist{}).
		Where("owner_id = ?", ownerID)

	if decodedCursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}

	var rows []models.Wishlist
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limitWithBuffer).
		Find(&rows).Error
	if err != nil {
		return WishlistPageDTO{}, err
	}

	nextCursor := ""
	if len(rows) > normalizedLimit {
		rows = rows[:normalizedLimit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	wishlists := make([]WishlistDTO, 0, len(rows))
	for i := range rows {
		wishlists = append(wishlists, *FromModel(&rows[i]))
	}
	return WishlistPageDTO{Wishlists: wishlists, NextCursor: nextCursor}, nil
}

// Save persists metadata edits to an existing wishlist.
func (r *Repository) Save(ctx context.Context, wishlist *models.Wishlist) error {
	return r.db.WithContext(ctx).Save(wishlist).Error
}

// Delete removes the wishlist row and reports whether anything was deleted.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Wishlist{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReserveItemSlots bumps item_count by n only while the result stays within
// limit. Atomic, so concurrent adds cannot oversell the item quota.
func (r *Repository) ReserveItemSlots(ctx context.Context, id uuid.UUID, n, limit int) (bool, error) {
	if n <= 0 {
		return true, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Wishlist{}).
		Where("id = ? AND item_count + ? <= ?", id, n, limit).
		UpdateColumn("item_count", gorm.Expr("item_count + ?", n))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReleaseItemSlots lowers item_count by n, clamping at zero.
func (r *Repository) ReleaseItemSlots(ctx context.Context, id uuid.UUID, n int) error {
	if n <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Wishlist{}).
		Where("id = ? AND item_count >= ?", id, n).
		UpdateColumn("item_count", gorm.Expr("item_count - ?", n)).Error
}
