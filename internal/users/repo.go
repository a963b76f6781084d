package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Faith-Anthony/presently/pkg/db/models"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// ConsumeFreeWishlistSlot bumps the quota counter only while it is still
// below limit. The guarded update is atomic, so two concurrent creates can
// never both claim the last slot. Returns false when the quota is exhausted.
func (r *Repository) ConsumeFreeWishlistSlot(tx *gorm.DB, id uuid.UUID, limit int) (bool, error) {
	res := tx.
		Model(&models.User{}).
		Where("id = ? AND free_wishlists_created < ?", id, limit).
		UpdateColumn("free_wishlists_created", gorm.Expr("free_wishlists_created + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReleaseFreeWishlistSlot gives a quota slot back after a wishlist delete,
// clamping at zero.
func (r *Repository) ReleaseFreeWishlistSlot(tx *gorm.DB, id uuid.UUID) error {
	return tx.
		Model(&models.User{}).
		Where("id = ? AND free_wishlists_created > 0", id).
		UpdateColumn("free_wishlists_created", gorm.Expr("free_wishlists_created - 1")).Error
}
