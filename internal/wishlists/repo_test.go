package wishlists

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Faith-Anthony/presently/pkg/db/models"
)

func setupWishlistsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.AutoMigrate(&models.Wishlist{}))
	return conn
}

func seedWishlist(t *testing.T, conn *gorm.DB, ownerID uuid.UUID, name string, createdAt time.Time) *models.Wishlist {
	t.Helper()
	wishlist := &models.Wishlist{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: createdAt,
	}
	require.NoError(t, conn.Create(wishlist).Error)
	return wishlist
}

func TestFindOwnedRejectsForeignOwner(t *testing.T) {
	conn := setupWishlistsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	owner := uuid.New()
	wishlist := seedWishlist(t, conn, owner, "Birthday", time.Now().UTC())

	found, err := repo.FindOwned(ctx, owner, wishlist.ID)
	require.NoError(t, err)
	assert.Equal(t, wishlist.ID, found.ID)

	_, err = repo.FindOwned(ctx, uuid.New(), wishlist.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestListByOwnerPaginatesNewestFirst(t *testing.T) {
	conn := setupWishlistsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	owner := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedWishlist(t, conn, owner, fmt.Sprintf("List %d", i), base.Add(time.Duration(i)*time.Hour))
	}
	seedWishlist(t, conn, uuid.New(), "Someone else's", base)

	page, err := repo.ListByOwner(ctx, owner, "", 2)
	require.NoError(t, err)
	require.Len(t, page.Wishlists, 2)
	assert.Equal(t, "List 2", page.Wishlists[0].Name)
	assert.Equal(t, "List 1", page.Wishlists[1].Name)
	require.NotEmpty(t, page.NextCursor)

	rest, err := repo.ListByOwner(ctx, owner, page.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, rest.Wishlists, 1)
	assert.Equal(t, "List 0", rest.Wishlists[0].Name)
	assert.Empty(t, rest.NextCursor)
}

func TestReserveItemSlotsStopsAtLimit(t *testing.T) {
	conn := setupWishlistsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	wishlist := seedWishlist(t, conn, uuid.New(), "Limited", time.Now().UTC())

	const limit = 5
	for i := 0; i < limit; i++ {
		ok, err := repo.ReserveItemSlots(ctx, wishlist.ID, 1, limit)
		require.NoError(t, err)
		assert.True(t, ok, "slot %d should fit", i)
	}

	ok, err := repo.ReserveItemSlots(ctx, wishlist.ID, 1, limit)
	require.NoError(t, err)
	assert.False(t, ok, "slot past the limit must be refused")

	var reloaded models.Wishlist
	require.NoError(t, conn.First(&reloaded, "id = ?", wishlist.ID).Error)
	assert.Equal(t, limit, reloaded.ItemCount)
}

func TestReleaseItemSlotsClampsAtZero(t *testing.T) {
	conn := setupWishlistsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	wishlist := seedWishlist(t, conn, uuid.New(), "Emptied", time.Now().UTC())
	ok, err := repo.ReserveItemSlots(ctx, wishlist.ID, 2, 5)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, repo.ReleaseItemSlots(ctx, wishlist.ID, 2))
	// Releasing below zero is a no-op, not a negative count.
	require.NoError(t, repo.ReleaseItemSlots(ctx, wishlist.ID, 1))

	var reloaded models.Wishlist
	require.NoError(t, conn.First(&reloaded, "id = ?", wishlist.ID).Error)
	assert.Equal(t, 0, reloaded.ItemCount)
}

func TestDeleteReportsMissingRow(t *testing.T) {
	conn := setupWishlistsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	wishlist := seedWishlist(t, conn, uuid.New(), "Doomed", time.Now().UTC())

	deleted, err := repo.Delete(ctx, wishlist.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, wishlist.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
