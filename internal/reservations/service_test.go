package reservations

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/Faith-Anthony/presently/pkg/config"
	"github.com/Faith-Anthony/presently/pkg/db"
	"github.com/Faith-Anthony/presently/pkg/db/models"
	"github.com/Faith-Anthony/presently/pkg/enums"
	pkgerrors "github.com/Faith-Anthony/presently/pkg/errors"
	"github.com/Faith-Anthony/presently/pkg/outbox"
)

type fixture struct {
	client     *db.Client
	svc        Service
	ownerID    uuid.UUID
	wishlistID uuid.UUID
	itemID     uuid.UUID
	changes    []uuid.UUID
	mu         sync.Mutex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	client, err := db.New(context.Background(), config.DBConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
	}, nil)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.DB().AutoMigrate(
		&models.User{}, &models.Wishlist{}, &models.Item{}, &models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	f := &fixture{client: client}

	owner := &models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		DisplayName:  "Ada",
		IsActive:     true,
	}
	if err := client.DB().Create(owner).Error; err != nil {
		t.Fatalf("seed owner: %v", err)
	}
	f.ownerID = owner.ID

	wishlist := &models.Wishlist{
		ID:        uuid.New(),
		OwnerID:   owner.ID,
		Name:      "Birthday",
		ItemCount: 1,
	}
	if err := client.DB().Create(wishlist).Error; err != nil {
		t.Fatalf("seed wishlist: %v", err)
	}
	f.wishlistID = wishlist.ID

	item := &models.Item{
		ID:         uuid.New(),
		WishlistID: wishlist.ID,
		Name:       "Air Fryer",
		Quantity:   1,
		Currency:   enums.DefaultCurrency,
		Status:     enums.ItemStatusUnpicked,
	}
	if err := client.DB().Create(item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	f.itemID = item.ID

	svc, err := NewService(ServiceParams{
		DB:     client,
		Outbox: outbox.NewService(outbox.NewRepository(client.DB()), nil),
		OnChange: func(id uuid.UUID) {
			f.mu.Lock()
			f.changes = append(f.changes, id)
			f.mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	f.svc = svc
	return f
}

func TestReserveFlipsStatusAndMintsToken(t *testing.T) {
	f := newFixture(t)
	phone := "+2348012345678"
	message := "Happy birthday!"

	resp, err := f.svc.Reserve(context.Background(), f.wishlistID, f.itemID, Viewer{}, ReserveRequest{
		Name:    "Grace",
		Phone:   phone,
		Message: &message,
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if resp.Item.Status != enums.ItemStatusReserved {
		t.Fatalf("expected reserved status, got %s", resp.Item.Status)
	}
	if resp.ClaimToken == "" {
		t.Fatalf("expected claim token")
	}
	if resp.Item.Reservation != nil {
		t.Fatalf("guest response must not echo reservation contact details")
	}

	var row models.Item
	if err := f.client.DB().First(&row, "id = ?", f.itemID).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if row.ReservedAt == nil {
		t.Fatalf("expected server-side reserved_at")
	}
	if row.ClaimTokenHash == nil || *row.ClaimTokenHash == resp.ClaimToken {
		t.Fatalf("token must be stored hashed, not raw")
	}
	if !TokenMatchesHash(resp.ClaimToken, *row.ClaimTokenHash) {
		t.Fatalf("stored hash does not match the minted token")
	}

	var events []models.OutboxEvent
	if err := f.client.DB().Find(&events).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(events) != 1 || events[0].EventType != enums.EventItemReserved {
		t.Fatalf("expected one item_reserved event, got %+v", events)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.changes) != 1 || f.changes[0] != f.wishlistID {
		t.Fatalf("expected one change notification for the wishlist")
	}
}

func TestReserveExactlyOneWinner(t *testing.T) {
	f := newFixture(t)

	const guests = 10
	var wg sync.WaitGroup
	tokens := make([]string, guests)
	errs := make([]error, guests)
	for i := 0; i < guests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := f.svc.Reserve(context.Background(), f.wishlistID, f.itemID, Viewer{}, ReserveRequest{
				Name:  fmt.Sprintf("Guest %d", i),
				Phone: fmt.Sprintf("+23480000000%02d", i),
			})
			if err != nil {
				errs[i] = err
				return
			}
			tokens[i] = resp.ClaimToken
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < guests; i++ {
		if errs[i] == nil {
			winners++
			continue
		}
		typed := pkgerrors.As(errs[i])
		if typed == nil || typed.Code() != pkgerrors.CodeConflict {
			t.Fatalf("loser %d: expected conflict, got %v", i, errs[i])
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}

	var row models.Item
	if err := f.client.DB().First(&row, "id = ?", f.itemID).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if row.Status != enums.ItemStatusReserved {
		t.Fatalf("expected item reserved after the race")
	}
}

func TestUnreserveRequiresMatchingToken(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Reserve(context.Background(), f.wishlistID, f.itemID, Viewer{}, ReserveRequest{Name: "Grace", Phone: "+2348012345678"})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	_, err = f.svc.Unreserve(context.Background(), f.wishlistID, f.itemID, UnreserveRequest{
		ClaimToken: "stolen-token",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for wrong token, got %v", err)
	}

	released, err := f.svc.Unreserve(context.Background(), f.wishlistID, f.itemID, UnreserveRequest{
		ClaimToken: resp.ClaimToken,
	})
	if err != nil {
		t.Fatalf("unreserve: %v", err)
	}
	if released.Status != enums.ItemStatusUnpicked {
		t.Fatalf("expected unpicked after release, got %s", released.Status)
	}

	var row models.Item
	if err := f.client.DB().First(&row, "id = ?", f.itemID).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if row.ReservedByName != nil || row.ReservedByPhone != nil || row.ReservedMessage != nil ||
		row.ReservedAt != nil || row.ClaimTokenHash != nil {
		t.Fatalf("expected all reservation columns cleared, got %+v", row)
	}
}

func TestUnreserveUnpickedItemIsStateConflict(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Unreserve(context.Background(), f.wishlistID, f.itemID, UnreserveRequest{
		ClaimToken: "anything",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for unpicked item, got %v", err)
	}
}

func TestReserveUnknownItem(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Reserve(context.Background(), f.wishlistID, uuid.New(), Viewer{}, ReserveRequest{Name: "Grace", Phone: "+2348012345678"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReserveReleasedItemAgain(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Reserve(context.Background(), f.wishlistID, f.itemID, Viewer{}, ReserveRequest{Name: "Grace", Phone: "+2348012345678"})
	if err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	if _, err := f.svc.Unreserve(context.Background(), f.wishlistID, f.itemID, UnreserveRequest{
		ClaimToken: first.ClaimToken,
	}); err != nil {
		t.Fatalf("unreserve: %v", err)
	}

	second, err := f.svc.Reserve(context.Background(), f.wishlistID, f.itemID, Viewer{}, ReserveRequest{Name: "Linus", Phone: "+2348098765432"})
	if err != nil {
		t.Fatalf("second reserve: %v", err)
	}
	if second.ClaimToken == first.ClaimToken {
		t.Fatalf("expected a fresh claim token per reservation")
	}

	// The stale token from the first reservation must no longer work.
	_, err = f.svc.Unreserve(context.Background(), f.wishlistID, f.itemID, UnreserveRequest{
		ClaimToken: first.ClaimToken,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for stale token, got %v", err)
	}
}

func TestPublicViewHidesContactDetails(t *testing.T) {
	f := newFixture(t)
	phone := "+2348012345678"
	message := "from all of us"

	if _, err := f.svc.Reserve(context.Background(), f.wishlistID, f.itemID, Viewer{}, ReserveRequest{
		Name:    "Grace",
		Phone:   phone,
		Message: &message,
	}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	view, err := f.svc.PublicView(context.Background(), f.wishlistID, Viewer{})
	if err != nil {
		t.Fatalf("public view: %v", err)
	}
	if view.OwnerName != "Ada" {
		t.Fatalf("expected owner display name, got %q", view.OwnerName)
	}
	if len(view.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(view.Items))
	}
	entry := view.Items[0]
	if entry.ReservedBy == nil || *entry.ReservedBy != "Grace" {
		t.Fatalf("expected claimant name visible, got %v", entry.ReservedBy)
	}
	if entry.Reservation != nil {
		t.Fatalf("phone and message must not appear in the public view")
	}
}

func TestPublicViewUnknownWishlist(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PublicView(context.Background(), uuid.New(), Viewer{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReserveRequiresContactPhone(t *testing.T) {
	f := newFixture(t)

	for _, phone := range []string{"", "   "} {
		_, err := f.svc.Reserve(context.Background(), f.wishlistID, f.itemID, Viewer{}, ReserveRequest{
			Name:  "Grace",
			Phone: phone,
		})
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("phone %q: expected validation error, got %v", phone, err)
		}
	}

	var row models.Item
	if err := f.client.DB().First(&row, "id = ?", f.itemID).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if row.Status != enums.ItemStatusUnpicked {
		t.Fatalf("item must stay unpicked without a contact phone, got %s", row.Status)
	}
}

func TestReserveRejectsWishlistOwner(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Reserve(context.Background(), f.wishlistID, f.itemID, Viewer{UserID: f.ownerID}, ReserveRequest{
		Name:  "Ada",
		Phone: "+2348012345678",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for the owner, got %v", err)
	}

	var row models.Item
	if err := f.client.DB().First(&row, "id = ?", f.itemID).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if row.Status != enums.ItemStatusUnpicked {
		t.Fatalf("owner attempt must not flip status, got %s", row.Status)
	}

	// Any other signed-in user is still an ordinary guest here.
	if _, err := f.svc.Reserve(context.Background(), f.wishlistID, f.itemID, Viewer{UserID: uuid.New()}, ReserveRequest{
		Name:  "Grace",
		Phone: "+2348012345678",
	}); err != nil {
		t.Fatalf("non-owner reserve: %v", err)
	}
}

func TestPublicViewAnnotatesViewerActions(t *testing.T) {
	f := newFixture(t)

	view, err := f.svc.PublicView(context.Background(), f.wishlistID, Viewer{})
	if err != nil {
		t.Fatalf("public view: %v", err)
	}
	if !view.Items[0].Actions.CanReserve {
		t.Fatalf("anonymous guest must be offered reserve on an unpicked item")
	}

	if _, err := f.svc.Reserve(context.Background(), f.wishlistID, f.itemID, Viewer{}, ReserveRequest{
		Name:  "Grace",
		Phone: "+2348012345678",
	}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	stranger, err := f.svc.PublicView(context.Background(), f.wishlistID, Viewer{})
	if err != nil {
		t.Fatalf("stranger view: %v", err)
	}
	if !stranger.Items[0].Actions.ReservedByOther || stranger.Items[0].Actions.CanUndo {
		t.Fatalf("stranger must see the item as taken, got %+v", stranger.Items[0].Actions)
	}

	claimant, err := f.svc.PublicView(context.Background(), f.wishlistID, Viewer{
		ClaimedItems: map[uuid.UUID]struct{}{f.itemID: {}},
	})
	if err != nil {
		t.Fatalf("claimant view: %v", err)
	}
	if !claimant.Items[0].Actions.CanUndo {
		t.Fatalf("claim holder must be offered undo, got %+v", claimant.Items[0].Actions)
	}

	owner, err := f.svc.PublicView(context.Background(), f.wishlistID, Viewer{UserID: f.ownerID})
	if err != nil {
		t.Fatalf("owner view: %v", err)
	}
	actions := owner.Items[0].Actions
	if !actions.OwnerControls || actions.CanReserve || actions.CanUndo {
		t.Fatalf("unexpected owner actions %+v", actions)
	}
	if owner.Items[0].Reservation == nil || owner.Items[0].Reservation.Phone == nil {
		t.Fatalf("owner must see claimant contact details on the shared page")
	}
}
