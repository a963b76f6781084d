package reservations

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Faith-Anthony/presently/internal/items"
	"github.com/Faith-Anthony/presently/internal/users"
	"github.com/Faith-Anthony/presently/internal/visibility"
	"github.com/Faith-Anthony/presently/internal/wishlists"
	"github.com/Faith-Anthony/presently/pkg/db"
	"github.com/Faith-Anthony/presently/pkg/db/models"
	"github.com/Faith-Anthony/presently/pkg/enums"
	pkgerrors "github.com/Faith-Anthony/presently/pkg/errors"
	"github.com/Faith-Anthony/presently/pkg/metrics"
	"github.com/Faith-Anthony/presently/pkg/outbox"
	"github.com/Faith-Anthony/presently/pkg/outbox/payloads"
)

// Service owns every item status transition. Reserve and Unreserve are the
// only writers of the status column anywhere in the codebase.
type Service interface {
	PublicView(ctx context.Context, wishlistID uuid.UUID, viewer Viewer) (*PublicWishlistDTO, error)
	Reserve(ctx context.Context, wishlistID, itemID uuid.UUID, viewer Viewer, req ReserveRequest) (*ReserveResponse, error)
	Unreserve(ctx context.Context, wishlistID, itemID uuid.UUID, req UnreserveRequest) (*items.ItemDTO, error)
}

// ServiceParams groups dependencies for the reservation service.
type ServiceParams struct {
	DB       *db.Client
	Outbox   *outbox.Service
	Metrics  *metrics.ReservationMetrics
	OnChange func(wishlistID uuid.UUID)
}

type service struct {
	db       *db.Client
	outbox   *outbox.Service
	metrics  *metrics.ReservationMetrics
	onChange func(wishlistID uuid.UUID)
}

// NewService builds a reservation service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &service{
		db:       params.DB,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		onChange: params.OnChange,
	}, nil
}

// PublicView renders the guest-facing wishlist: every item, with reserved
// ones showing only who claimed them. Each item is annotated with the actions
// the viewer may take; an owner looking at their own shared page gets the
// claimant contact details back.
func (s *service) PublicView(ctx context.Context, wishlistID uuid.UUID, viewer Viewer) (*PublicWishlistDTO, error) {
	if wishlistID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist id is required")
	}
	conn := s.db.DB()

	wishlist, err := wishlists.NewRepository(conn).FindByID(ctx, wishlistID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wishlist not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wishlist")
	}

	owner, err := users.NewRepository(conn).FindByID(ctx, wishlist.OwnerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load owner")
	}

	rows, err := items.NewRepository(conn).ListByWishlist(ctx, wishlistID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list items")
	}

	view := &PublicWishlistDTO{
		ID:          wishlist.ID,
		Name:        wishlist.Name,
		Description: wishlist.Description,
		EventDate:   wishlist.EventDate,
		ItemCount:   wishlist.ItemCount,
		Items:       make([]PublicItemDTO, 0, len(rows)),
	}
	if owner != nil {
		view.OwnerName = owner.DisplayName
	}
	isOwner := viewer.UserID != uuid.Nil && viewer.UserID == wishlist.OwnerID
	for i := range rows {
		actions := visibility.Resolve(visibility.Viewer{
			IsOwner:    isOwner,
			HoldsClaim: viewer.holdsClaim(rows[i].ID),
		}, rows[i].Status)
		entry := PublicItemDTO{
			ItemDTO: *items.FromModel(&rows[i], actions.SeesContactDetails),
			Actions: actions,
		}
		if rows[i].Status == enums.ItemStatusReserved {
			entry.ReservedBy = rows[i].ReservedByName
		}
		view.Items = append(view.Items, entry)
	}
	return view, nil
}

// Reserve claims an unpicked item for a guest. The status flip is a single
// guarded update: when N guests race, one row matches and the rest observe
// zero rows affected and get a conflict. Authenticated owners are refused on
// their own wishlists regardless of what the client renders.
func (s *service) Reserve(ctx context.Context, wishlistID, itemID uuid.UUID, viewer Viewer, req ReserveRequest) (*ReserveResponse, error) {
	guestName := strings.TrimSpace(req.Name)
	if guestName == "" {
		s.metrics.ObserveAttempt("reserve", "invalid")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	guestPhone := strings.TrimSpace(req.Phone)
	if guestPhone == "" {
		s.metrics.ObserveAttempt("reserve", "invalid")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}

	token, tokenHash, err := NewClaimToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint claim token")
	}

	var reserved *models.Item
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		itemRepo := items.NewRepository(tx)

		if viewer.UserID != uuid.Nil {
			wishlist, err := wishlists.NewRepository(tx).FindByID(ctx, wishlistID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wishlist")
			}
			if wishlist.OwnerID == viewer.UserID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "owners cannot reserve items on their own wishlist")
			}
		}

		item, err := itemRepo.FindInWishlist(ctx, wishlistID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load item")
		}

		// The database clock, not the caller's.
		now, err := db.ServerTime(tx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read server time")
		}

		ok, err := itemRepo.MarkReserved(ctx, itemID, items.ReservationWrite{
			Name:      guestName,
			Phone:     &guestPhone,
			Message:   trimPtr(req.Message),
			At:        now,
			TokenHash: tokenHash,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve item")
		}
		if !ok {
			// The row existed moments ago, so a zero-row update means
			// somebody else won the race.
			return pkgerrors.New(pkgerrors.CodeConflict, "item was just reserved by someone else")
		}

		item.Status = enums.ItemStatusReserved
		item.ReservedByName = &guestName
		item.ReservedByPhone = &guestPhone
		item.ReservedMessage = trimPtr(req.Message)
		item.ReservedAt = &now

		if s.outbox != nil {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventItemReserved,
				AggregateType: enums.AggregateItem,
				AggregateID:   itemID,
				Actor:         &outbox.ActorRef{Role: "guest"},
				Data: payloads.ItemReserved{
					ItemID:        itemID,
					WishlistID:    wishlistID,
					ReservedBy:    guestName,
					ReservedAt:    now,
					HasPhone:      item.ReservedByPhone != nil,
					MessageLength: messageLen(item.ReservedMessage),
				},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue reservation event")
			}
		}

		reserved = item
		return nil
	})
	if err != nil {
		typed := pkgerrors.As(err)
		switch {
		case typed != nil && typed.Code() == pkgerrors.CodeConflict:
			s.metrics.ObserveAttempt("reserve", "conflict")
			s.metrics.IncConflict()
		case typed != nil && typed.Code() == pkgerrors.CodeForbidden:
			s.metrics.ObserveAttempt("reserve", "forbidden")
		case typed != nil && typed.Code() == pkgerrors.CodeNotFound:
			s.metrics.ObserveAttempt("reserve", "not_found")
		default:
			s.metrics.ObserveAttempt("reserve", "error")
		}
		return nil, err
	}

	s.metrics.ObserveAttempt("reserve", "success")
	s.notify(wishlistID)

	return &ReserveResponse{
		Item:       *items.FromModel(reserved, false),
		ClaimToken: token,
	}, nil
}

// Unreserve releases a reserved item when the presented claim token matches.
func (s *service) Unreserve(ctx context.Context, wishlistID, itemID uuid.UUID, req UnreserveRequest) (*items.ItemDTO, error) {
	token := strings.TrimSpace(req.ClaimToken)
	if token == "" {
		s.metrics.ObserveAttempt("unreserve", "invalid")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "claim token is required")
	}
	tokenHash := HashClaimToken(token)

	var released *models.Item
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		itemRepo := items.NewRepository(tx)

		item, err := itemRepo.FindInWishlist(ctx, wishlistID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load item")
		}
		if item.Status != enums.ItemStatusReserved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "item is not reserved")
		}
		if item.ClaimTokenHash == nil || !TokenMatchesHash(token, *item.ClaimTokenHash) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "claim token does not match this reservation")
		}

		ok, err := itemRepo.MarkUnpicked(ctx, itemID, tokenHash)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release item")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "item is not reserved")
		}

		item.Status = enums.ItemStatusUnpicked
		item.ReservedByName = nil
		item.ReservedByPhone = nil
		item.ReservedMessage = nil
		item.ReservedAt = nil
		item.ClaimTokenHash = nil

		if s.outbox != nil {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventItemUnreserved,
				AggregateType: enums.AggregateItem,
				AggregateID:   itemID,
				Actor:         &outbox.ActorRef{Role: "guest"},
				Data: payloads.ItemUnreserved{
					ItemID:     itemID,
					WishlistID: wishlistID,
				},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue release event")
			}
		}

		released = item
		return nil
	})
	if err != nil {
		typed := pkgerrors.As(err)
		switch {
		case typed != nil && typed.Code() == pkgerrors.CodeStateConflict:
			s.metrics.ObserveAttempt("unreserve", "state_conflict")
		case typed != nil && typed.Code() == pkgerrors.CodeForbidden:
			s.metrics.ObserveAttempt("unreserve", "forbidden")
		case typed != nil && typed.Code() == pkgerrors.CodeNotFound:
			s.metrics.ObserveAttempt("unreserve", "not_found")
		default:
			s.metrics.ObserveAttempt("unreserve", "error")
		}
		return nil, err
	}

	s.metrics.ObserveAttempt("unreserve", "success")
	s.notify(wishlistID)
	return items.FromModel(released, false), nil
}

func (s *service) notify(wishlistID uuid.UUID) {
	if s.onChange != nil {
		s.onChange(wishlistID)
	}
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func messageLen(value *string) int {
	if value == nil {
		return 0
	}
	return len(*value)
}
