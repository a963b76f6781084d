package wishlists

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Faith-Anthony/presently/internal/items"
	"github.com/Faith-Anthony/presently/internal/users"
	"github.com/Faith-Anthony/presently/pkg/config"
	"github.com/Faith-Anthony/presently/pkg/db"
	"github.com/Faith-Anthony/presently/pkg/db/models"
	"github.com/Faith-Anthony/presently/pkg/enums"
	pkgerrors "github.com/Faith-Anthony/presently/pkg/errors"
	"github.com/Faith-Anthony/presently/pkg/metrics"
	"github.com/Faith-Anthony/presently/pkg/outbox"
	"github.com/Faith-Anthony/presently/pkg/outbox/payloads"
	"github.com/Faith-Anthony/presently/pkg/pagination"
)

// Service exposes owner-facing wishlist and item management. Every quota
// check shares a transaction with the write it guards.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, req CreateWishlistRequest) (*CreateWishlistResponse, error)
	List(ctx context.Context, ownerID uuid.UUID, cursor string, limit int) (WishlistPageDTO, error)
	Get(ctx context.Context, ownerID, wishlistID uuid.UUID) (*WishlistDetailDTO, error)
	Update(ctx context.Context, ownerID, wishlistID uuid.UUID, req UpdateWishlistRequest) (*WishlistDTO, error)
	Delete(ctx context.Context, ownerID, wishlistID uuid.UUID) error
	AddItem(ctx context.Context, ownerID, wishlistID uuid.UUID, input items.ItemInput) (*items.ItemDTO, error)
	UpdateItem(ctx context.Context, ownerID, wishlistID, itemID uuid.UUID, req items.UpdateItemRequest) (*items.ItemDTO, error)
	RemoveItem(ctx context.Context, ownerID, wishlistID, itemID uuid.UUID) error
	ReleaseItem(ctx context.Context, ownerID, wishlistID, itemID uuid.UUID) (*items.ItemDTO, error)
	ShareLinksFor(ctx context.Context, ownerID, wishlistID uuid.UUID) (*ShareLinks, error)
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	DB       *db.Client
	Plan     config.PlanConfig
	Share    config.ShareConfig
	Outbox   *outbox.Service
	Metrics  *metrics.ReservationMetrics
	OnChange func(wishlistID uuid.UUID)
}

type service struct {
	db       *db.Client
	plan     config.PlanConfig
	share    config.ShareConfig
	outbox   *outbox.Service
	metrics  *metrics.ReservationMetrics
	onChange func(wishlistID uuid.UUID)
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	if params.Plan.MaxFreeWishlists <= 0 || params.Plan.MaxItemsPerWishlist <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan limits must be positive")
	}
	return &service{
		db:       params.DB,
		plan:     params.Plan,
		share:    params.Share,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		onChange: params.OnChange,
	}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, req CreateWishlistRequest) (*CreateWishlistResponse, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}
	if len(req.Items) > s.plan.MaxItemsPerWishlist {
		s.metrics.IncQuotaRejection("items")
		return nil, s.itemQuotaError()
	}

	rows := make([]*models.Item, 0, len(req.Items))
	wishlistID := uuid.New()
	for _, input := range req.Items {
		row, err := items.BuildItem(wishlistID, input)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	var (
		created   *models.Wishlist
		ownerName string
	)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		owner, err := userRepo.FindByID(ctx, ownerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load owner")
		}
		ownerName = owner.DisplayName

		ok, err := userRepo.ConsumeFreeWishlistSlot(tx, ownerID, s.plan.MaxFreeWishlists)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume wishlist quota")
		}
		if !ok {
			s.metrics.IncQuotaRejection("wishlists")
			return pkgerrors.New(pkgerrors.CodeQuotaExceeded,
				fmt.Sprintf("free plan allows at most %d wishlists", s.plan.MaxFreeWishlists))
		}

		wishlist := &models.Wishlist{
			ID:          wishlistID,
			OwnerID:     ownerID,
			Name:        name,
			Description: req.Description,
			EventDate:   req.EventDate,
			ItemCount:   len(rows),
		}
		if err := NewRepository(tx).Create(ctx, wishlist); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create wishlist")
		}
		if err := items.NewRepository(tx).Create(ctx, rows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create initial items")
		}

		if err := s.emit(ctx, tx, enums.EventWishlistCreated, enums.AggregateWishlist, wishlist.ID, &ownerID,
			payloads.WishlistCreated{
				WishlistID: wishlist.ID,
				OwnerID:    ownerID,
				Name:       wishlist.Name,
				EventDate:  wishlist.EventDate,
				ItemCount:  wishlist.ItemCount,
			}); err != nil {
			return err
		}

		created = wishlist
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(wishlistID)

	detail := WishlistDetailDTO{WishlistDTO: *FromModel(created)}
	itemRows := make([]models.Item, 0, len(rows))
	for _, row := range rows {
		itemRows = append(itemRows, *row)
	}
	detail.Items = items.FromModels(itemRows, true)

	return &CreateWishlistResponse{
		Wishlist: detail,
		Share:    BuildShareLinks(s.share, ownerName, created.ID),
	}, nil
}

func (s *service) List(ctx context.Context, ownerID uuid.UUID, cursor string, limit int) (WishlistPageDTO, error) {
	if ownerID == uuid.Nil {
		return WishlistPageDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	page, err := NewRepository(s.db.DB()).ListByOwner(ctx, ownerID, cursor, limit)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return WishlistPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return WishlistPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list wishlists")
	}
	return page, nil
}

func (s *service) Get(ctx context.Context, ownerID, wishlistID uuid.UUID) (*WishlistDetailDTO, error) {
	wishlist, err := s.loadOwned(ctx, s.db.DB(), ownerID, wishlistID)
	if err != nil {
		return nil, err
	}
	rows, err := items.NewRepository(s.db.DB()).ListByWishlist(ctx, wishlistID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list items")
	}
	detail := &WishlistDetailDTO{WishlistDTO: *FromModel(wishlist)}
	detail.Items = items.FromModels(rows, true)
	return detail, nil
}

func (s *service) Update(ctx context.Context, ownerID, wishlistID uuid.UUID, req UpdateWishlistRequest) (*WishlistDTO, error) {
	var updated *models.Wishlist
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		wishlist, err := s.loadOwned(ctx, tx, ownerID, wishlistID)
		if err != nil {
			return err
		}
		if req.Name != nil {
			name, err := normalizeName(*req.Name)
			if err != nil {
				return err
			}
			wishlist.Name = name
		}
		if req.Description != nil {
			wishlist.Description = *req.Description
		}
		if req.ClearDate {
			wishlist.EventDate = nil
		} else if req.EventDate != nil {
			wishlist.EventDate = req.EventDate
		}
		if err := NewRepository(tx).Save(ctx, wishlist); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save wishlist")
		}
		if err := s.emit(ctx, tx, enums.EventWishlistUpdated, enums.AggregateWishlist, wishlist.ID, &ownerID,
			payloads.WishlistUpdated{
				WishlistID: wishlist.ID,
				OwnerID:    ownerID,
				Name:       wishlist.Name,
			}); err != nil {
			return err
		}
		updated = wishlist
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(wishlistID)
	return FromModel(updated), nil
}

// Delete removes the wishlist with its items and returns the quota slot, all
// in one transaction.
func (s *service) Delete(ctx context.Context, ownerID, wishlistID uuid.UUID) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.loadOwned(ctx, tx, ownerID, wishlistID); err != nil {
			return err
		}

		removed, err := items.NewRepository(tx).DeleteByWishlist(ctx, wishlistID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete items")
		}
		if _, err := NewRepository(tx).Delete(ctx, wishlistID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete wishlist")
		}
		if err := users.NewRepository(tx).ReleaseFreeWishlistSlot(tx, ownerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release wishlist quota")
		}

		return s.emit(ctx, tx, enums.EventWishlistDeleted, enums.AggregateWishlist, wishlistID, &ownerID,
			payloads.WishlistDeleted{
				WishlistID:   wishlistID,
				OwnerID:      ownerID,
				ItemsRemoved: int(removed),
			})
	})
	if err != nil {
		return err
	}
	s.notify(wishlistID)
	return nil
}

func (s *service) AddItem(ctx context.Context, ownerID, wishlistID uuid.UUID, input items.ItemInput) (*items.ItemDTO, error) {
	row, err := items.BuildItem(wishlistID, input)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.loadOwned(ctx, tx, ownerID, wishlistID); err != nil {
			return err
		}

		ok, err := NewRepository(tx).ReserveItemSlots(ctx, wishlistID, 1, s.plan.MaxItemsPerWishlist)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve item slot")
		}
		if !ok {
			s.metrics.IncQuotaRejection("items")
			return s.itemQuotaError()
		}

		if err := items.NewRepository(tx).Create(ctx, []*models.Item{row}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create item")
		}

		return s.emit(ctx, tx, enums.EventItemAdded, enums.AggregateItem, row.ID, &ownerID,
			payloads.ItemAdded{
				ItemID:     row.ID,
				WishlistID: wishlistID,
				Name:       row.Name,
			})
	})
	if err != nil {
		return nil, err
	}
	s.notify(wishlistID)
	return items.FromModel(row, true), nil
}

func (s *service) UpdateItem(ctx context.Context, ownerID, wishlistID, itemID uuid.UUID, req items.UpdateItemRequest) (*items.ItemDTO, error) {
	var updated *models.Item
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.loadOwned(ctx, tx, ownerID, wishlistID); err != nil {
			return err
		}
		itemRepo := items.NewRepository(tx)
		row, err := itemRepo.FindInWishlist(ctx, wishlistID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load item")
		}
		if err := items.ApplyUpdate(row, req); err != nil {
			return err
		}
		if err := itemRepo.Save(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save item")
		}
		if err := s.emit(ctx, tx, enums.EventItemUpdated, enums.AggregateItem, row.ID, &ownerID,
			payloads.ItemUpdated{ItemID: row.ID, WishlistID: wishlistID}); err != nil {
			return err
		}
		updated = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(wishlistID)
	return items.FromModel(updated, true), nil
}

func (s *service) RemoveItem(ctx context.Context, ownerID, wishlistID, itemID uuid.UUID) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.loadOwned(ctx, tx, ownerID, wishlistID); err != nil {
			return err
		}
		itemRepo := items.NewRepository(tx)
		if _, err := itemRepo.FindInWishlist(ctx, wishlistID, itemID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load item")
		}
		if _, err := itemRepo.Delete(ctx, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete item")
		}
		if err := NewRepository(tx).ReleaseItemSlots(ctx, wishlistID, 1); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release item slot")
		}
		return s.emit(ctx, tx, enums.EventItemDeleted, enums.AggregateItem, itemID, &ownerID,
			payloads.ItemDeleted{ItemID: itemID, WishlistID: wishlistID})
	})
	if err != nil {
		return err
	}
	s.notify(wishlistID)
	return nil
}

// ReleaseItem clears a guest reservation without a claim token. The owner's
// authority substitutes for the token, so guests keep theirs exclusive.
func (s *service) ReleaseItem(ctx context.Context, ownerID, wishlistID, itemID uuid.UUID) (*items.ItemDTO, error) {
	var released *models.Item
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.loadOwned(ctx, tx, ownerID, wishlistID); err != nil {
			return err
		}
		itemRepo := items.NewRepository(tx)
		if _, err := itemRepo.FindInWishlist(ctx, wishlistID, itemID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load item")
		}
		ok, err := itemRepo.ForceUnpick(ctx, itemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release reservation")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "item is not reserved")
		}
		row, err := itemRepo.FindByID(ctx, itemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload item")
		}
		if err := s.emit(ctx, tx, enums.EventItemUnreserved, enums.AggregateItem, itemID, &ownerID,
			payloads.ItemUnreserved{ItemID: itemID, WishlistID: wishlistID}); err != nil {
			return err
		}
		released = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(wishlistID)
	return items.FromModel(released, true), nil
}

func (s *service) ShareLinksFor(ctx context.Context, ownerID, wishlistID uuid.UUID) (*ShareLinks, error) {
	if _, err := s.loadOwned(ctx, s.db.DB(), ownerID, wishlistID); err != nil {
		return nil, err
	}
	owner, err := users.NewRepository(s.db.DB()).FindByID(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load owner")
	}
	links := BuildShareLinks(s.share, owner.DisplayName, wishlistID)
	return &links, nil
}

func (s *service) loadOwned(ctx context.Context, conn *gorm.DB, ownerID, wishlistID uuid.UUID) (*models.Wishlist, error) {
	if ownerID == uuid.Nil || wishlistID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist id is required")
	}
	wishlist, err := NewRepository(conn).FindOwned(ctx, ownerID, wishlistID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wishlist not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wishlist")
	}
	return wishlist, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID, actorID *uuid.UUID, data any) error {
	if s.outbox == nil {
		return nil
	}
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Data:          data,
	}
	if actorID != nil {
		event.Actor = &outbox.ActorRef{UserID: actorID, Role: "owner"}
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue event")
	}
	return nil
}

func (s *service) notify(wishlistID uuid.UUID) {
	if s.onChange != nil {
		s.onChange(wishlistID)
	}
}

func (s *service) itemQuotaError() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeQuotaExceeded,
		fmt.Sprintf("a wishlist may hold at most %d items", s.plan.MaxItemsPerWishlist))
}

func normalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "wishlist name is required")
	}
	return name, nil
}
