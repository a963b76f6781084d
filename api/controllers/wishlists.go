package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Faith-Anthony/presently/api/middleware"
	"github.com/Faith-Anthony/presently/api/responses"
	"github.com/Faith-Anthony/presently/api/validators"
	"github.com/Faith-Anthony/presently/internal/items"
	"github.com/Faith-Anthony/presently/internal/wishlists"
	pkgerrors "github.com/Faith-Anthony/presently/pkg/errors"
	"github.com/Faith-Anthony/presently/pkg/logger"
)

const maxPageSize = 50

func ownerFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

// WishlistCreate creates a wishlist, optionally seeded with initial items.
func WishlistCreate(svc wishlists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body wishlists.CreateWishlistRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.Create(ctx, ownerID, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// WishlistList returns the owner's wishlists, newest first.
func WishlistList(svc wishlists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxPageSize)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		cursor := validators.SanitizeString(r.URL.Query().Get("cursor"), 512)
		resp, err := svc.List(ctx, ownerID, cursor, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// WishlistGet returns one owned wishlist with its items.
func WishlistGet(svc wishlists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		wishlistID, err := validators.ParseUUIDParam(r, "wishlistID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.Get(ctx, ownerID, wishlistID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// WishlistUpdate edits wishlist metadata.
func WishlistUpdate(svc wishlists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		wishlistID, err := validators.ParseUUIDParam(r, "wishlistID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body wishlists.UpdateWishlistRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.Update(ctx, ownerID, wishlistID, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// WishlistDelete removes a wishlist and returns its plan slot.
func WishlistDelete(svc wishlists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		wishlistID, err := validators.ParseUUIDParam(r, "wishlistID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Delete(ctx, ownerID, wishlistID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// WishlistShareLinks returns the public URLs for a wishlist.
func WishlistShareLinks(svc wishlists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		wishlistID, err := validators.ParseUUIDParam(r, "wishlistID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.ShareLinksFor(ctx, ownerID, wishlistID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// WishlistAddItem appends an item subject to the per-wishlist quota.
func WishlistAddItem(svc wishlists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		wishlistID, err := validators.ParseUUIDParam(r, "wishlistID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body items.ItemInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.AddItem(ctx, ownerID, wishlistID, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// WishlistUpdateItem edits an item's describable fields.
func WishlistUpdateItem(svc wishlists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		wishlistID, err := validators.ParseUUIDParam(r, "wishlistID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		itemID, err := validators.ParseUUIDParam(r, "itemID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body items.UpdateItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.UpdateItem(ctx, ownerID, wishlistID, itemID, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// WishlistRemoveItem deletes an item and frees its quota slot.
func WishlistRemoveItem(svc wishlists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		wishlistID, err := validators.ParseUUIDParam(r, "wishlistID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		itemID, err := validators.ParseUUIDParam(r, "itemID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.RemoveItem(ctx, ownerID, wishlistID, itemID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"removed": true})
	}
}

// WishlistReleaseItem clears a guest reservation by owner authority, no
// claim token needed.
func WishlistReleaseItem(svc wishlists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		wishlistID, err := validators.ParseUUIDParam(r, "wishlistID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		itemID, err := validators.ParseUUIDParam(r, "itemID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.ReleaseItem(ctx, ownerID, wishlistID, itemID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
