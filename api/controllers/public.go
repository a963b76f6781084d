package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Faith-Anthony/presently/api/middleware"
	"github.com/Faith-Anthony/presently/api/responses"
	"github.com/Faith-Anthony/presently/api/validators"
	"github.com/Faith-Anthony/presently/internal/claims"
	"github.com/Faith-Anthony/presently/internal/reservations"
	"github.com/Faith-Anthony/presently/internal/snapshots"
	"github.com/Faith-Anthony/presently/pkg/enums"
	pkgerrors "github.com/Faith-Anthony/presently/pkg/errors"
	"github.com/Faith-Anthony/presently/pkg/logger"
)

// viewerFromRequest assembles the reservation viewer: an optional signed-in
// user plus whatever claims the calling device's ledger holds for this
// wishlist. Ledger failures degrade to an anonymous viewer.
func viewerFromRequest(ctx context.Context, ledger *claims.Ledger, wishlistID uuid.UUID) reservations.Viewer {
	viewer := reservations.Viewer{}
	if raw := middleware.UserIDFromContext(ctx); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			viewer.UserID = id
		}
	}
	deviceID := middleware.DeviceIDFromContext(ctx)
	if ledger == nil || deviceID == "" {
		return viewer
	}
	entries, err := ledger.List(ctx, deviceID)
	if err != nil {
		return viewer
	}
	for _, entry := range entries {
		if entry.WishlistID != wishlistID {
			continue
		}
		if viewer.ClaimedItems == nil {
			viewer.ClaimedItems = map[uuid.UUID]struct{}{}
		}
		viewer.ClaimedItems[entry.ItemID] = struct{}{}
	}
	return viewer
}

// PublicWishlist serves the guest view of a shared wishlist.
func PublicWishlist(svc reservations.Service, ledger *claims.Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		wishlistID, err := validators.ParseUUIDParam(r, "wishlistID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		statusFilter, err := parseStatusFilter(r.URL.Query().Get("status"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.PublicView(ctx, wishlistID, viewerFromRequest(ctx, ledger, wishlistID))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if statusFilter != "" {
			filtered := make([]reservations.PublicItemDTO, 0, len(resp.Items))
			for _, item := range resp.Items {
				if item.Status == statusFilter {
					filtered = append(filtered, item)
				}
			}
			resp.Items = filtered
		}
		responses.WriteSuccess(w, resp)
	}
}

// parseStatusFilter maps the guest view's status tab to an item status. An
// empty or "all" value means no filtering.
func parseStatusFilter(raw string) (enums.ItemStatus, error) {
	switch raw {
	case "", "all":
		return "", nil
	case string(enums.ItemStatusReserved):
		return enums.ItemStatusReserved, nil
	case string(enums.ItemStatusUnpicked):
		return enums.ItemStatusUnpicked, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "status must be one of all, reserved, unpicked")
	}
}

// PublicReserve claims an unpicked item for an anonymous guest. When the
// caller supplied a device id, the claim is also written to its ledger.
func PublicReserve(svc reservations.Service, ledger *claims.Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
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

		var body reservations.ReserveRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.Reserve(ctx, wishlistID, itemID, viewerFromRequest(ctx, nil, wishlistID), body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if deviceID := middleware.DeviceIDFromContext(ctx); deviceID != "" && ledger != nil {
			reservedAt := time.Now().UTC()
			if resp.Item.Reservation != nil && resp.Item.Reservation.ReservedAt != nil {
				reservedAt = *resp.Item.Reservation.ReservedAt
			}
			entry := claims.Entry{
				ItemID:     itemID,
				WishlistID: wishlistID,
				ClaimToken: resp.ClaimToken,
				ReservedAt: reservedAt,
			}
			if err := ledger.Record(ctx, deviceID, entry); err != nil && logg != nil {
				// the reservation stands; the ledger is convenience state
				logg.Warn(logg.WithFields(ctx, map[string]any{"device_id": deviceID}), "claims.ledger.record_failed")
			}
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// PublicUnreserve releases a reservation when the caller proves ownership of
// the claim. A missing body token falls back to the device ledger.
func PublicUnreserve(svc reservations.Service, ledger *claims.Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
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

		var body reservations.UnreserveRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		deviceID := middleware.DeviceIDFromContext(ctx)
		if body.ClaimToken == "" && deviceID != "" && ledger != nil {
			if token, ok, lookupErr := ledger.TokenFor(ctx, deviceID, itemID); lookupErr == nil && ok {
				body.ClaimToken = token
			}
		}
		if body.ClaimToken == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "claim token required"))
			return
		}

		resp, err := svc.Unreserve(ctx, wishlistID, itemID, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if deviceID != "" && ledger != nil {
			if err := ledger.Forget(ctx, deviceID, itemID); err != nil && logg != nil {
				logg.Warn(logg.WithFields(ctx, map[string]any{"device_id": deviceID}), "claims.ledger.forget_failed")
			}
		}

		responses.WriteSuccess(w, resp)
	}
}

// PublicClaims lists the calling device's recorded reservations.
func PublicClaims(ledger *claims.Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if ledger == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "claim ledger unavailable"))
			return
		}

		deviceID := middleware.DeviceIDFromContext(ctx)
		entries, err := ledger.List(ctx, deviceID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string][]claims.Entry{"claims": entries})
	}
}

// PublicWishlistStream pushes wishlist snapshots over server-sent events.
// The first event is the current state; later events follow item changes.
func PublicWishlistStream(hub *snapshots.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if hub == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "snapshot hub unavailable"))
			return
		}

		wishlistID, err := validators.ParseUUIDParam(r, "wishlistID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		updates, cancel, err := hub.Subscribe(ctx, wishlistID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case <-ctx.Done():
				return
			case snap, open := <-updates:
				if !open {
					return
				}
				payload, marshalErr := json.Marshal(snap.Payload)
				if marshalErr != nil {
					if logg != nil {
						logg.Error(ctx, "snapshot marshal failed", marshalErr)
					}
					return
				}
				fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", snap.Seq, payload)
				flusher.Flush()
			}
		}
	}
}
