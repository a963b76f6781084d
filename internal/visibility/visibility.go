// Package visibility decides which item actions a given viewer may take.
// It is pure policy: no storage, no transport.
package visibility

import "github.com/Faith-Anthony/presently/pkg/enums"

// Viewer describes who is looking at an item.
type Viewer struct {
	// IsOwner is true when the wishlist belongs to the authenticated user.
	IsOwner bool
	// HoldsClaim is true when the viewer presented (or locally holds) the
	// claim token for this specific item.
	HoldsClaim bool
}

// ItemActions is the resolved action surface for one item.
type ItemActions struct {
	// OwnerControls gates edit/delete of the item.
	OwnerControls bool `json:"owner_controls"`
	// CanReserve is true when the viewer may attempt a reservation.
	CanReserve bool `json:"can_reserve"`
	// CanUndo is true when the viewer may release the reservation.
	CanUndo bool `json:"can_undo"`
	// ReservedByOther marks items claimed by somebody else; the UI renders
	// these as taken.
	ReservedByOther bool `json:"reserved_by_other"`
	// SeesContactDetails gates the claimant's phone and message.
	SeesContactDetails bool `json:"sees_contact_details"`
}

// Resolve maps a viewer and an item status onto the allowed actions.
//
// Owners never reserve their own items and never undo a guest's claim
// through the guest path; guests reserve unpicked items and undo only the
// reservations they hold the claim for.
func Resolve(viewer Viewer, status enums.ItemStatus) ItemActions {
	actions := ItemActions{
		OwnerControls:      viewer.IsOwner,
		SeesContactDetails: viewer.IsOwner,
	}

	switch status {
	case enums.ItemStatusUnpicked:
		actions.CanReserve = !viewer.IsOwner
	case enums.ItemStatusReserved:
		if viewer.IsOwner {
			return actions
		}
		if viewer.HoldsClaim {
			actions.CanUndo = true
		} else {
			actions.ReservedByOther = true
		}
	}
	return actions
}
