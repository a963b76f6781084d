package enums

import "fmt"

// ItemStatus tracks the reservation state of a wishlist item.
type ItemStatus string

const (
	ItemStatusUnpicked ItemStatus = "unpicked"
	ItemStatusReserved ItemStatus = "reserved"
)

var validItemStatuses = []ItemStatus{
	ItemStatusUnpicked,
	ItemStatusReserved,
}

// String implements fmt.Stringer.
func (s ItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseItemStatus converts raw input into an ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}
