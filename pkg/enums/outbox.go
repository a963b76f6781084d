package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateWishlist OutboxAggregateType = "wishlist"
	AggregateItem     OutboxAggregateType = "item"
	AggregateUser     OutboxAggregateType = "user"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateWishlist,
	AggregateItem,
	AggregateUser,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventUserRegistered  OutboxEventType = "user_registered"
	EventWishlistCreated OutboxEventType = "wishlist_created"
	EventWishlistUpdated OutboxEventType = "wishlist_updated"
	EventWishlistDeleted OutboxEventType = "wishlist_deleted"
	EventItemAdded       OutboxEventType = "item_added"
	EventItemUpdated     OutboxEventType = "item_updated"
	EventItemDeleted     OutboxEventType = "item_deleted"
	EventItemReserved    OutboxEventType = "item_reserved"
	EventItemUnreserved  OutboxEventType = "item_unreserved"
)

var validOutboxEventTypes = []OutboxEventType{
	EventUserRegistered,
	EventWishlistCreated,
	EventWishlistUpdated,
	EventWishlistDeleted,
	EventItemAdded,
	EventItemUpdated,
	EventItemDeleted,
	EventItemReserved,
	EventItemUnreserved,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
