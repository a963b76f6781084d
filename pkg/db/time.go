package db

import (
	"time"

	"gorm.io/gorm"
)

// ServerTime reads the database clock. Reservation timestamps must come from
// here, never from the application host, so that racing clients cannot skew
// ordering with their own clocks.
func ServerTime(tx *gorm.DB) (time.Time, error) {
	if tx.Dialector.Name() == "sqlite" {
		var raw string
		if err := tx.Raw("SELECT strftime('%Y-%m-%dT%H:%M:%fZ', 'now')").Scan(&raw).Error; err != nil {
			return time.Time{}, err
		}
		return time.Parse(time.RFC3339Nano, raw)
	}

	var now time.Time
	if err := tx.Raw("SELECT NOW()").Scan(&now).Error; err != nil {
		return time.Time{}, err
	}
	return now.UTC(), nil
}
