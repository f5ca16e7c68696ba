package models

import "time"

// TrashRetention is how long a soft-deleted record stays restorable.
const TrashRetention = 30 * 24 * time.Hour

// TrashItem is a soft-deleted record held for the retention window. Data is
// the full snapshot taken at deletion time, so a restore loses nothing.
type TrashItem struct {
	ID        string
	UserID    string
	Table     Table
	Data      Record
	DeletedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the item is eligible for silent purge at now.
func (t TrashItem) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
