package model

import "time"

// GuestCartRecord is the database row for a persisted guest cart, used by
// the Postgres-backed store. The cart itself is stored as its JSON
// serialization; one row per guest id. UpdatedAt drives stale cart purging.
type GuestCartRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	GuestID   string    `gorm:"uniqueIndex;not null" json:"guest_id"`
	Payload   string    `gorm:"type:text;not null" json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (GuestCartRecord) TableName() string {
	return "guest_carts"
}
