package domain

import "time"

type WeightEntry struct {
	ID         string // ULID
	UserID     string
	WeightKG   float64
	RecordedOn string // YYYY-MM-DD
	CreatedAt  time.Time
}
