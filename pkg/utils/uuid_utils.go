package utils

import "github.com/google/uuid"

// GenerateUUIDv7 returns a time-ordered UUID. IDs generated in sequence sort
// by creation time, which keeps primary key indexes append-mostly.
func GenerateUUIDv7() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		// entropy exhaustion only; fall back to v4
		return uuid.New()
	}
	return id
}
