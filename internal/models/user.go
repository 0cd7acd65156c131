package models

import (
	"time"

	"github.com/google/uuid"
)

// User is read from the auth service's table; this service never writes it.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}
