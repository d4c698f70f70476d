package models

import "github.com/google/uuid"

// User is the slice of the surrounding system's identity record this
// service needs: an id and a display name to snapshot as the alias.
type User struct {
	ID          uuid.UUID `json:"id" db:"id"`
	DisplayName string    `json:"display_name" db:"display_name"`
}
