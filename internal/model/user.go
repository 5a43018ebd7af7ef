// Package model defines the data structures used throughout the application.
package model

import "time"

// Profile is the normalised identity returned by the OAuth provider.
//
// It is also exactly what travels in the session cookie, so it only holds
// what the pages need: the Discord ID, a display name and the avatar hash.
//
// WHY Avatar *string?
// Discord returns "avatar": null for accounts that never uploaded a picture.
// A nil pointer keeps that distinction all the way to the database, where
// it becomes SQL NULL instead of an empty string.
type Profile struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"` // "username#discriminator"
	Avatar      *string `json:"avatar"`
}

// User is a registered user row. Created or refreshed on every successful
// OAuth callback and never deleted.
type User struct {
	ID          string    `json:"id"          db:"discord_id"`
	DisplayName string    `json:"displayName" db:"username"`
	Avatar      *string   `json:"avatar"      db:"avatar"`
	LastLogin   time.Time `json:"lastLogin"   db:"last_login"`
}
