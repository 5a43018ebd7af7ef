// Package repository declares the storage contracts the service layer
// depends on. The sqlite subpackage is the only production implementation.
package repository

import (
	"context"
	"time"

	"github.com/sakif/solwinner/internal/model"
)

// UserRepository stores registered users keyed by their Discord ID.
type UserRepository interface {
	// UpsertUser inserts the user or overwrites every non-key field.
	UpsertUser(ctx context.Context, profile model.Profile, at time.Time) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

// EntryRepository stores giveaway entries, at most one per user.
type EntryRepository interface {
	// RecordEntryOnce inserts an entry unless one already exists for userID.
	// created reports whether this call wrote the row. A duplicate is not
	// an error.
	RecordEntryOnce(ctx context.Context, userID string, at time.Time) (created bool, err error)
	GetEntry(ctx context.Context, userID string) (*model.Entry, error)
	ListEntries(ctx context.Context) ([]model.Entry, error)
}
