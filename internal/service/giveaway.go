// Package service holds the giveaway's business rules.
//
//	GiveawayHandler (HTTP) → GiveawayService → DiscordProvider (OAuth)
//	                                         ↘ UserRepository / EntryRepository (DB)
//
// The service never touches cookies or HTTP status codes; it returns
// apperror values and leaves the mapping to the handler layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/solwinner/internal/apperror"
	"github.com/sakif/solwinner/internal/metrics"
	"github.com/sakif/solwinner/internal/model"
	"github.com/sakif/solwinner/internal/repository"
)

// ProfileExchanger turns an OAuth authorization code into a profile.
// *auth.DiscordProvider implements it.
type ProfileExchanger interface {
	Exchange(ctx context.Context, code string) (*model.Profile, error)
}

// GiveawayService orchestrates logins, entries and the admin listing.
type GiveawayService struct {
	provider ProfileExchanger
	users    repository.UserRepository
	entries  repository.EntryRepository
	metrics  metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewGiveawayService wires a GiveawayService. A nil recorder disables metrics.
func NewGiveawayService(
	provider ProfileExchanger,
	users repository.UserRepository,
	entries repository.EntryRepository,
	rec metrics.Recorder,
	logger *slog.Logger,
) *GiveawayService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &GiveawayService{
		provider: provider,
		users:    users,
		entries:  entries,
		metrics:  rec,
		logger:   logger,
		now:      time.Now,
	}
}

// CompleteLogin handles the OAuth callback: it exchanges the code for the
// Discord profile and records the login.
//
// The two upstream calls happen inside the provider, one after the other.
// Nothing is retried; on failure the user has to start again from /login.
func (s *GiveawayService) CompleteLogin(ctx context.Context, code string) (*model.Profile, error) {
	profile, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.metrics.RecordLoginFailure(failureReason(err))
		return nil, fmt.Errorf("service: exchanging code: %w", err)
	}

	if err := s.users.UpsertUser(ctx, *profile, s.now()); err != nil {
		s.metrics.RecordLoginFailure(metrics.ReasonStore)
		return nil, fmt.Errorf("service: recording login for %s: %w", profile.ID, err)
	}

	s.metrics.RecordLogin()
	s.logger.Info("user logged in",
		slog.String("userID", profile.ID),
		slog.String("displayName", profile.DisplayName),
	)

	return profile, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, apperror.ErrUpstreamAuth):
		return metrics.ReasonUpstreamAuth
	case errors.Is(err, apperror.ErrUpstreamProfile):
		return metrics.ReasonUpstreamProfile
	default:
		return metrics.ReasonInvalid
	}
}

// EnterResult is returned by Enter.
type EnterResult struct {
	Entry   *model.Entry
	Created bool // false when the user had already entered
}

// Enter records the user's giveaway entry. Entering twice is not an error:
// the first entry stands and Created is false.
func (s *GiveawayService) Enter(ctx context.Context, userID string) (*EnterResult, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("userID", "user ID must not be empty")
	}

	created, err := s.entries.RecordEntryOnce(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("service: entering %s: %w", userID, err)
	}
	s.metrics.RecordEntry(created)

	entry, err := s.entries.GetEntry(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: reading entry for %s: %w", userID, err)
	}

	if created {
		s.logger.Info("giveaway entry recorded",
			slog.String("userID", userID),
			slog.String("ticket", entry.Ticket),
		)
	} else {
		s.logger.Debug("duplicate giveaway entry ignored", slog.String("userID", userID))
	}

	return &EnterResult{Entry: entry, Created: created}, nil
}

// EntryFor returns the user's entry, or nil if they have not entered yet.
func (s *GiveawayService) EntryFor(ctx context.Context, userID string) (*model.Entry, error) {
	entry, err := s.entries.GetEntry(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("service: looking up entry for %s: %w", userID, err)
	}
	return entry, nil
}

// AdminRow is one line of the admin listing.
type AdminRow struct {
	User  model.User
	Entry *model.Entry // nil when the user has not entered
}

// AdminListing returns every registered user alongside their entry, if any.
func (s *GiveawayService) AdminListing(ctx context.Context) ([]AdminRow, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: listing users: %w", err)
	}

	entries, err := s.entries.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: listing entries: %w", err)
	}

	byUser := make(map[string]*model.Entry, len(entries))
	for i := range entries {
		byUser[entries[i].UserID] = &entries[i]
	}

	rows := make([]AdminRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, AdminRow{User: u, Entry: byUser[u.ID]})
	}
	return rows, nil
}
