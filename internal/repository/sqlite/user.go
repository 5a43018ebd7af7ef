package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/solwinner/internal/apperror"
	"github.com/sakif/solwinner/internal/model"
	"github.com/sakif/solwinner/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// UpsertUser inserts the user or, if the Discord ID is already known,
// overwrites the display name, avatar and last login.
//
// INSERT ... ON CONFLICT DO UPDATE runs as one statement, so the row is
// never observed half-written. Unlike INSERT OR REPLACE it updates in place
// instead of deleting and re-inserting.
func (db *DB) UpsertUser(ctx context.Context, profile model.Profile, at time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (discord_id, username, avatar, last_login)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(discord_id) DO UPDATE SET
			username   = excluded.username,
			avatar     = excluded.avatar,
			last_login = excluded.last_login`,
		profile.ID,
		profile.DisplayName,
		nullString(profile.Avatar),
		formatTime(at),
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting user %s: %w", profile.ID, err)
	}
	return nil
}

// GetUser retrieves a user by Discord ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUser(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT discord_id, username, avatar, last_login FROM users WHERE discord_id = ?`,
		id,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// ListUsers returns every registered user ordered by Discord ID.
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT discord_id, username, avatar, last_login FROM users ORDER BY discord_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user rows: %w", err)
	}

	return users, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var (
		u         model.User
		username  sql.NullString
		avatar    sql.NullString
		lastLogin sql.NullString
	)
	if err := s.Scan(&u.ID, &username, &avatar, &lastLogin); err != nil {
		return nil, err
	}

	u.DisplayName = username.String
	if avatar.Valid {
		a := avatar.String
		u.Avatar = &a
	}
	if lastLogin.Valid && lastLogin.String != "" {
		t, err := parseTime(lastLogin.String)
		if err != nil {
			return nil, fmt.Errorf("parsing last_login %q: %w", lastLogin.String, err)
		}
		u.LastLogin = t
	}

	return &u, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
