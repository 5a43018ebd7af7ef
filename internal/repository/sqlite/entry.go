package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/solwinner/internal/apperror"
	"github.com/sakif/solwinner/internal/model"
	"github.com/sakif/solwinner/internal/repository"
)

// compile-time check that *DB implements repository.EntryRepository
var _ repository.EntryRepository = (*DB)(nil)

// entrySelect reads an entry with its ticket. Entries written before tickets
// existed have no entry_tickets row and come back with an empty ticket.
const entrySelect = `
	SELECT e.discord_id, e.entered_at, COALESCE(t.ticket, '')
	FROM entries e
	LEFT JOIN entry_tickets t ON t.discord_id = e.discord_id`

// RecordEntryOnce inserts an entry for userID unless one exists.
//
// ON CONFLICT DO NOTHING makes the second and later calls no-ops: the first
// timestamp and ticket are kept. RowsAffected tells us which case we hit, and
// only the winning insert writes a ticket, in the same transaction.
// Because every statement goes through the single pooled connection, two
// concurrent calls for the same user cannot both see RowsAffected == 1.
func (db *DB) RecordEntryOnce(ctx context.Context, userID string, at time.Time) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning entry for %s: %w", userID, err)
	}
	defer tx.Rollback() // no-op after Commit

	res, err := tx.ExecContext(ctx,
		`INSERT INTO entries (discord_id, entered_at)
		 VALUES (?, ?)
		 ON CONFLICT(discord_id) DO NOTHING`,
		userID,
		formatTime(at),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: recording entry for %s: %w", userID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: reading rows affected for %s: %w", userID, err)
	}
	if n == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO entry_tickets (discord_id, ticket) VALUES (?, ?)`,
		userID,
		xid.New().String(),
	); err != nil {
		return false, fmt.Errorf("sqlite: issuing ticket for %s: %w", userID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing entry for %s: %w", userID, err)
	}
	return true, nil
}

// GetEntry returns the entry for userID.
// Returns apperror.ErrNotFound if the user has not entered.
func (db *DB) GetEntry(ctx context.Context, userID string) (*model.Entry, error) {
	row := db.conn.QueryRowContext(ctx, entrySelect+` WHERE e.discord_id = ?`, userID)

	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("entry", userID)
		}
		return nil, fmt.Errorf("sqlite: getting entry %s: %w", userID, err)
	}
	return e, nil
}

// ListEntries returns every entry, earliest first.
func (db *DB) ListEntries(ctx context.Context) ([]model.Entry, error) {
	rows, err := db.conn.QueryContext(ctx, entrySelect+` ORDER BY e.entered_at, e.discord_id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing entries: %w", err)
	}
	defer rows.Close()

	entries := []model.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning entry row: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating entry rows: %w", err)
	}

	return entries, nil
}

func scanEntry(s scanner) (*model.Entry, error) {
	var (
		e         model.Entry
		enteredAt sql.NullString
	)
	if err := s.Scan(&e.UserID, &enteredAt, &e.Ticket); err != nil {
		return nil, err
	}

	if enteredAt.Valid && enteredAt.String != "" {
		t, err := parseTime(enteredAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing entered_at %q: %w", enteredAt.String, err)
		}
		e.EnteredAt = t
	}

	return &e, nil
}
