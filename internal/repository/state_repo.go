package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"watchdogd"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

const (
	watchdogStateRowID = 1

	insertOrUpdateStateSQL = `
		INSERT INTO watchdog_state (id, armed, requested_ms, interval_code, interval_ms, keepalive, last_kick_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			armed=excluded.armed,
			requested_ms=excluded.requested_ms,
			interval_code=excluded.interval_code,
			interval_ms=excluded.interval_ms,
			keepalive=excluded.keepalive,
			last_kick_at=excluded.last_kick_at,
			updated_at=excluded.updated_at
	`

	selectStateSQL = `
		SELECT id, armed, requested_ms, interval_code, interval_ms, keepalive, last_kick_at, updated_at
		FROM watchdog_state WHERE id=?
	`
)

// Save updates or inserts the watchdog_state row (id always 1).
// Timestamps are persisted as UTC; a zero UpdatedAt is set to now.
func (r *StateSQLite) Save(ctx context.Context, state watchdogd.WatchdogState) error {
	tsUTC := state.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	var lastKick sql.NullTime
	if !state.LastKickAt.IsZero() {
		lastKick = sql.NullTime{Time: state.LastKickAt.UTC(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, insertOrUpdateStateSQL,
		watchdogStateRowID,
		state.Armed,
		state.RequestedMillis,
		state.IntervalCode,
		state.IntervalMillis,
		state.KeepaliveActive,
		lastKick,
		tsUTC,
	)
	return err
}

// Load fetches the single watchdog_state row (id=1). A missing row is not
// an error: the daemon simply has never armed the timer.
func (r *StateSQLite) Load(ctx context.Context) (watchdogd.WatchdogState, error) {
	row := r.db.QueryRowContext(ctx, selectStateSQL, watchdogStateRowID)

	var s watchdogd.WatchdogState
	var lastKick sql.NullTime
	if err := row.Scan(
		&s.ID,
		&s.Armed,
		&s.RequestedMillis,
		&s.IntervalCode,
		&s.IntervalMillis,
		&s.KeepaliveActive,
		&lastKick,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return watchdogd.WatchdogState{}, nil
		}
		return watchdogd.WatchdogState{}, err
	}

	if lastKick.Valid {
		s.LastKickAt = lastKick.Time.UTC()
	}
	s.UpdatedAt = s.UpdatedAt.UTC()

	return s, nil
}
