package repository

import (
	"context"
	"database/sql"
	"time"

	"watchdogd"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*watchdogd.User, error)
}

type StateRepo interface {
	Save(ctx context.Context, s watchdogd.WatchdogState) error
	Load(ctx context.Context) (watchdogd.WatchdogState, error)
}

type EventRepo interface {
	Append(ctx context.Context, e watchdogd.WatchdogEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]watchdogd.WatchdogEvent, error)
}

type Repository struct {
	StateRepo StateRepo
	EventRepo EventRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo: NewStateSQLite(db),
		EventRepo: NewEventSQLite(db),
		Auth:      NewUserRepository(db),
	}
}
