package service

import (
	"context"
	"time"

	"watchdogd"
	"watchdogd/internal/health"
	"watchdogd/internal/logger"
	"watchdogd/internal/repository"
	"watchdogd/internal/wdt"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Watchdog exposes control operations: arm/disarm/kick and the terminal
// force-reset.
type Watchdog interface {
	Arm(ctx context.Context, timeout time.Duration) (watchdogd.WatchdogState, error)
	Disarm(ctx context.Context) error
	Kick(ctx context.Context) error
	ForceReset(ctx context.Context, reason string) error
}

// Monitoring exposes read-only status: persisted intent plus the live
// register readback.
type Monitoring interface {
	GetStatus(ctx context.Context) (watchdogd.WatchdogStatus, error)
}

// EventLog exposes the append-only log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]watchdogd.WatchdogEvent, error)
}

// Keepalive runs the background pet loop that keeps an armed timer from
// expiring while the host is healthy.
// Stop via context cancellation in main() for graceful shutdown.
type Keepalive interface {
	Run(ctx context.Context, tick time.Duration)
}

// Timer is the hardware controller surface the services drive.
// *wdt.Controller satisfies it; tests substitute a recorder.
type Timer interface {
	HandleCommand(cmd wdt.Command) error
	Disarm()
	Kick()
	Status() wdt.Status
}

type Service struct {
	Watchdog
	Monitoring
	EventLog
	Keepalive
	Authorization
}

// Deps carries the wiring that does not come from the repository layer:
// the claimed hardware controller, the reset trigger, health checks and
// runtime policy.
type Deps struct {
	Timer        Timer
	Reset        func() error
	Checks       []health.Checker
	DisarmOnExit bool
	Auth         AuthConfig
	Log          *logger.Logger
}

func NewService(repos *repository.Repository, d Deps) *Service {
	return &Service{
		Watchdog:      NewWatchdogService(repos.StateRepo, repos.EventRepo, d.Timer, d.Reset, d.Log),
		Monitoring:    NewMonitoringService(repos.StateRepo, d.Timer),
		EventLog:      NewEventLogService(repos.EventRepo),
		Keepalive:     NewKeepaliveService(repos.StateRepo, repos.EventRepo, d.Timer, d.Checks, d.DisarmOnExit, d.Log),
		Authorization: NewAuthService(repos.Auth, d.Auth),
	}
}
