package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"watchdogd"
	"watchdogd/internal/logger"
	"watchdogd/internal/repository"
	"watchdogd/internal/wdt"

	"github.com/google/uuid"
)

var (
	// ErrInvalidTimeout rejects non-positive arm timeouts before they reach
	// the hardware, where a zero exponent would read as a disarm request.
	ErrInvalidTimeout = errors.New("invalid timeout: must be greater than zero")

	// ErrNotArmed rejects kick requests while the persisted state says the
	// timer is disarmed.
	ErrNotArmed = errors.New("watchdog is not armed")
)

// WatchdogService translates API calls into controller commands and keeps
// the persisted state and event log in step with what was sent to the
// hardware.
type WatchdogService struct {
	stateRepo repository.StateRepo
	eventRepo repository.EventRepo
	timer     Timer
	reset     func() error
	log       *logger.Logger
}

func NewWatchdogService(stateRepo repository.StateRepo, eventRepo repository.EventRepo, timer Timer, reset func() error, log *logger.Logger) *WatchdogService {
	return &WatchdogService{
		stateRepo: stateRepo,
		eventRepo: eventRepo,
		timer:     timer,
		reset:     reset,
		log:       log,
	}
}

// Arm encodes the timeout as a watchdog command, applies it and persists the
// outcome. The granted interval is the table ceiling of the request, so the
// returned state reports both what was asked and what was programmed.
// A timeout beyond the longest interval leaves the timer disabled and fails
// with wdt.ErrTimeoutTooLong.
func (s *WatchdogService) Arm(ctx context.Context, timeout time.Duration) (watchdogd.WatchdogState, error) {
	now := time.Now().UTC()

	if timeout <= 0 {
		return watchdogd.WatchdogState{}, ErrInvalidTimeout
	}
	requestedMS := uint64(timeout.Milliseconds())
	if requestedMS == 0 {
		// Sub-millisecond requests round up; the table floor is 2730 ms anyway.
		requestedMS = 1
	}

	cmd := wdt.EncodeTimeout(timeout)
	if err := s.timer.HandleCommand(cmd); err != nil {
		_ = s.eventRepo.Append(ctx, watchdogd.WatchdogEvent{
			EventID:     uuid.NewString(),
			OccurredAt:  now,
			Type:        watchdogd.EventArmFailed,
			Description: "Arm rejected: " + err.Error(),
			Metadata: map[string]any{
				"requested_ms": requestedMS,
				"max_ms":       wdt.MaxTimeoutMillis(),
			},
		})
		// The controller disabled the timer on the way out; keep the
		// persisted state in step with that.
		if st, lerr := s.stateRepo.Load(ctx); lerr == nil && st.Armed {
			st.Armed = false
			st.KeepaliveActive = false
			st.UpdatedAt = now
			_ = s.stateRepo.Save(ctx, st)
		}
		return watchdogd.WatchdogState{}, err
	}

	// The command was accepted, so the same table lookup cannot fail.
	iv, _ := wdt.SelectInterval(cmd.Milliseconds())

	st := watchdogd.WatchdogState{
		ID:              1,
		Armed:           true,
		RequestedMillis: requestedMS,
		IntervalCode:    iv.Code,
		IntervalMillis:  iv.Milliseconds,
		KeepaliveActive: true,
		LastKickAt:      now,
		UpdatedAt:       now,
	}
	if err := s.stateRepo.Save(ctx, st); err != nil {
		return watchdogd.WatchdogState{}, err
	}

	if err := s.eventRepo.Append(ctx, watchdogd.WatchdogEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  now,
		Type:        watchdogd.EventArmed,
		Description: fmt.Sprintf("Watchdog armed for %d ms (granted %d ms, code %d)", requestedMS, iv.Milliseconds, iv.Code),
		Metadata: map[string]any{
			"requested_ms":  requestedMS,
			"interval_ms":   iv.Milliseconds,
			"interval_code": iv.Code,
		},
	}); err != nil {
		return watchdogd.WatchdogState{}, err
	}
	return st, nil
}

// Disarm stops the timer and records it. The hardware write comes first:
// stopping the countdown must not depend on the database answering.
func (s *WatchdogService) Disarm(ctx context.Context) error {
	now := time.Now().UTC()

	s.timer.Disarm()

	st, err := s.stateRepo.Load(ctx)
	if err != nil {
		return err
	}
	if st.ID == 0 {
		st.ID = 1
	}
	st.Armed = false
	st.KeepaliveActive = false
	st.UpdatedAt = now

	if err := s.stateRepo.Save(ctx, st); err != nil {
		return err
	}

	return s.eventRepo.Append(ctx, watchdogd.WatchdogEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  now,
		Type:        watchdogd.EventDisarmed,
		Description: "Watchdog disarmed",
	})
}

// Kick restarts the countdown at the programmed interval and records the
// pet time. Kicking a disarmed timer is refused with ErrNotArmed.
func (s *WatchdogService) Kick(ctx context.Context) error {
	now := time.Now().UTC()

	st, err := s.stateRepo.Load(ctx)
	if err != nil {
		return err
	}
	if st.ID == 0 || !st.Armed {
		return ErrNotArmed
	}

	s.timer.Kick()

	st.LastKickAt = now
	st.UpdatedAt = now
	if err := s.stateRepo.Save(ctx, st); err != nil {
		return err
	}

	return s.eventRepo.Append(ctx, watchdogd.WatchdogEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  now,
		Type:        watchdogd.EventKicked,
		Description: "Watchdog kicked",
	})
}

// ForceReset records the reason and pulls the trigger. When a controller is
// bound the call never returns: the trigger arms the shortest interval and
// spins until the hardware resets the machine. The only error path is a
// trigger invoked before the device was claimed.
func (s *WatchdogService) ForceReset(ctx context.Context, reason string) error {
	now := time.Now().UTC()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "operator request"
	}

	s.log.Warnw("force reset requested", "reason", reason)
	_ = s.eventRepo.Append(ctx, watchdogd.WatchdogEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  now,
		Type:        watchdogd.EventForceReset,
		Description: "Immediate hardware reset: " + reason,
		Metadata:    map[string]any{"reason": reason},
	})

	err := s.reset()
	if err != nil {
		s.log.Errorw("force reset unavailable", "error", err)
	}
	return err
}
