package service

import (
	"context"
	"time"

	"watchdogd"
	"watchdogd/internal/health"
	"watchdogd/internal/logger"
	"watchdogd/internal/repository"
	"watchdogd/internal/wdt"

	"github.com/google/uuid"
)

// KeepaliveService is the daemon's pet source: while the persisted state
// says the timer is armed, every tick re-arms the hardware with the
// requested timeout, but only when all health checks pass. A failing check
// withholds the pet and lets the countdown run toward a hardware reset.
type KeepaliveService struct {
	stateRepo    repository.StateRepo
	eventRepo    repository.EventRepo
	timer        Timer
	checks       []health.Checker
	disarmOnExit bool
	log          *logger.Logger

	// healthy is the verdict of the previous tick; transitions produce one
	// HEALTH_LOST or HEALTH_RESTORED event each, not one per tick.
	healthy bool
}

func NewKeepaliveService(stateRepo repository.StateRepo, eventRepo repository.EventRepo, timer Timer, checks []health.Checker, disarmOnExit bool, log *logger.Logger) *KeepaliveService {
	return &KeepaliveService{
		stateRepo:    stateRepo,
		eventRepo:    eventRepo,
		timer:        timer,
		checks:       checks,
		disarmOnExit: disarmOnExit,
		log:          log,
		healthy:      true,
	}
}

// Run ticks at the given interval until ctx is canceled. The tick cadence
// is policy, not correctness: each pet re-applies the full arm sequence, so
// a missed or doubled tick never corrupts the hardware state.
func (s *KeepaliveService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case now := <-t.C:
			s.tick(ctx, now.UTC())
		}
	}
}

// tick runs one keepalive round: load intent, gate on health, pet.
func (s *KeepaliveService) tick(ctx context.Context, now time.Time) {
	st, err := s.stateRepo.Load(ctx)
	if err != nil {
		s.log.Errorw("keepalive: load state", "error", err)
		return
	}
	if !st.Armed || !st.KeepaliveActive || st.RequestedMillis == 0 {
		return
	}

	if err := health.RunAll(ctx, s.checks); err != nil {
		if s.healthy {
			s.healthy = false
			s.log.Warnw("keepalive withheld, host unhealthy", "error", err)
			_ = s.eventRepo.Append(ctx, watchdogd.WatchdogEvent{
				EventID:     uuid.NewString(),
				OccurredAt:  now,
				Type:        watchdogd.EventHealthLost,
				Description: "Keepalive withheld: " + err.Error(),
				Metadata:    map[string]any{"reason": err.Error()},
			})
		}
		return
	}
	if !s.healthy {
		s.healthy = true
		s.log.Infow("host healthy again, keepalive resumed")
		_ = s.eventRepo.Append(ctx, watchdogd.WatchdogEvent{
			EventID:     uuid.NewString(),
			OccurredAt:  now,
			Type:        watchdogd.EventHealthRestored,
			Description: "Host health restored; keepalive resumed",
		})
	}

	cmd := wdt.EncodeTimeout(time.Duration(st.RequestedMillis) * time.Millisecond)
	if err := s.timer.HandleCommand(cmd); err != nil {
		s.log.Errorw("keepalive re-arm failed", "error", err)
		return
	}
	st.LastKickAt = now
	st.UpdatedAt = now
	if err := s.stateRepo.Save(ctx, st); err != nil {
		s.log.Errorw("keepalive: save state", "error", err)
	}
}

// shutdown disarms the hardware on daemon exit when configured to, so a
// clean shutdown does not end in a reboot. Run's context is already
// canceled here, so persistence gets a fresh short-lived one.
func (s *KeepaliveService) shutdown() {
	if !s.disarmOnExit {
		return
	}

	s.timer.Disarm()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	now := time.Now().UTC()
	st, err := s.stateRepo.Load(ctx)
	if err != nil {
		s.log.Errorw("disarm on exit: load state", "error", err)
		return
	}
	if st.ID == 0 || !st.Armed {
		return
	}
	st.Armed = false
	st.KeepaliveActive = false
	st.UpdatedAt = now
	if err := s.stateRepo.Save(ctx, st); err != nil {
		s.log.Errorw("disarm on exit: save state", "error", err)
	}
	_ = s.eventRepo.Append(ctx, watchdogd.WatchdogEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  now,
		Type:        watchdogd.EventDisarmed,
		Description: "Watchdog disarmed on daemon shutdown",
	})
	s.log.Infow("watchdog disarmed on shutdown")
}
