package service

import (
	"context"
	"time"

	"watchdogd"
	"watchdogd/internal/repository"
)

type MonitoringService struct {
	stateRepo repository.StateRepo
	timer     Timer
}

func NewMonitoringService(stateRepo repository.StateRepo, timer Timer) *MonitoringService {
	return &MonitoringService{stateRepo: stateRepo, timer: timer}
}

// GetStatus merges the persisted picture of what the daemon was asked to do
// with a live register readback. The two can disagree, e.g. after a crashed
// keepalive or an out-of-band disarm, and showing both is the point.
func (s *MonitoringService) GetStatus(ctx context.Context) (watchdogd.WatchdogStatus, error) {
	state, err := s.stateRepo.Load(ctx)
	if err != nil {
		return watchdogd.WatchdogStatus{}, err
	}
	if state.ID == 0 {
		state = s.baselineState()
	} else {
		state.UpdatedAt = toUTC(state.UpdatedAt)
		state.LastKickAt = toUTC(state.LastKickAt)
	}

	hw := s.timer.Status()
	return watchdogd.WatchdogStatus{
		State: state,
		Hardware: watchdogd.HardwareStatus{
			Armed:            hw.Armed,
			IntervalCode:     hw.IntervalCode,
			IntervalMillis:   hw.IntervalMillis,
			Countdown:        hw.Countdown,
			InterruptPending: hw.InterruptPending,
		},
	}, nil
}

// baselineState returns a disarmed default snapshot for an uninitialized DB.
func (s *MonitoringService) baselineState() watchdogd.WatchdogState {
	return watchdogd.WatchdogState{
		ID:        1, // DB schema enforces single-row state with id=1
		Armed:     false,
		UpdatedAt: time.Now().UTC(),
	}
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
