package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"watchdogd"
	"watchdogd/internal/logger"
	"watchdogd/internal/wdt"
)

type fakeStateRepo struct {
	loadResp   watchdogd.WatchdogState
	loadErr    error
	saveErr    error
	savedCalls []watchdogd.WatchdogState
}

func (f *fakeStateRepo) Load(ctx context.Context) (watchdogd.WatchdogState, error) {
	return f.loadResp, f.loadErr
}
func (f *fakeStateRepo) Save(ctx context.Context, s watchdogd.WatchdogState) error {
	f.savedCalls = append(f.savedCalls, s)
	return f.saveErr
}

type localEventRepo struct {
	appendErr error
	events    []watchdogd.WatchdogEvent
	listErr   error
}

func (f *localEventRepo) Append(ctx context.Context, e watchdogd.WatchdogEvent) error {
	f.events = append(f.events, e)
	return f.appendErr
}
func (f *localEventRepo) List(ctx context.Context, from time.Time, to time.Time, typ string) ([]watchdogd.WatchdogEvent, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []watchdogd.WatchdogEvent
	for _, e := range f.events {
		if !e.OccurredAt.Before(from) && !e.OccurredAt.After(to) {
			if typ == "" || e.Type == typ {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

// fakeTimer records controller calls in place of real hardware.
type fakeTimer struct {
	cmds      []wdt.Command
	disarms   int
	kicks     int
	statusIn  wdt.Status
	handleErr error
}

func (f *fakeTimer) HandleCommand(cmd wdt.Command) error {
	f.cmds = append(f.cmds, cmd)
	return f.handleErr
}
func (f *fakeTimer) Disarm()            { f.disarms++ }
func (f *fakeTimer) Kick()              { f.kicks++ }
func (f *fakeTimer) Status() wdt.Status { return f.statusIn }

func assertWithinTimeWindow(t *testing.T, ts time.Time, start time.Time, end time.Time) {
	t.Helper()
	if ts.Before(start) || ts.After(end) {
		t.Fatalf("time %v not within window [%v, %v]", ts, start, end)
	}
}
func lastSavedState(t *testing.T, f *fakeStateRepo) watchdogd.WatchdogState {
	t.Helper()
	if len(f.savedCalls) == 0 {
		t.Fatalf("expected at least one Save call")
	}
	return f.savedCalls[len(f.savedCalls)-1]
}

func newWatchdogService(srepo *fakeStateRepo, erepo *localEventRepo, timer *fakeTimer, reset func() error) *WatchdogService {
	if reset == nil {
		reset = func() error { return nil }
	}
	return NewWatchdogService(srepo, erepo, timer, reset, logger.Nop())
}

func TestWatchdogService_Arm_RejectsNonPositiveTimeout(t *testing.T) {
	timer := &fakeTimer{}
	svc := newWatchdogService(&fakeStateRepo{}, &localEventRepo{}, timer, nil)

	for _, d := range []time.Duration{0, -time.Second} {
		if _, err := svc.Arm(context.Background(), d); !errors.Is(err, ErrInvalidTimeout) {
			t.Fatalf("Arm(%v): expected ErrInvalidTimeout, got %v", d, err)
		}
	}
	if len(timer.cmds) != 0 {
		t.Fatalf("expected no commands sent, got %d", len(timer.cmds))
	}
}

func TestWatchdogService_Arm_SendsCommandPersistsAndLogs(t *testing.T) {
	srepo := &fakeStateRepo{}
	erepo := &localEventRepo{}
	timer := &fakeTimer{}
	svc := newWatchdogService(srepo, erepo, timer, nil)

	t0 := time.Now().UTC()
	st, err := svc.Arm(context.Background(), 3*time.Second)
	t1 := time.Now().UTC()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(timer.cmds) != 1 || timer.cmds[0] != wdt.EncodeTimeout(3*time.Second) {
		t.Fatalf("expected one encoded 3s command, got %v", timer.cmds)
	}

	saved := lastSavedState(t, srepo)
	if !saved.Armed || !saved.KeepaliveActive {
		t.Fatalf("expected armed state with keepalive, got %+v", saved)
	}
	if saved.RequestedMillis != 3000 {
		t.Fatalf("RequestedMillis: want 3000, got %d", saved.RequestedMillis)
	}
	if saved.IntervalCode != 1 || saved.IntervalMillis != 5460 {
		t.Fatalf("expected granted interval 5460/code 1, got %d/%d", saved.IntervalMillis, saved.IntervalCode)
	}
	assertWithinTimeWindow(t, saved.LastKickAt, t0, t1)
	assertWithinTimeWindow(t, saved.UpdatedAt, t0, t1)
	if st != saved {
		t.Fatalf("returned state differs from saved state:\n%+v\n%+v", st, saved)
	}

	if len(erepo.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(erepo.events))
	}
	ev := erepo.events[0]
	if ev.Type != watchdogd.EventArmed {
		t.Fatalf("expected ARMED event, got %s", ev.Type)
	}
	if ev.EventID == "" {
		t.Fatalf("expected non-empty EventID")
	}
	if ev.Description != "Watchdog armed for 3000 ms (granted 5460 ms, code 1)" {
		t.Fatalf("unexpected description: %q", ev.Description)
	}
	assertWithinTimeWindow(t, ev.OccurredAt, t0, t1)
}

func TestWatchdogService_Arm_TooLongDisarmsStateAndLogsFailure(t *testing.T) {
	srepo := &fakeStateRepo{
		loadResp: watchdogd.WatchdogState{ID: 1, Armed: true, KeepaliveActive: true, RequestedMillis: 3000},
	}
	erepo := &localEventRepo{}
	timer := &fakeTimer{handleErr: wdt.ErrTimeoutTooLong}
	svc := newWatchdogService(srepo, erepo, timer, nil)

	st, err := svc.Arm(context.Background(), 100_000_000*time.Millisecond)
	if !errors.Is(err, wdt.ErrTimeoutTooLong) {
		t.Fatalf("expected ErrTimeoutTooLong, got %v", err)
	}
	if st.ID != 0 {
		t.Fatalf("expected zero state on failure, got %+v", st)
	}

	if len(erepo.events) != 1 || erepo.events[0].Type != watchdogd.EventArmFailed {
		t.Fatalf("expected ARM_FAILED event, got %+v", erepo.events)
	}

	saved := lastSavedState(t, srepo)
	if saved.Armed || saved.KeepaliveActive {
		t.Fatalf("expected state disarmed after failed arm, got %+v", saved)
	}
}

func TestWatchdogService_Arm_SaveErrorPropagates(t *testing.T) {
	srepo := &fakeStateRepo{saveErr: errors.New("db down")}
	svc := newWatchdogService(srepo, &localEventRepo{}, &fakeTimer{}, nil)

	if _, err := svc.Arm(context.Background(), 3*time.Second); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestWatchdogService_Disarm_HardwareFirstThenPersist(t *testing.T) {
	srepo := &fakeStateRepo{
		loadResp: watchdogd.WatchdogState{ID: 1, Armed: true, KeepaliveActive: true},
	}
	erepo := &localEventRepo{}
	timer := &fakeTimer{}
	svc := newWatchdogService(srepo, erepo, timer, nil)

	t0 := time.Now().UTC()
	err := svc.Disarm(context.Background())
	t1 := time.Now().UTC()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if timer.disarms != 1 {
		t.Fatalf("expected 1 hardware disarm, got %d", timer.disarms)
	}
	saved := lastSavedState(t, srepo)
	if saved.Armed || saved.KeepaliveActive {
		t.Fatalf("expected disarmed state, got %+v", saved)
	}
	assertWithinTimeWindow(t, saved.UpdatedAt, t0, t1)
	if len(erepo.events) != 1 || erepo.events[0].Type != watchdogd.EventDisarmed {
		t.Fatalf("expected DISARMED event, got %+v", erepo.events)
	}
}

func TestWatchdogService_Disarm_BaselineWhenNoState(t *testing.T) {
	srepo := &fakeStateRepo{loadResp: watchdogd.WatchdogState{}}
	svc := newWatchdogService(srepo, &localEventRepo{}, &fakeTimer{}, nil)

	if err := svc.Disarm(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	saved := lastSavedState(t, srepo)
	if saved.ID != 1 {
		t.Fatalf("expected ID=1 when disarming without prior state, got %d", saved.ID)
	}
}

func TestWatchdogService_Disarm_WritesHardwareEvenWhenLoadFails(t *testing.T) {
	timer := &fakeTimer{}
	srepo := &fakeStateRepo{loadErr: errors.New("db down")}
	svc := newWatchdogService(srepo, &localEventRepo{}, timer, nil)

	if err := svc.Disarm(context.Background()); err == nil {
		t.Fatalf("expected error, got nil")
	}
	if timer.disarms != 1 {
		t.Fatalf("hardware disarm must not depend on the database, disarms=%d", timer.disarms)
	}
}

func TestWatchdogService_Kick_RequiresArmedState(t *testing.T) {
	cases := []watchdogd.WatchdogState{
		{},
		{ID: 1, Armed: false},
	}
	for _, st := range cases {
		timer := &fakeTimer{}
		svc := newWatchdogService(&fakeStateRepo{loadResp: st}, &localEventRepo{}, timer, nil)
		if err := svc.Kick(context.Background()); !errors.Is(err, ErrNotArmed) {
			t.Fatalf("expected ErrNotArmed for state %+v, got %v", st, err)
		}
		if timer.kicks != 0 {
			t.Fatalf("expected no hardware kick, got %d", timer.kicks)
		}
	}
}

func TestWatchdogService_Kick_RestartsCountdownAndRecordsPet(t *testing.T) {
	srepo := &fakeStateRepo{
		loadResp: watchdogd.WatchdogState{ID: 1, Armed: true, RequestedMillis: 3000, LastKickAt: time.Unix(0, 0)},
	}
	erepo := &localEventRepo{}
	timer := &fakeTimer{}
	svc := newWatchdogService(srepo, erepo, timer, nil)

	t0 := time.Now().UTC()
	err := svc.Kick(context.Background())
	t1 := time.Now().UTC()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if timer.kicks != 1 {
		t.Fatalf("expected 1 hardware kick, got %d", timer.kicks)
	}
	saved := lastSavedState(t, srepo)
	assertWithinTimeWindow(t, saved.LastKickAt, t0, t1)
	if len(erepo.events) != 1 || erepo.events[0].Type != watchdogd.EventKicked {
		t.Fatalf("expected KICKED event, got %+v", erepo.events)
	}
}

func TestWatchdogService_ForceReset_LogsEventBeforeTrigger(t *testing.T) {
	erepo := &localEventRepo{}
	eventsAtTrigger := -1
	reset := func() error {
		eventsAtTrigger = len(erepo.events)
		return nil
	}
	svc := newWatchdogService(&fakeStateRepo{}, erepo, &fakeTimer{}, reset)

	if err := svc.ForceReset(context.Background(), "kernel hung"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eventsAtTrigger != 1 {
		t.Fatalf("expected the FORCE_RESET event to be appended before the trigger, events=%d", eventsAtTrigger)
	}
	ev := erepo.events[0]
	if ev.Type != watchdogd.EventForceReset {
		t.Fatalf("expected FORCE_RESET event, got %s", ev.Type)
	}
	if !strings.Contains(ev.Description, "kernel hung") {
		t.Fatalf("expected reason in description, got %q", ev.Description)
	}
}

func TestWatchdogService_ForceReset_DefaultsEmptyReason(t *testing.T) {
	erepo := &localEventRepo{}
	svc := newWatchdogService(&fakeStateRepo{}, erepo, &fakeTimer{}, nil)

	if err := svc.ForceReset(context.Background(), "   "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(erepo.events) != 1 || !strings.Contains(erepo.events[0].Description, "operator request") {
		t.Fatalf("expected default reason, got %+v", erepo.events)
	}
}

func TestWatchdogService_ForceReset_PropagatesNotInitialized(t *testing.T) {
	reset := func() error { return wdt.ErrNotInitialized }
	svc := newWatchdogService(&fakeStateRepo{}, &localEventRepo{}, &fakeTimer{}, reset)

	if err := svc.ForceReset(context.Background(), "test"); !errors.Is(err, wdt.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}
