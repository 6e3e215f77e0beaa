package mmio

import (
	"testing"
	"time"
)

// Direct-reset mode: enable only, no interrupt bit.
func TestSimWindowCountdownAndExpiry(t *testing.T) {
	w := NewSimWindow()
	w.Write32(simRegTorr, 0) // shortest row, 2^16 cycles
	w.Write32(simRegCtrl, simCtrlEnable)

	if got := w.Read32(simRegCcvr); got != 1<<16 {
		t.Fatalf("countdown after enable: got %d, want %d", got, 1<<16)
	}

	w.Advance(time.Second)
	after := w.Read32(simRegCcvr)
	if after == 0 || after >= 1<<16 {
		t.Fatalf("countdown did not decrease sanely: %d", after)
	}
	if w.Expired() {
		t.Fatalf("expired too early")
	}

	w.Advance(5 * time.Second)
	if !w.Expired() {
		t.Fatalf("expected expiry once the timeout elapsed")
	}
}

func TestSimWindowKickReloads(t *testing.T) {
	w := NewSimWindow()
	w.Write32(simRegTorr, 0)
	w.Write32(simRegCtrl, simCtrlEnable)

	w.Advance(2 * time.Second)
	low := w.Read32(simRegCcvr)
	w.Write32(simRegCrr, simRestartKey)
	if got := w.Read32(simRegCcvr); got <= low {
		t.Fatalf("kick did not reload: before %d, after %d", low, got)
	}

	// A kicked window survives another partial period.
	w.Advance(2 * time.Second)
	if w.Expired() {
		t.Fatalf("expired despite kick")
	}
	w.Advance(2 * time.Second)
	if !w.Expired() {
		t.Fatalf("expected expiry after kicks stopped")
	}
}

func TestSimWindowBogusRestartKeyIgnored(t *testing.T) {
	w := NewSimWindow()
	w.Write32(simRegTorr, 0)
	w.Write32(simRegCtrl, simCtrlEnable)

	w.Advance(2 * time.Second)
	low := w.Read32(simRegCcvr)
	w.Write32(simRegCrr, 0x42)
	if got := w.Read32(simRegCcvr); got != low {
		t.Fatalf("bogus key changed the counter: before %d, after %d", low, got)
	}
}

func TestSimWindowDisableStopsCounting(t *testing.T) {
	w := NewSimWindow()
	w.Write32(simRegTorr, 0)
	w.Write32(simRegCtrl, simCtrlEnable)
	w.Write32(simRegCtrl, 0xa) // enable bit clear

	w.Advance(time.Minute)
	if w.Expired() {
		t.Fatalf("disabled window expired")
	}
}

// The interrupt-then-reset control word gets a second period: the first
// crossing only raises the status line.
func TestSimWindowIrqModeSecondChance(t *testing.T) {
	w := NewSimWindow()
	w.Write32(simRegTorr, 0)
	w.Write32(simRegCtrl, simCtrlEnable|simCtrlIrqMode)

	w.Advance(3 * time.Second) // one period is ~2.73 s
	if w.Expired() {
		t.Fatalf("expired on first crossing in interrupt mode")
	}
	if got := w.Read32(simRegStat); got != 1 {
		t.Fatalf("status after first crossing: got %d, want 1", got)
	}

	w.Advance(3 * time.Second)
	if !w.Expired() {
		t.Fatalf("expected expiry on second crossing")
	}
}

func TestSimWindowEoiClearsStatus(t *testing.T) {
	w := NewSimWindow()
	w.Write32(simRegTorr, 0)
	w.Write32(simRegCtrl, simCtrlEnable|simCtrlIrqMode)

	w.Advance(3 * time.Second)
	if got := w.Read32(simRegStat); got != 1 {
		t.Fatalf("status not raised: %d", got)
	}
	w.Read32(simRegEoi)
	if got := w.Read32(simRegStat); got != 0 {
		t.Fatalf("status after EOI: got %d, want 0", got)
	}
}

func TestSimWindowExpireFuncFiresOnce(t *testing.T) {
	w := NewSimWindow()
	calls := 0
	w.SetExpireFunc(func() { calls++ })
	w.Write32(simRegTorr, 0)
	w.Write32(simRegCtrl, simCtrlEnable)

	w.Advance(10 * time.Second)
	w.Advance(10 * time.Second)
	if calls != 1 {
		t.Fatalf("expire func calls: got %d, want 1", calls)
	}
}
