// Package wdt drives the watchdog timer of Rockchip RK30xx SoCs: a Synopsys
// DesignWare core with a fixed table of sixteen power-of-two timeouts, a
// one-way arming model and a counter restart key. The hardware is a
// singleton, so the package enforces one controller per process.
package wdt

import (
	"errors"
	"sync"
	"sync/atomic"

	"watchdogd/internal/logger"
	"watchdogd/internal/mmio"
)

var (
	// ErrDeviceBusy reports that the watchdog is already claimed.
	ErrDeviceBusy = errors.New("watchdog device already claimed")

	// ErrNotInitialized reports a reset request made before any
	// controller claimed the device.
	ErrNotInitialized = errors.New("watchdog device has not been initialized")
)

// claimed is the process-wide controller. ForceReset reaches the device
// through it without needing a caller-held reference.
var (
	claimMu sync.Mutex
	claimed atomic.Pointer[Controller]
)

// Controller owns the watchdog register window. Methods are safe for
// concurrent use: every operation runs under one mutex, so the three-write
// arm sequence is never interleaved with another caller's writes.
type Controller struct {
	mu  sync.Mutex
	win mmio.Window
	log *logger.Logger
}

// Claim binds the process-wide controller to the device window. Claiming an
// already-claimed device fails with ErrDeviceBusy and leaves the existing
// controller untouched. Nothing is written to the hardware on claim.
func Claim(win mmio.Window, log *logger.Logger) (*Controller, error) {
	claimMu.Lock()
	defer claimMu.Unlock()
	if claimed.Load() != nil {
		return nil, ErrDeviceBusy
	}
	c := &Controller{win: win, log: log}
	claimed.Store(c)
	return c, nil
}

// unclaim releases the singleton. Tests only; a real process holds the
// device for its lifetime.
func unclaim() {
	claimMu.Lock()
	defer claimMu.Unlock()
	claimed.Store(nil)
}

// HandleCommand applies one encoded request to the hardware. A zero
// exponent disarms; anything else arms with the hardware ceiling of the
// requested timeout, restarting the countdown. Requests are applied
// unconditionally: there is no shadow arm state to drift out of sync.
func (c *Controller) HandleCommand(cmd Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cmd.WantsDisarm() {
		c.win.Write32(regCtrl, ctrlDisable)
		return nil
	}

	iv, err := SelectInterval(cmd.Milliseconds())
	if err != nil {
		// A timeout that cannot be honored must leave the timer
		// disabled, not armed shorter than asked.
		c.win.Write32(regCtrl, ctrlDisable)
		c.log.Errorw("cannot arm watchdog",
			"requested_ms", cmd.Milliseconds(),
			"max_ms", MaxTimeoutMillis())
		return err
	}

	c.win.Write32(regTorr, uint32(iv.Code)&torrIntervalMask)
	c.win.Write32(regCtrl, ctrlArm)
	c.win.Write32(regCrr, crrRestartKey)
	return nil
}

// Disarm stops the timer. The disable word is the only write involved, so
// there is nothing to fail.
func (c *Controller) Disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.win.Write32(regCtrl, ctrlDisable)
}

// Kick restarts the countdown at the currently programmed interval.
func (c *Controller) Kick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.win.Write32(regCrr, crrRestartKey)
}

// Status is a readback of the live register state.
type Status struct {
	Armed            bool
	IntervalCode     uint8
	IntervalMillis   uint64
	Countdown        uint32
	InterruptPending bool
}

// Status reads the control, timeout range, counter and interrupt status
// registers. Countdown is the raw counter value in watchdog clock cycles;
// interpreting it is the caller's business.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctrl := c.win.Read32(regCtrl)
	code := uint8(c.win.Read32(regTorr) & torrIntervalMask)
	st := Status{
		Armed:            ctrl&ctrlEnable != 0,
		IntervalCode:     code,
		Countdown:        c.win.Read32(regCcvr),
		InterruptPending: c.win.Read32(regStat)&1 != 0,
	}
	if iv, ok := intervalByCode(code); ok {
		st.IntervalMillis = iv.Milliseconds
	}
	return st
}
