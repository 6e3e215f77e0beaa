package mmio

import (
	"sync"
	"time"
)

// Register layout of the Synopsys DesignWare watchdog block, as instantiated
// on RK30xx parts. Kept local so the simulator stays independent of the
// driver package sitting on top of it.
const (
	simRegCtrl = 0x00
	simRegTorr = 0x04
	simRegCcvr = 0x08
	simRegCrr  = 0x0c
	simRegStat = 0x10
	simRegEoi  = 0x14

	simCtrlEnable  = 1 << 0
	simCtrlIrqMode = 1 << 1 // interrupt first, reset on the second timeout
	simRestartKey  = 0x76
)

// SimClockHz is the simulated counter clock. 2^16 cycles at this rate is the
// shortest timeout row, about 2.73 s, matching the hardware interval table.
const SimClockHz = 24000

// SimWindow is an in-process model of the watchdog block. Time only moves
// when Advance is called, which keeps tests deterministic; a deployment
// running with the simulated device pumps it from a ticker.
type SimWindow struct {
	mu       sync.Mutex
	ctrl     uint32
	torr     uint32
	counter  uint64
	stat     uint32
	expired  bool
	onExpire func()
}

func NewSimWindow() *SimWindow { return &SimWindow{} }

func (s *SimWindow) period() uint64 { return 1 << (16 + (s.torr & 0xf)) }

func (s *SimWindow) enabled() bool { return s.ctrl&simCtrlEnable != 0 }

// Read32 implements Window. Reading EOI clears the interrupt, as on hardware.
func (s *SimWindow) Read32(off uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch off {
	case simRegCtrl:
		return s.ctrl
	case simRegTorr:
		return s.torr
	case simRegCcvr:
		return uint32(s.counter)
	case simRegStat:
		return s.stat
	case simRegEoi:
		s.stat = 0
	}
	return 0
}

// Write32 implements Window. Writes to read-only registers are ignored, and
// the restart register only acts on the magic key.
func (s *SimWindow) Write32(off uint32, val uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch off {
	case simRegCtrl:
		wasEnabled := s.enabled()
		s.ctrl = val
		if !wasEnabled && s.enabled() {
			s.counter = s.period()
		}
	case simRegTorr:
		s.torr = val
	case simRegCrr:
		if val == simRestartKey {
			s.counter = s.period()
			s.stat = 0
		}
	}
}

// SetExpireFunc registers f to run once, when a timeout runs all the way to
// the point where real hardware would reset the machine.
func (s *SimWindow) SetExpireFunc(f func()) {
	s.mu.Lock()
	s.onExpire = f
	s.mu.Unlock()
}

// Advance moves simulated time forward. Crossing zero raises the interrupt
// line first when the control word asks for it; the second crossing (or the
// first, in direct mode) latches the expiry.
func (s *SimWindow) Advance(d time.Duration) {
	cycles := uint64(d) * SimClockHz / uint64(time.Second)
	s.mu.Lock()
	var fired func()
	for cycles > 0 && s.enabled() && !s.expired {
		if s.counter > cycles {
			s.counter -= cycles
			break
		}
		cycles -= s.counter
		s.counter = 0
		if s.ctrl&simCtrlIrqMode != 0 && s.stat == 0 {
			s.stat = 1
			s.counter = s.period()
			continue
		}
		s.expired = true
		fired = s.onExpire
	}
	s.mu.Unlock()
	if fired != nil {
		fired()
	}
}

// Expired reports whether a timeout ran to completion.
func (s *SimWindow) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}
