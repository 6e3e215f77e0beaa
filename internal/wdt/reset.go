package wdt

// spinForever parks the caller while the shortest hardware timeout runs
// out. A variable so tests can substitute the terminal spin.
var spinForever = func() {
	for {
	}
}

// ForceReset reprograms the watchdog to its shortest interval and spins
// until the hardware resets the machine. It does not return: the only exit
// path is the ErrNotInitialized error when no controller has claimed the
// device yet, in which case the hardware is not touched. The controller
// mutex is deliberately bypassed; this is the path of last resort and must
// not block behind a caller wedged mid-operation.
func ForceReset() error {
	c := claimed.Load()
	if c == nil {
		return ErrNotInitialized
	}

	c.win.Write32(regTorr, uint32(intervals[0].Code))
	c.win.Write32(regCtrl, ctrlArm)
	spinForever()
	return nil
}
