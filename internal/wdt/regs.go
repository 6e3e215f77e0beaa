package wdt

// Register map of the RK30xx watchdog block, a Synopsys DesignWare core.
// All registers are 32 bits wide, at byte offsets from the window base.
const (
	regCtrl uint32 = 0x00 // control
	regTorr uint32 = 0x04 // timeout range
	regCcvr uint32 = 0x08 // current counter value, read-only
	regCrr  uint32 = 0x0c // counter restart
	regStat uint32 = 0x10 // interrupt status, read-only
	regEoi  uint32 = 0x14 // interrupt clear on read
)

const (
	ctrlEnable   uint32 = 1 << 0
	ctrlRespMode uint32 = 1 << 1 // interrupt first, reset on the second timeout
	ctrlRstPulse uint32 = 4 << 2 // reset pulse length

	// ctrlArm is the control word written whenever the timer is started.
	ctrlArm = ctrlEnable | ctrlRespMode | ctrlRstPulse

	// ctrlDisable clears the enable bit while keeping a harmless
	// response-mode and pulse configuration in place.
	ctrlDisable uint32 = 0xa

	// crrRestartKey reloads the counter. The hardware ignores any other
	// value written to the restart register.
	crrRestartKey uint32 = 0x76

	// torrIntervalMask selects the timeout range field.
	torrIntervalMask uint32 = 0xf
)
