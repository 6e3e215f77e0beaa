package wdt

import (
	"errors"
	"fmt"
)

// TimeoutInterval is one row of the hardware interval table: the timeout
// granted when Code is programmed into the timeout range register.
type TimeoutInterval struct {
	Milliseconds uint64
	Code         uint8
}

// intervals lists every timeout the hardware can count, ascending. Code n
// selects a countdown of 2^(16+n) cycles of the watchdog clock, which is
// where the odd-looking durations come from.
var intervals = []TimeoutInterval{
	{2730, 0},
	{5460, 1},
	{10920, 2},
	{21840, 3},
	{43680, 4},
	{87360, 5},
	{174720, 6},
	{349440, 7},
	{698880, 8},
	{1397760, 9},
	{2795520, 10},
	{5591040, 11},
	{11182080, 12},
	{22364160, 13},
	{44728320, 14},
	{89456640, 15},
}

// ErrTimeoutTooLong reports a requested timeout beyond the longest interval
// the hardware can count.
var ErrTimeoutTooLong = errors.New("timeout exceeds longest hardware interval")

// MaxTimeoutMillis returns the longest timeout the hardware can count.
func MaxTimeoutMillis() uint64 {
	return intervals[len(intervals)-1].Milliseconds
}

// SelectInterval returns the shortest table entry covering ms, i.e. the
// hardware ceiling of the requested timeout. Zero selects the shortest
// interval.
func SelectInterval(ms uint64) (TimeoutInterval, error) {
	for _, iv := range intervals {
		if ms <= iv.Milliseconds {
			return iv, nil
		}
	}
	return TimeoutInterval{}, fmt.Errorf("%w: requested %d ms, max %d ms",
		ErrTimeoutTooLong, ms, MaxTimeoutMillis())
}

// intervalByCode maps a timeout range code back to its table row.
func intervalByCode(code uint8) (TimeoutInterval, bool) {
	if int(code) >= len(intervals) {
		return TimeoutInterval{}, false
	}
	return intervals[code], true
}
