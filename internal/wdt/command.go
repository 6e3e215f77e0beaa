package wdt

import (
	"math/bits"
	"time"
)

// Command is a watchdog request in the classic BSD watchdog encoding: the
// low 6 bits carry an exponent e asking for a timeout of 2^e nanoseconds.
// A masked exponent of zero asks for the timer to be disarmed.
type Command uint32

// intervalBits masks the exponent field.
const intervalBits = 0x3f

// EncodeTimeout builds the command whose 2^e nanosecond timeout is the
// smallest power of two covering d. Non-positive durations encode the
// disarm request.
func EncodeTimeout(d time.Duration) Command {
	if d <= 0 {
		return 0
	}
	e := bits.Len64(uint64(d) - 1)
	if e == 0 {
		e = 1 // d == 1ns still arms
	}
	if e > intervalBits {
		e = intervalBits
	}
	return Command(e)
}

// Exponent returns the timeout exponent carried in the low bits.
func (c Command) Exponent() uint32 {
	return uint32(c) & intervalBits
}

// WantsDisarm reports whether the command asks for the timer to be stopped.
func (c Command) WantsDisarm() bool {
	return c.Exponent() == 0
}

// Milliseconds converts the carried exponent to whole milliseconds.
// Division truncates: exponents below 20 collapse to zero and end up
// granted the shortest hardware interval.
func (c Command) Milliseconds() uint64 {
	return (uint64(1) << c.Exponent()) / 1_000_000
}
