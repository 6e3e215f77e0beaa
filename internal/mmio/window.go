// Package mmio provides 32-bit register access to a memory-mapped
// peripheral through a narrow Window interface, so the code that programs
// the device never cares whether the backing store is a real /dev/mem
// mapping or an in-process simulator.
package mmio

// Window is a little-endian 32-bit register window over one peripheral.
// Offsets are byte offsets from the window base and must be 4-byte aligned.
type Window interface {
	Read32(off uint32) uint32
	Write32(off uint32, val uint32)
}
