package mmio

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MappedWindow is a Window backed by a shared mapping of /dev/mem.
// Reads and writes go straight to the device, so the process needs
// CAP_SYS_RAWIO (and a kernel without CONFIG_STRICT_DEVMEM restrictions
// on the mapped range).
type MappedWindow struct {
	mem  []byte // whole page-aligned mapping
	regs []byte // register span inside mem
}

// alignSpan widens [base, base+size) to page boundaries and reports the
// offset of base inside the widened mapping. mmap offsets must be
// page-aligned; device register blocks usually are not.
func alignSpan(base, size, pageSize uint64) (mapBase, mapSize, skip uint64) {
	skip = base % pageSize
	mapBase = base - skip
	mapSize = (skip + size + pageSize - 1) / pageSize * pageSize
	return mapBase, mapSize, skip
}

// Map maps size bytes of physical address space starting at base and
// returns a window over it.
func Map(base, size uint64) (*MappedWindow, error) {
	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/mem: %w", err)
	}
	defer f.Close()

	mapBase, mapSize, skip := alignSpan(base, size, uint64(unix.Getpagesize()))
	mem, err := unix.Mmap(int(f.Fd()), int64(mapBase), int(mapSize),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %#x+%#x: %w", mapBase, mapSize, err)
	}
	return &MappedWindow{mem: mem, regs: mem[skip : skip+size]}, nil
}

// Read32 performs a single 32-bit load from the device.
func (w *MappedWindow) Read32(off uint32) uint32 {
	return *(*uint32)(unsafe.Pointer(&w.regs[off]))
}

// Write32 performs a single 32-bit store to the device.
func (w *MappedWindow) Write32(off uint32, val uint32) {
	*(*uint32)(unsafe.Pointer(&w.regs[off])) = val
}

// Close unmaps the window. The window must not be used afterwards.
func (w *MappedWindow) Close() error {
	if w.mem == nil {
		return nil
	}
	err := unix.Munmap(w.mem)
	w.mem, w.regs = nil, nil
	return err
}
