package mmio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DeviceTreeRoot is where the kernel exposes the flattened device tree.
const DeviceTreeRoot = "/proc/device-tree"

// ProbeDeviceTree walks the device tree under root and returns the register
// base address and size of the first node whose compatible list contains
// compat. FDT property cells are big-endian.
func ProbeDeviceTree(root, compat string) (base, size uint64, err error) {
	var regPath string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() != "compatible" {
			return err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if !compatibleMatches(raw, compat) {
			return nil
		}
		regPath = filepath.Join(filepath.Dir(path), "reg")
		return fs.SkipAll
	})
	if err != nil {
		return 0, 0, fmt.Errorf("walk %s: %w", root, err)
	}
	if regPath == "" {
		return 0, 0, fmt.Errorf("no node compatible with %q under %s", compat, root)
	}
	reg, err := os.ReadFile(regPath)
	if err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", regPath, err)
	}
	return decodeReg(reg)
}

// compatibleMatches reports whether the NUL-separated compatible list
// contains the wanted string.
func compatibleMatches(raw []byte, compat string) bool {
	for _, s := range bytes.Split(raw, []byte{0}) {
		if string(s) == compat {
			return true
		}
	}
	return false
}

// decodeReg decodes the first address/size pair of a reg property. One- and
// two-cell address layouts both occur on the boards this runs on.
func decodeReg(reg []byte) (base, size uint64, err error) {
	switch len(reg) {
	case 8:
		return uint64(binary.BigEndian.Uint32(reg[0:4])), uint64(binary.BigEndian.Uint32(reg[4:8])), nil
	case 12:
		return binary.BigEndian.Uint64(reg[0:8]), uint64(binary.BigEndian.Uint32(reg[8:12])), nil
	case 16:
		return binary.BigEndian.Uint64(reg[0:8]), binary.BigEndian.Uint64(reg[8:16]), nil
	}
	return 0, 0, fmt.Errorf("unsupported reg layout: %d bytes", len(reg))
}
