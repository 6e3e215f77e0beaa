package health

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const defaultLoadavgPath = "/proc/loadavg"

// LoadChecker fails when the one-minute load average climbs above Max.
// A runaway load is the classic sign of a box that is about to stop
// answering anything, including its own keepalive loop.
type LoadChecker struct {
	Path string // defaults to /proc/loadavg
	Max  float64
}

func (c *LoadChecker) Name() string { return "loadavg" }

func (c *LoadChecker) Check(ctx context.Context) error {
	path := c.Path
	if path == "" {
		path = defaultLoadavgPath
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	fields := strings.Fields(string(raw))
	if len(fields) == 0 {
		return fmt.Errorf("malformed %s", path)
	}
	load, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if load > c.Max {
		return fmt.Errorf("one-minute load %.2f above limit %.2f", load, c.Max)
	}
	return nil
}
