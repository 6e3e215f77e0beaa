// Package health holds the go/no-go probes that gate watchdog petting.
// While every probe passes the daemon keeps re-arming the timer; one
// failing probe withholds the pet and lets the hardware countdown run.
package health

import (
	"context"
	"fmt"
)

// Checker is a single probe. Check returns nil when the machine should be
// kept alive.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// RunAll runs every checker in order and returns the first failure,
// annotated with the checker's name.
func RunAll(ctx context.Context, checks []Checker) error {
	for _, c := range checks {
		if err := c.Check(ctx); err != nil {
			return fmt.Errorf("%s: %w", c.Name(), err)
		}
	}
	return nil
}
