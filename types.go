package watchdogd

import "time"

const (
	EventArmed          = "ARMED"
	EventDisarmed       = "DISARMED"
	EventKicked         = "KICKED"
	EventArmFailed      = "ARM_FAILED"
	EventForceReset     = "FORCE_RESET"
	EventHealthLost     = "HEALTH_LOST"
	EventHealthRestored = "HEALTH_RESTORED"
)

// WatchdogState is the persisted picture of what the controller was asked
// to do, as opposed to what the registers currently say.
type WatchdogState struct {
	ID              int       `json:"id"`
	Armed           bool      `json:"armed"`
	RequestedMillis uint64    `json:"requested_millis,omitempty"` // what the caller asked for
	IntervalCode    uint8     `json:"interval_code"`              // granted table row 0..15
	IntervalMillis  uint64    `json:"interval_millis,omitempty"`  // ceiling actually programmed
	KeepaliveActive bool      `json:"keepalive_active"`
	LastKickAt      time.Time `json:"last_kick_at,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HardwareStatus mirrors the live register state of the timer.
type HardwareStatus struct {
	Armed            bool   `json:"armed"`
	IntervalCode     uint8  `json:"interval_code"`
	IntervalMillis   uint64 `json:"interval_millis"`
	Countdown        uint32 `json:"countdown"`         // raw current-counter value
	InterruptPending bool   `json:"interrupt_pending"` // first expiry crossed, reset on the next
}

// WatchdogStatus pairs persisted intent with the hardware view so a client
// can tell a crashed keepalive apart from a disarmed timer.
type WatchdogStatus struct {
	State    WatchdogState  `json:"state"`
	Hardware HardwareStatus `json:"hardware"`
}

// WatchdogEvent is a single log entry.
type WatchdogEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // ARMED | DISARMED | KICKED | ARM_FAILED | FORCE_RESET | HEALTH_LOST | HEALTH_RESTORED
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}

type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // don't expose hash
}
