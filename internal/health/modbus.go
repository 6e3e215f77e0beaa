package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// ModbusChecker asks a PLC for one holding register over Modbus TCP. Boxes
// that front industrial control gate their keepalive on the controller
// actually answering, not just on the OS being up.
//
// Requests are serialized: the underlying handler carries connection state
// and reconnects on demand.
type ModbusChecker struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
	addr    uint16
}

// ModbusConfig configures the probe target.
type ModbusConfig struct {
	Endpoint string // host:port
	UnitID   uint8
	Register uint16
	Timeout  time.Duration
}

func NewModbusChecker(cfg ModbusConfig) (*ModbusChecker, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("health modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	return &ModbusChecker{
		handler: h,
		client:  modbus.NewClient(h),
		addr:    cfg.Register,
	}, nil
}

func (c *ModbusChecker) Name() string { return "modbus" }

// Check reads one holding register. ctx is not threaded through because the
// protocol client has no context support; the handler timeout bounds the
// call instead.
func (c *ModbusChecker) Check(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.client.ReadHoldingRegisters(c.addr, 1); err != nil {
		return fmt.Errorf("read holding register %d: %w", c.addr, err)
	}
	return nil
}

func (c *ModbusChecker) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}
