package field

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/simonvetter/modbus"
)

// DefaultTimeout bounds every Modbus request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Client is a Device backed by a remote Modbus TCP server.
type Client struct {
	mu     sync.Mutex
	url    string
	unitID uint8
	cli    *modbus.ModbusClient
	open   bool
}

// NewClient creates a client for the Modbus TCP server at addr ("host:port")
// without connecting. The connection is opened on first use and reopened
// after it is lost.
func NewClient(addr string, unitID uint8, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	url := "tcp://" + addr
	cli, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     url,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("modbus client %s: %w", url, err)
	}
	return &Client{url: url, unitID: unitID, cli: cli}, nil
}

func (c *Client) connect() error {
	if err := c.cli.Open(); err != nil {
		return fmt.Errorf("open %s: %w: %w", c.url, ErrConnectionLost, err)
	}
	if err := c.cli.SetUnitId(c.unitID); err != nil {
		c.cli.Close()
		return fmt.Errorf("unit id %d: %w", c.unitID, err)
	}
	c.open = true
	return nil
}

// Reconnect closes and reopens the underlying connection.
func (c *Client) Reconnect() error {
	if c.cli == nil {
		return ErrConnectionLost
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open {
		c.cli.Close()
		c.open = false
	}
	return c.connect()
}

// Close releases the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return nil
	}
	c.open = false
	return c.cli.Close()
}

// ReadBits reads coils with a single Modbus request.
func (c *Client) ReadBits(ctx context.Context, addr, count uint16) ([]bool, error) {
	var out []bool
	err := c.do(ctx, "read coils", func(cli *modbus.ModbusClient) (err error) {
		out, err = cli.ReadCoils(addr, count)
		return err
	})
	return out, err
}

// ReadRegisters reads input registers with a single Modbus request.
func (c *Client) ReadRegisters(ctx context.Context, addr, count uint16) ([]uint16, error) {
	var out []uint16
	err := c.do(ctx, "read input registers", func(cli *modbus.ModbusClient) (err error) {
		out, err = cli.ReadRegisters(addr, count, modbus.INPUT_REGISTER)
		return err
	})
	return out, err
}

// WriteBit writes a single coil.
func (c *Client) WriteBit(ctx context.Context, addr uint16, v bool) error {
	return c.do(ctx, "write coil", func(cli *modbus.ModbusClient) error {
		return cli.WriteCoil(addr, v)
	})
}

// WriteRegisters always fails: input registers are read-only over Modbus.
func (c *Client) WriteRegisters(_ context.Context, addr uint16, _ []uint16) error {
	return fmt.Errorf("write input register %d over modbus: %w", addr, ErrInvalidAddress)
}

// do runs one request, connecting first if needed. The library enforces its
// own timeout; ctx expiry abandons the request and reports ErrTimeout.
func (c *Client) do(ctx context.Context, op string, fn func(*modbus.ModbusClient) error) error {
	if err := ctx.Err(); err != nil {
		return classify(op, err)
	}

	c.mu.Lock()
	if c.cli == nil {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrConnectionLost)
	}
	if !c.open {
		if err := c.connect(); err != nil {
			c.mu.Unlock()
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	cli := c.cli
	c.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- fn(cli)
	}()

	var err error
	select {
	case err = <-done:
		err = classify(op, err)
	case <-ctx.Done():
		err = classify(op, ctx.Err())
	}
	if errors.Is(err, ErrConnectionLost) {
		c.drop()
	}
	return err
}

// drop closes a broken connection so the next request reconnects.
func (c *Client) drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open {
		c.cli.Close()
		c.open = false
	}
}

// classify maps library and network errors onto the field error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	switch {
	case errors.Is(err, modbus.ErrIllegalDataAddress):
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidAddress, err)
	case errors.Is(err, modbus.ErrRequestTimedOut),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrConnectionLost, err)
	}
}
