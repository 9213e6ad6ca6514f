package field

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
)

// Server serves a Table over Modbus TCP. Remote clients may write coils and
// holding registers; input registers and discrete inputs are read-only.
type Server struct {
	addr string
	srv  *modbus.ModbusServer
}

// NewServer prepares a server for table on addr (":502").
func NewServer(addr string, table *Table, maxClients uint) (*Server, error) {
	if maxClients == 0 {
		maxClients = 10
	}
	srv, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        "tcp://" + addr,
		Timeout:    30 * time.Second,
		MaxClients: maxClients,
	}, &tableHandler{table: table})
	if err != nil {
		return nil, fmt.Errorf("modbus server %s: %w", addr, err)
	}
	return &Server{addr: addr, srv: srv}, nil
}

// Start begins accepting connections in the background.
func (s *Server) Start() error {
	if err := s.srv.Start(); err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return nil
}

// Close stops the listener and drops all clients.
func (s *Server) Close() error {
	return s.srv.Stop()
}

// tableHandler answers Modbus requests from a Table. Any unit id is accepted.
type tableHandler struct {
	table *Table
}

func (h *tableHandler) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	if req.IsWrite {
		if err := h.table.writeBools("coils", h.table.coils, req.Addr, req.Args); err != nil {
			return nil, modbus.ErrIllegalDataAddress
		}
		return nil, nil
	}
	out, err := h.table.readBools("coils", h.table.coils, req.Addr, req.Quantity)
	if err != nil {
		return nil, modbus.ErrIllegalDataAddress
	}
	return out, nil
}

func (h *tableHandler) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	out, err := h.table.ReadDiscrete(req.Addr, req.Quantity)
	if err != nil {
		return nil, modbus.ErrIllegalDataAddress
	}
	return out, nil
}

func (h *tableHandler) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	if req.IsWrite {
		if err := h.table.WriteHolding(req.Addr, req.Args); err != nil {
			return nil, modbus.ErrIllegalDataAddress
		}
		return nil, nil
	}
	out, err := h.table.ReadHolding(req.Addr, req.Quantity)
	if err != nil {
		return nil, modbus.ErrIllegalDataAddress
	}
	return out, nil
}

func (h *tableHandler) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	out, err := h.table.readWords("input registers", h.table.inputs, req.Addr, req.Quantity)
	if err != nil {
		return nil, modbus.ErrIllegalDataAddress
	}
	return out, nil
}
