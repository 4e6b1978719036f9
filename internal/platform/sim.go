package platform

import (
	"sync"

	"tinyiiod-go/drivers/uart"
	"tinyiiod-go/errcode"
)

// Default interrupt lines of the two transceivers on the simulated board.
const (
	IRQUART0 uint32 = 59
	IRQUART1 uint32 = 82
)

// SimUART is a transceiver with no physical line. Tests feed it with Inject
// and InjectFault and inspect what was sent.
type SimUART struct {
	*xcvr

	tmu     sync.Mutex
	sent    []byte
	txLimit int
}

func NewSimUART(cfg uart.HWConfig, intc *SoftController, irq uint32) *SimUART {
	s := &SimUART{xcvr: newXcvr(cfg, intc, irq)}
	s.send = s.record
	return s
}

func (s *SimUART) record(p []byte) int {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	n := len(p)
	if s.txLimit > 0 && n > s.txLimit {
		n = s.txLimit
	}
	s.sent = append(s.sent, p[:n]...)
	return n
}

// Inject delivers bytes as if they arrived on the line.
func (s *SimUART) Inject(p []byte) { s.arrive(p) }

// InjectFault signals a receive error condition.
func (s *SimUART) InjectFault(f Fault) { s.fault(f) }

// SetTxLimit caps how many bytes one Send accepts; zero removes the cap.
func (s *SimUART) SetTxLimit(n int) {
	s.tmu.Lock()
	s.txLimit = n
	s.tmu.Unlock()
}

// Sent returns everything transmitted so far.
func (s *SimUART) Sent() []byte {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	return append([]byte(nil), s.sent...)
}

// Closed reports whether the transceiver was closed.
func (s *SimUART) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// FailMode makes SetMode fail with err; nil clears it.
func (s *SimUART) FailMode(err error) {
	if err == nil {
		s.onMode = nil
		return
	}
	s.onMode = func(uart.Mode) error { return err }
}

// FailBaud makes SetBaudRate fail with err; nil clears it.
func (s *SimUART) FailBaud(err error) {
	if err == nil {
		s.onBaud = nil
		return
	}
	s.onBaud = func(uint32) error { return err }
}

// SimBoard is a uart.Provider for a board with two simulated transceivers.
type SimBoard struct {
	Intc *SoftController

	mu      sync.Mutex
	cfgs    map[uint32]uart.HWConfig
	irqs    map[uint32]uint32
	uarts   map[uint32]*SimUART
	openErr error
	prepare func(*SimUART)
}

func NewSimBoard(v uart.Variant) *SimBoard {
	return &SimBoard{
		Intc: NewSoftController(),
		cfgs: map[uint32]uart.HWConfig{
			0: {DeviceID: 0, BaseAddr: 0xE0000000, InputClockHz: 100_000_000, Variant: v},
			1: {DeviceID: 1, BaseAddr: 0xE0001000, InputClockHz: 100_000_000, Variant: v},
		},
		irqs:  map[uint32]uint32{0: IRQUART0, 1: IRQUART1},
		uarts: map[uint32]*SimUART{},
	}
}

func (b *SimBoard) LookupConfig(id uint32) (uart.HWConfig, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.cfgs[id]
	return c, ok
}

// IRQ returns the interrupt line wired to device id.
func (b *SimBoard) IRQ(id uint32) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.irqs[id]
}

func (b *SimBoard) Open(cfg uart.HWConfig) (uart.Transceiver, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	irq, ok := b.irqs[cfg.DeviceID]
	if !ok {
		return nil, &errcode.E{C: errcode.NotFound, Op: "sim.open", Msg: "no such transceiver"}
	}
	s := NewSimUART(cfg, b.Intc, irq)
	if b.prepare != nil {
		b.prepare(s)
	}
	b.uarts[cfg.DeviceID] = s
	return s, nil
}

// UART returns the transceiver last opened for id.
func (b *SimBoard) UART(id uint32) *SimUART {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uarts[id]
}

// FailOpen makes Open fail with err; nil clears it.
func (b *SimBoard) FailOpen(err error) {
	b.mu.Lock()
	b.openErr = err
	b.mu.Unlock()
}

// OnOpen runs fn on every transceiver before Open returns it.
func (b *SimBoard) OnOpen(fn func(*SimUART)) {
	b.mu.Lock()
	b.prepare = fn
	b.mu.Unlock()
}

var _ uart.Provider = (*SimBoard)(nil)
