package platform

import (
	"sync"
	"time"

	"tinyiiod-go/drivers/uart"
	"tinyiiod-go/errcode"
	"tinyiiod-go/x/timex"
)

// FIFODepth is the receive FIFO depth of the modelled transceiver.
const FIFODepth = 64

// Fault is a line condition detected by the receiver.
type Fault uint8

const (
	FaultParity Fault = iota + 1
	FaultFraming
	FaultOverrun
	FaultBreak
)

func (f Fault) mask() uart.Mask {
	switch f {
	case FaultParity:
		return uart.IXRParity
	case FaultFraming:
		return uart.IXRFraming
	case FaultOverrun:
		return uart.IXROverrun
	default:
		return uart.IXRBreak
	}
}

// event maps a fault to the event the given variant reports.
func (f Fault) event(v uart.Variant) uart.Event {
	if v != uart.VariantZynqMP {
		return uart.EventRecvError
	}
	if f == FaultOverrun {
		return uart.EventOverrun
	}
	return uart.EventParityFrameBreak
}

type report struct {
	ev uart.Event
	n  int
}

// xcvr models the receive and transmit paths of the transceiver. Arriving
// bytes enter the FIFO and raise the interrupt; the service routine moves
// them into the armed buffer and reports the fill level. Frontends plug in
// the transmit side and the baud rate hook.
type xcvr struct {
	cfg  uart.HWConfig
	intc *SoftController
	irq  uint32

	mu        sync.Mutex
	handler   uart.Handler
	mask      uart.Mask
	mode      uart.Mode
	baud      uint32
	rto       uint8
	fifo      []byte
	rx        []byte
	rxN       int
	armed     bool
	faults    uint8 // sticky status bits, 1<<Fault
	timeout   bool
	timer     *time.Timer
	busyUntil time.Time
	closed    bool

	send   func(p []byte) int
	onBaud func(baud uint32) error
	onMode func(m uart.Mode) error
	close  func() error
}

func newXcvr(cfg uart.HWConfig, intc *SoftController, irq uint32) *xcvr {
	return &xcvr{cfg: cfg, intc: intc, irq: irq, fifo: make([]byte, 0, FIFODepth)}
}

func (x *xcvr) Variant() uart.Variant { return x.cfg.Variant }

func (x *xcvr) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.fifo = x.fifo[:0]
	x.rx, x.rxN, x.armed = nil, 0, false
	x.faults = 0
	x.timeout = false
	x.mask = 0
	x.mode = uart.ModeNormal
	x.stopTimerLocked()
}

func (x *xcvr) SetMode(m uart.Mode) error {
	if x.onMode != nil {
		if err := x.onMode(m); err != nil {
			return err
		}
	}
	x.mu.Lock()
	x.mode = m
	x.mu.Unlock()
	return nil
}

func (x *xcvr) SetBaudRate(baud uint32) error {
	if baud == 0 {
		return errcode.New(errcode.InvalidParams, "uart.baud", "zero baud rate")
	}
	if x.onBaud != nil {
		if err := x.onBaud(baud); err != nil {
			return err
		}
	}
	x.mu.Lock()
	x.baud = baud
	x.mu.Unlock()
	return nil
}

func (x *xcvr) SetRecvTimeout(units uint8) {
	x.mu.Lock()
	x.rto = units
	x.mu.Unlock()
}

func (x *xcvr) SetHandler(h uart.Handler) {
	x.mu.Lock()
	x.handler = h
	x.mu.Unlock()
}

func (x *xcvr) SetInterruptMask(m uart.Mask) {
	x.mu.Lock()
	x.mask = m
	x.mu.Unlock()
}

// Recv arms buf. Bytes already waiting in the FIFO are picked up by the next
// interrupt, raised here.
func (x *xcvr) Recv(buf []byte) {
	x.mu.Lock()
	x.rx, x.rxN, x.armed = buf, 0, len(buf) > 0
	x.timeout = false
	x.stopTimerLocked()
	waiting := len(x.fifo) > 0
	x.mu.Unlock()
	if waiting {
		x.intc.Raise(x.irq)
	}
}

func (x *xcvr) Send(p []byte) int {
	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return 0
	}
	loop := x.mode == uart.ModeLocalLoop
	baud := x.baud
	x.mu.Unlock()

	n := len(p)
	if x.send != nil {
		n = x.send(p)
	}
	x.mu.Lock()
	x.busyUntil = time.Now().Add(time.Duration(n) * timex.CharTime(baud))
	x.mu.Unlock()
	if loop {
		x.arrive(p[:n])
	}
	return n
}

func (x *xcvr) IsSending() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return time.Now().Before(x.busyUntil)
}

func (x *xcvr) Close() error {
	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return nil
	}
	x.closed = true
	x.armed = false
	x.stopTimerLocked()
	x.mu.Unlock()
	if x.close != nil {
		return x.close()
	}
	return nil
}

// arrive feeds received bytes into the FIFO. Bytes beyond its depth are
// dropped and flagged as an overrun.
func (x *xcvr) arrive(p []byte) {
	if len(p) == 0 {
		return
	}
	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return
	}
	room := FIFODepth - len(x.fifo)
	if room < len(p) {
		x.faults |= 1 << FaultOverrun
		p = p[:room]
	}
	x.fifo = append(x.fifo, p...)
	x.mu.Unlock()
	x.intc.Raise(x.irq)
}

func (x *xcvr) fault(f Fault) {
	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return
	}
	x.faults |= 1 << f
	x.mu.Unlock()
	x.intc.Raise(x.irq)
}

// HandleInterrupt is the service routine. Reports are delivered after the
// state lock is released.
func (x *xcvr) HandleInterrupt() {
	var reps [6]report
	out := reps[:0]

	x.mu.Lock()
	for f := FaultParity; f <= FaultBreak; f++ {
		if x.faults&(1<<f) != 0 && x.mask&f.mask() != 0 {
			out = append(out, report{ev: f.event(x.cfg.Variant)})
		}
	}
	x.faults = 0

	if x.armed {
		moved := copy(x.rx[x.rxN:], x.fifo)
		if moved > 0 {
			x.fifo = x.fifo[:copy(x.fifo, x.fifo[moved:])]
			x.rxN += moved
		}
		switch {
		case x.rxN == len(x.rx):
			x.armed = false
			x.stopTimerLocked()
			if x.mask&(uart.IXRRxFull|uart.IXRRxOver) != 0 {
				out = append(out, report{ev: uart.EventRecvData, n: x.rxN})
			}
		case moved > 0:
			x.armTimerLocked()
			if x.mask&uart.IXRRxOver != 0 {
				out = append(out, report{ev: uart.EventRecvData, n: x.rxN})
			}
		case x.timeout && x.rxN > 0:
			if x.mask&uart.IXRTimeout != 0 {
				out = append(out, report{ev: uart.EventRecvTimeout, n: x.rxN})
			}
		}
	}
	x.timeout = false
	h := x.handler
	x.mu.Unlock()

	if h == nil {
		return
	}
	for _, r := range out {
		h(r.ev, r.n)
	}
}

func (x *xcvr) armTimerLocked() {
	if x.rto == 0 || x.baud == 0 {
		return
	}
	d := timex.RecvTimeout(x.baud, x.rto)
	if x.timer == nil {
		x.timer = time.AfterFunc(d, x.expire)
		return
	}
	x.timer.Stop()
	x.timer.Reset(d)
}

func (x *xcvr) stopTimerLocked() {
	if x.timer != nil {
		x.timer.Stop()
	}
}

func (x *xcvr) expire() {
	x.mu.Lock()
	if x.closed || !x.armed {
		x.mu.Unlock()
		return
	}
	x.timeout = true
	x.mu.Unlock()
	x.intc.Raise(x.irq)
}

var _ uart.Transceiver = (*xcvr)(nil)
