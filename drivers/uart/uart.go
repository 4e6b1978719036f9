// Package uart is an interrupt-driven UART driver. The interrupt handler
// records how much of the armed receive buffer is filled; readers move those
// bytes into a chunked software queue and re-arm the receiver with the
// interrupt line masked.
package uart

import (
	"context"
	"math"
	"sync"
	"time"

	"tinygo.org/x/drivers"

	"tinyiiod-go/errcode"
	"tinyiiod-go/internal/util"
	"tinyiiod-go/types"
	"tinyiiod-go/x/bytequeue"
	"tinyiiod-go/x/timex"
)

const (
	DefaultBaudRate    = 115200
	DefaultRxBufSize   = 256
	DefaultMaxChunks   = 64
	DefaultRecvTimeout = 8 // x4 character times
)

type InitParams struct {
	BaudRate uint32
	DeviceID uint32
	IRQID    uint32

	IRQ      IRQController
	Provider Provider

	RxBufSize   int   // receive buffer armed on the transceiver
	ChunkSize   int   // software queue chunk; defaults to RxBufSize
	MaxChunks   int   // queue chunk budget; -1 for no bound
	RecvTimeout uint8 // idle timeout in units of four character times

	// ReadTimeout bounds Read; zero blocks until the request is satisfied.
	ReadTimeout time.Duration
}

// UART is one initialised transceiver. Reads and writes may run concurrently
// with each other; concurrent readers are serialised.
type UART struct {
	baud     uint32
	deviceID uint32
	irq      uint32
	variant  Variant
	hw       Transceiver
	intc     IRQController

	readTimeout time.Duration

	mu      sync.Mutex // shared with the interrupt handler
	pending int
	errs    uint32
	removed bool

	rmu   sync.Mutex // consumer side: rxBuf, drain, re-arm
	rxBuf []byte
	q     *bytequeue.Queue

	wmu sync.Mutex

	wake   chan struct{}
	closed chan struct{}
}

var _ drivers.UART = (*UART)(nil)

// Init brings up the transceiver and arms the first receive. On any failure
// everything acquired so far is released and the error matches
// errcode.InitFailure.
func Init(p InitParams) (*UART, error) {
	if p.IRQ == nil || p.Provider == nil {
		return nil, errcode.New(errcode.InitFailure, "uart.init", "irq controller and provider required")
	}
	if p.BaudRate == 0 {
		p.BaudRate = DefaultBaudRate
	}
	rxSize := util.DefaultInt(p.RxBufSize, DefaultRxBufSize, 1, 1<<16)
	chunk := util.DefaultInt(p.ChunkSize, rxSize, 1, 1<<16)
	maxChunks := p.MaxChunks
	switch {
	case maxChunks == 0:
		maxChunks = DefaultMaxChunks
	case maxChunks < 0:
		maxChunks = 0
	}
	if maxChunks > 0 && rxSize > chunk*maxChunks {
		return nil, errcode.New(errcode.InitFailure, "uart.init", "chunk budget smaller than receive buffer")
	}
	if p.RecvTimeout == 0 {
		p.RecvTimeout = DefaultRecvTimeout
	}

	cfg, ok := p.Provider.LookupConfig(p.DeviceID)
	if !ok {
		return nil, &errcode.E{C: errcode.InitFailure, Op: "uart.init", Msg: "no configuration for device", Err: errcode.NotFound}
	}
	hw, err := p.Provider.Open(cfg)
	if err != nil {
		return nil, errcode.Wrap(errcode.InitFailure, "uart.open", err)
	}

	var undo []func()
	fail := func(op string, err error) (*UART, error) {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		return nil, errcode.Wrap(errcode.InitFailure, op, err)
	}
	undo = append(undo, func() { _ = hw.Close() })

	hw.Reset()
	if err := hw.SetMode(ModeNormal); err != nil {
		return fail("uart.mode", err)
	}
	if err := hw.SetBaudRate(p.BaudRate); err != nil {
		return fail("uart.baud", err)
	}
	hw.SetRecvTimeout(p.RecvTimeout)

	u := &UART{
		baud:        p.BaudRate,
		deviceID:    p.DeviceID,
		irq:         p.IRQID,
		variant:     cfg.Variant,
		hw:          hw,
		intc:        p.IRQ,
		readTimeout: p.ReadTimeout,
		rxBuf:       make([]byte, rxSize),
		q:           bytequeue.New(chunk, maxChunks),
		wake:        make(chan struct{}, 1),
		closed:      make(chan struct{}),
	}

	if err := p.IRQ.Register(p.IRQID, hw.HandleInterrupt); err != nil {
		return fail("uart.irq", err)
	}
	undo = append(undo, func() { _ = p.IRQ.Unregister(p.IRQID) })

	hw.SetHandler(u.handle)
	undo = append(undo, func() { hw.SetHandler(nil) })

	mask := RxMask
	if cfg.Variant == VariantZynqMP {
		mask |= IXRBreak
	}
	hw.SetInterruptMask(mask)

	if err := p.IRQ.Enable(p.IRQID); err != nil {
		return fail("uart.irq", err)
	}
	hw.Recv(u.rxBuf)
	return u, nil
}

// handle runs in interrupt context: no blocking, no allocation.
func (u *UART) handle(ev Event, n int) {
	switch {
	case ev == EventRecvData || ev == EventRecvTimeout:
		u.mu.Lock()
		u.pending = n
		u.mu.Unlock()
		select {
		case u.wake <- struct{}{}:
		default:
		}
	case ev.IsError():
		u.mu.Lock()
		if u.errs < math.MaxUint32 {
			u.errs++
		}
		u.mu.Unlock()
	}
}

// drain moves the reported bytes into the queue and re-arms the receiver.
// Caller holds rmu. On an append failure the count is kept so the next call
// retries the same bytes.
func (u *UART) drain() error {
	u.mu.Lock()
	n := u.pending
	u.mu.Unlock()
	if n == 0 {
		return nil
	}
	if err := u.intc.Disable(u.irq); err != nil {
		return errcode.Wrap(errcode.HardwareFailure, "uart.drain", err)
	}
	u.mu.Lock()
	n = u.pending
	if n > len(u.rxBuf) {
		n = len(u.rxBuf)
	}
	if err := u.q.Append(u.rxBuf[:n]); err != nil {
		u.mu.Unlock()
		_ = u.intc.Enable(u.irq)
		return err
	}
	u.pending = 0
	u.mu.Unlock()

	u.hw.Recv(u.rxBuf)
	if err := u.intc.Enable(u.irq); err != nil {
		return errcode.Wrap(errcode.HardwareFailure, "uart.drain", err)
	}
	return nil
}

// ReadContext fills p with received bytes in arrival order. It returns early
// only with an error: ctx ending, Remove, or a failed drain. Bytes already
// copied are counted in the result.
func (u *UART) ReadContext(ctx context.Context, p []byte) (int, error) {
	u.rmu.Lock()
	defer u.rmu.Unlock()

	i := 0
	for i < len(p) {
		select {
		case <-u.closed:
			return i, errcode.Closed
		default:
		}
		i += u.q.Read(p[i:])
		if i == len(p) {
			break
		}
		if err := u.drain(); err != nil {
			return i, err
		}
		if !u.q.IsEmpty() {
			continue
		}
		select {
		case <-u.wake:
		case <-ctx.Done():
			return i, errcode.Wrap(errcode.Timeout, "uart.read", ctx.Err())
		case <-u.closed:
			return i, errcode.Closed
		}
	}
	return i, nil
}

// Read implements io.Reader, bounded by the configured read timeout.
func (u *UART) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	ctx := context.Background()
	if u.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.readTimeout)
		defer cancel()
	}
	return u.ReadContext(ctx, p)
}

// Buffered reports received bytes not yet read, including those still in the
// receive buffer.
func (u *UART) Buffered() int {
	u.mu.Lock()
	n := u.pending
	u.mu.Unlock()
	return u.q.Len() + n
}

// WriteContext sends p in one hardware transaction and waits for the
// transmitter to drain. A short send is reported as errcode.Failure together
// with the accepted count; the remainder is not retried.
func (u *UART) WriteContext(ctx context.Context, p []byte) (int, error) {
	u.wmu.Lock()
	defer u.wmu.Unlock()
	select {
	case <-u.closed:
		return 0, errcode.Closed
	default:
	}
	if len(p) == 0 {
		return 0, nil
	}

	sent := u.hw.Send(p)
	if u.hw.IsSending() {
		tick := timex.DrainTick(u.baud)
		t := time.NewTimer(tick)
		defer t.Stop()
		for u.hw.IsSending() {
			select {
			case <-t.C:
				util.ResetTimer(t, tick)
			case <-ctx.Done():
				return sent, errcode.Wrap(errcode.Timeout, "uart.write", ctx.Err())
			case <-u.closed:
				return sent, errcode.Closed
			}
		}
	}
	if sent < len(p) {
		return sent, errcode.New(errcode.Failure, "uart.write", "transceiver accepted a short write")
	}
	return sent, nil
}

// Write implements io.Writer.
func (u *UART) Write(p []byte) (int, error) {
	return u.WriteContext(context.Background(), p)
}

// Errors returns the receive errors counted since the previous call and
// resets the counter.
func (u *UART) Errors() uint32 {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := u.errs
	u.errs = 0
	return n
}

func (u *UART) Info() types.UARTInfo {
	return types.UARTInfo{
		DeviceID:  u.deviceID,
		IRQ:       u.irq,
		Baud:      u.baud,
		Variant:   u.variant,
		RxBufSize: len(u.rxBuf),
		ChunkSize: u.q.ChunkSize(),
		Buffered:  u.Buffered(),
	}
}

// Remove releases the interrupt line, the transceiver and every queued
// chunk. Blocked readers and writers return errcode.Closed. A second call
// returns errcode.Closed.
func (u *UART) Remove() error {
	u.mu.Lock()
	if u.removed {
		u.mu.Unlock()
		return errcode.Closed
	}
	u.removed = true
	u.mu.Unlock()
	close(u.closed)

	u.rmu.Lock()
	defer u.rmu.Unlock()
	u.wmu.Lock()
	defer u.wmu.Unlock()

	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = errcode.Wrap(errcode.HardwareFailure, "uart.remove", err)
		}
	}
	keep(u.intc.Disable(u.irq))
	keep(u.intc.Unregister(u.irq))
	u.hw.SetHandler(nil)
	keep(u.hw.Close())

	u.mu.Lock()
	u.pending = 0
	u.mu.Unlock()
	u.q.Reset()
	return first
}
