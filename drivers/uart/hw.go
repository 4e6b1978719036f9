package uart

import "tinyiiod-go/types"

// Variant selects the transceiver generation. ZynqMP adds break detection
// and reports parity/framing/break and overrun as distinct events.
type Variant = types.UARTVariant

const (
	VariantZynq   = types.VariantZynq
	VariantZynqMP = types.VariantZynqMP
)

type Mode uint8

const (
	ModeNormal Mode = iota
	ModeAutoEcho
	ModeLocalLoop
	ModeRemoteLoop
)

// Event is reported by the transceiver from interrupt context.
type Event uint8

const (
	// EventRecvData: bytes were moved into the armed receive buffer. n is the
	// buffer's fill level; n == len(buf) means the buffer is complete.
	EventRecvData Event = iota + 1
	// EventRecvTimeout: the line went idle for the receive timeout. n is the
	// fill level of the armed buffer.
	EventRecvTimeout
	// EventRecvError: any receive error on transceivers without detailed
	// reporting.
	EventRecvError
	EventParityFrameBreak
	EventOverrun
	EventSentData
)

func (e Event) String() string {
	switch e {
	case EventRecvData:
		return "recv_data"
	case EventRecvTimeout:
		return "recv_timeout"
	case EventRecvError:
		return "recv_error"
	case EventParityFrameBreak:
		return "parity_frame_break"
	case EventOverrun:
		return "overrun"
	case EventSentData:
		return "sent_data"
	default:
		return "unknown"
	}
}

// IsError reports whether e counts towards the error counter.
func (e Event) IsError() bool {
	return e == EventRecvError || e == EventParityFrameBreak || e == EventOverrun
}

// Mask selects interrupt sources.
type Mask uint32

const (
	IXRRxOver  Mask = 1 << 0 // receive trigger level reached
	IXRRxFull  Mask = 1 << 2
	IXROverrun Mask = 1 << 5
	IXRFraming Mask = 1 << 6
	IXRParity  Mask = 1 << 7
	IXRTimeout Mask = 1 << 8
	IXRBreak   Mask = 1 << 13 // ZynqMP only

	RxMask = IXRRxOver | IXRRxFull | IXROverrun | IXRFraming | IXRParity | IXRTimeout
)

// Handler receives transceiver events. It runs in interrupt context.
type Handler func(ev Event, n int)

// Transceiver is the low-level UART block.
type Transceiver interface {
	Reset()
	SetMode(m Mode) error
	SetBaudRate(baud uint32) error
	// SetRecvTimeout sets the idle timeout in units of four character times;
	// zero disables it.
	SetRecvTimeout(units uint8)
	SetHandler(h Handler)
	SetInterruptMask(m Mask)
	// HandleInterrupt is the service routine registered with the interrupt
	// controller.
	HandleInterrupt()
	// Recv arms an asynchronous receive into buf, restarting its fill level
	// at zero.
	Recv(buf []byte)
	// Send queues p for transmission and returns how many bytes were accepted.
	Send(p []byte) int
	IsSending() bool
	Variant() Variant
	Close() error
}

// IRQController routes interrupt lines to service routines. Disable returns
// only after a routine already running on irq has finished.
type IRQController interface {
	Register(irq uint32, isr func()) error
	Unregister(irq uint32) error
	Enable(irq uint32) error
	Disable(irq uint32) error
}

// HWConfig is the static description of one transceiver instance.
type HWConfig struct {
	DeviceID     uint32
	BaseAddr     uint32
	InputClockHz uint32
	Variant      Variant
}

// Provider looks up and opens transceiver instances.
type Provider interface {
	LookupConfig(deviceID uint32) (HWConfig, bool)
	Open(cfg HWConfig) (Transceiver, error)
}
