//go:build rp2040 || rp2350

package platform

import (
	"context"
	"machine"

	"github.com/jangala-dev/tinygo-uartx/uartx"

	"tinyiiod-go/drivers/uart"
	"tinyiiod-go/errcode"
)

// RP2UART backs the transceiver model with one of the on-chip UARTs.
type RP2UART struct {
	*xcvr
	hw *uartx.UART
	rx *pump
}

// RP2Pins selects the TX/RX pins of a UART.
type RP2Pins struct {
	TX, RX machine.Pin
}

// NewRP2UART configures the pins and starts the receive pump. A failed
// Configure returns errcode.HardwareFailure with nothing running.
func NewRP2UART(hw *uartx.UART, pins RP2Pins, cfg uart.HWConfig, intc *SoftController, irq uint32) (*RP2UART, error) {
	if err := hw.Configure(uartx.UARTConfig{TX: pins.TX, RX: pins.RX}); err != nil {
		return nil, errcode.Wrap(errcode.HardwareFailure, "rp2.configure", err)
	}
	r := &RP2UART{xcvr: newXcvr(cfg, intc, irq), hw: hw}
	r.onBaud = func(baud uint32) error { hw.SetBaudRate(baud); return nil }
	r.send = func(p []byte) int { n, _ := hw.Write(p); return n }
	r.close = func() error { r.rx.stop(); return nil }
	r.rx = startPump(context.Background(), hw.RecvSomeContext, r.arrive, FIFODepth)
	return r, nil
}

// RP2Board exposes UART0 and UART1 as devices 0 and 1.
type RP2Board struct {
	Intc *SoftController
	Pins [2]RP2Pins
}

func (b *RP2Board) LookupConfig(id uint32) (uart.HWConfig, bool) {
	if id > 1 {
		return uart.HWConfig{}, false
	}
	return uart.HWConfig{DeviceID: id, InputClockHz: machine.CPUFrequency(), Variant: uart.VariantZynq}, true
}

func (b *RP2Board) Open(cfg uart.HWConfig) (uart.Transceiver, error) {
	hw, irq := uartx.UART0, IRQUART0
	if cfg.DeviceID == 1 {
		hw, irq = uartx.UART1, IRQUART1
	}
	r, err := NewRP2UART(hw, b.Pins[cfg.DeviceID], cfg, b.Intc, irq)
	if err != nil {
		return nil, err
	}
	return r, nil
}
