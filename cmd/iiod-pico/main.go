//go:build rp2040 || rp2350

package main

import (
	"time"

	"machine"

	"tinyiiod-go/drivers/uart"
	"tinyiiod-go/internal/platform"
	"tinyiiod-go/services/config"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[uart] boot")

	board, err := config.Embedded("pico")
	if err != nil {
		println("[uart] config:", err.Error())
		return
	}
	c := board.UART
	intc := platform.NewSoftController()
	rp := &platform.RP2Board{
		Intc: intc,
		Pins: [2]platform.RP2Pins{
			{TX: machine.GPIO0, RX: machine.GPIO1},
			{TX: machine.GPIO4, RX: machine.GPIO5},
		},
	}
	irq := platform.IRQUART0
	if c.DeviceID == 1 {
		irq = platform.IRQUART1
	}
	u, err := uart.Init(uart.InitParams{
		BaudRate:    c.Baud,
		DeviceID:    c.DeviceID,
		IRQID:       irq,
		IRQ:         intc,
		Provider:    rp,
		RxBufSize:   c.RxBufSize,
		ChunkSize:   c.ChunkSize,
		MaxChunks:   c.MaxChunks,
		RecvTimeout: uint8(c.RecvTimeout),
		ReadTimeout: time.Second,
	})
	if err != nil {
		println("[uart] init:", err.Error())
		return
	}
	println("[uart] echo on device", c.DeviceID)

	buf := make([]byte, 1)
	tick := time.NewTicker(10 * time.Second)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			println("[uart] errors:", u.Errors(), "buffered:", u.Buffered())
		default:
		}
		// Read times out every second so the stats line keeps printing.
		if n, _ := u.Read(buf); n > 0 {
			_, _ = u.Write(buf[:n])
		}
	}
}
