//go:build !(rp2040 || rp2350)

package main

import (
	"context"
	"flag"
	"os"
	"time"

	"tinyiiod-go/drivers/axiadc"
	"tinyiiod-go/drivers/axidmac"
	"tinyiiod-go/drivers/ddr"
	"tinyiiod-go/drivers/uart"
	"tinyiiod-go/internal/platform"
	"tinyiiod-go/services/config"
	"tinyiiod-go/services/iio"
	"tinyiiod-go/services/iio/adc"
)

func main() {
	boardName := flag.String("board", config.DefaultBoard, "embedded board name")
	cfgPath := flag.String("config", "", "board file (.yaml or .json), overrides -board")
	port := flag.String("port", "", "host serial port backing the UART")
	flag.Parse()

	board, err := loadBoard(*boardName, *cfgPath)
	if err != nil {
		println("[iiod] config:", err.Error())
		os.Exit(1)
	}
	if *port != "" {
		board.UART.Port = *port
	}
	println("[iiod] board", board.Name)

	svc, err := bringUpADC(board.ADC)
	if err != nil {
		println("[iiod] adc:", err.Error())
		os.Exit(1)
	}
	exerciseADC(svc, board.ADC.Device)

	if err := runUART(board.UART); err != nil {
		println("[uart]", err.Error())
		os.Exit(1)
	}
}

func loadBoard(name, path string) (config.Board, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Embedded(name)
}

func bringUpADC(c config.ADC) (*iio.Service, error) {
	ram := ddr.NewRAM(c.CaptureBase, c.CaptureSize)
	b, err := adc.New(adc.Config{
		Name:            c.Device,
		Channels:        c.Channels,
		ADC:             axiadc.NewSim(c.Channels, c.SamplingHz),
		DMA:             axidmac.NewSim(ram, axidmac.Counter()),
		Cache:           ram,
		Mem:             ram,
		Base:            c.CaptureBase,
		TransferTimeout: c.TransferTimeout(),
	})
	if err != nil {
		return nil, err
	}
	return iio.New(b), nil
}

func exerciseADC(svc *iio.Service, dev string) {
	if n, err := svc.WriteAttr(dev, "voltage0", adc.AttrCalibScale, []byte("1.5")); err != nil {
		println("[iiod] write calibscale:", iio.Reply(n, err))
	}
	if n, err := svc.WriteAttr(dev, "voltage0", adc.AttrCalibPhase, []byte("-0.25")); err != nil {
		println("[iiod] write calibphase:", iio.Reply(n, err))
	}

	chs, _ := svc.Channels(dev)
	buf := make([]byte, 32)
	for _, ch := range chs {
		for _, name := range ch.Attrs {
			n, err := svc.ReadAttr(dev, ch.Name, name, buf)
			if err != nil {
				println("[iiod]", ch.Name, name, "->", iio.Reply(n, err))
				continue
			}
			println("[iiod]", ch.Name, name, "=", string(buf[:n]))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n, err := svc.Transfer(ctx, dev, 64)
	if err != nil {
		println("[iiod] transfer:", err.Error())
		return
	}
	head := make([]byte, 8)
	if _, err := svc.ReadDev(dev, head, 0); err != nil {
		println("[iiod] read_dev:", err.Error())
		return
	}
	println("[iiod] captured", n, "bytes, first", head[0], "last of head", head[len(head)-1])
}

func runUART(c config.UART) error {
	var (
		provider uart.Provider
		intc     *platform.SoftController
		sim      *platform.SimBoard
		irq      = c.IRQ
	)
	if c.Port != "" {
		intc = platform.NewSoftController()
		provider = &platform.SerialBoard{
			Intc:        intc,
			Port:        c.Port,
			Variant:     c.VariantValue(),
			ReadTimeout: 100 * time.Millisecond,
		}
		if irq == 0 {
			irq = platform.IRQUART0
		}
	} else {
		sim = platform.NewSimBoard(c.VariantValue())
		intc, provider = sim.Intc, sim
		if irq == 0 {
			irq = sim.IRQ(c.DeviceID)
		}
	}

	readTimeout := c.ReadTimeout()
	if readTimeout == 0 {
		readTimeout = 2 * time.Second
	}
	u, err := uart.Init(uart.InitParams{
		BaudRate:    c.Baud,
		DeviceID:    c.DeviceID,
		IRQID:       irq,
		IRQ:         intc,
		Provider:    provider,
		RxBufSize:   c.RxBufSize,
		ChunkSize:   c.ChunkSize,
		MaxChunks:   c.MaxChunks,
		RecvTimeout: uint8(c.RecvTimeout),
		ReadTimeout: readTimeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := u.Remove(); err != nil {
			println("[uart] remove:", err.Error())
		}
	}()
	info := u.Info()
	println("[uart] up: device", info.DeviceID, "irq", info.IRQ, "baud", info.Baud, "variant", info.Variant.String())

	if sim != nil {
		// No wire attached: loop the transmitter back.
		_ = sim.UART(c.DeviceID).SetMode(uart.ModeLocalLoop)
	}
	msg := []byte("tinyiiod ready\n")
	if _, err := u.Write(msg); err != nil {
		return err
	}
	in := make([]byte, len(msg))
	n, err := u.Read(in)
	if err != nil {
		println("[uart] read:", err.Error(), "after", n, "bytes")
	} else {
		println("[uart] rx:", string(in[:n]))
	}
	println("[uart] errors:", u.Errors())
	return nil
}
