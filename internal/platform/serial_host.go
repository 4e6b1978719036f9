//go:build !(rp2040 || rp2350)

package platform

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"

	"tinyiiod-go/drivers/uart"
	"tinyiiod-go/errcode"
)

// SerialUART backs the transceiver model with a host serial port. The port
// is opened when the baud rate is set and reopened on every change.
type SerialUART struct {
	*xcvr
	name        string
	readTimeout time.Duration

	pmu  sync.Mutex
	port *serial.Port
	rx   *pump
}

func NewSerialUART(name string, cfg uart.HWConfig, intc *SoftController, irq uint32, readTimeout time.Duration) *SerialUART {
	if readTimeout <= 0 {
		readTimeout = 100 * time.Millisecond
	}
	s := &SerialUART{xcvr: newXcvr(cfg, intc, irq), name: name, readTimeout: readTimeout}
	s.onBaud = s.open
	s.send = s.write
	s.close = s.shutdown
	return s
}

func (s *SerialUART) open(baud uint32) error {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	s.stopLocked()
	port, err := serial.OpenPort(&serial.Config{
		Name:        s.name,
		Baud:        int(baud),
		ReadTimeout: s.readTimeout,
	})
	if err != nil {
		return errcode.Wrap(errcode.HardwareFailure, "serial.open", err)
	}
	s.port = port
	s.rx = startPump(context.Background(), s.recv(port), s.arrive, FIFODepth)
	return nil
}

func (s *SerialUART) recv(port *serial.Port) recvFunc {
	return func(_ context.Context, buf []byte) (int, error) {
		n, err := port.Read(buf)
		if errors.Is(err, io.EOF) {
			err = nil
		}
		return n, err
	}
}

func (s *SerialUART) write(p []byte) int {
	s.pmu.Lock()
	port := s.port
	s.pmu.Unlock()
	if port == nil {
		return 0
	}
	n, _ := port.Write(p)
	return n
}

func (s *SerialUART) stopLocked() error {
	if s.port == nil {
		return nil
	}
	// Closing first unblocks a pending Read.
	err := s.port.Close()
	s.rx.stop()
	s.port, s.rx = nil, nil
	return err
}

func (s *SerialUART) shutdown() error {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	return s.stopLocked()
}

// SerialBoard is a uart.Provider exposing one host serial port as device 0.
type SerialBoard struct {
	Intc        *SoftController
	Port        string
	Variant     uart.Variant
	ReadTimeout time.Duration
}

func (b *SerialBoard) LookupConfig(id uint32) (uart.HWConfig, bool) {
	if id != 0 || b.Port == "" {
		return uart.HWConfig{}, false
	}
	return uart.HWConfig{DeviceID: 0, Variant: b.Variant}, true
}

func (b *SerialBoard) Open(cfg uart.HWConfig) (uart.Transceiver, error) {
	return NewSerialUART(b.Port, cfg, b.Intc, IRQUART0, b.ReadTimeout), nil
}
