// Package axidmac describes the DMA engine that moves ADC samples into
// capture memory.
package axidmac

import (
	"context"
	"sync"
	"time"

	"tinyiiod-go/drivers/ddr"
	"tinyiiod-go/errcode"
)

// Engine performs device-to-memory transfers.
type Engine interface {
	// ResetFlags clears per-transfer flags (cyclic, last, ...) before a new
	// transfer is programmed.
	ResetFlags()
	// Transfer copies n bytes from the device to dst and blocks until the
	// hardware reports completion or ctx ends.
	Transfer(ctx context.Context, dst uint32, n int) error
}

// Flags mirror the transfer flags of the controller.
type Flags uint32

const (
	FlagCyclic Flags = 1 << iota
	FlagLast
	FlagPartialReport
)

// Source produces the next len(p) sample bytes.
type Source func(p []byte)

// Sim writes Source output into a Memory. Each transfer continues the source
// stream where the previous one stopped.
type Sim struct {
	mu    sync.Mutex
	mem   ddr.Memory
	src   Source
	flags Flags
	count int

	// Latency delays completion, to exercise cancellation.
	Latency time.Duration
	// Fail, when non-nil, is returned instead of transferring.
	Fail error
}

func NewSim(mem ddr.Memory, src Source) *Sim {
	return &Sim{mem: mem, src: src}
}

func (s *Sim) ResetFlags() {
	s.mu.Lock()
	s.flags = 0
	s.mu.Unlock()
}

// SetFlags is used by tests to check that ResetFlags ran.
func (s *Sim) SetFlags(f Flags) {
	s.mu.Lock()
	s.flags = f
	s.mu.Unlock()
}

func (s *Sim) Flags() Flags {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags
}

// Transfers returns how many transfers completed.
func (s *Sim) Transfers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *Sim) Transfer(ctx context.Context, dst uint32, n int) error {
	if s.Fail != nil {
		return s.Fail
	}
	if n < 0 {
		return errcode.New(errcode.InvalidParams, "dma.transfer", "negative length")
	}
	if s.Latency > 0 {
		t := time.NewTimer(s.Latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return errcode.Wrap(errcode.Timeout, "dma.transfer", ctx.Err())
		}
	}
	buf := make([]byte, n)
	if s.src != nil {
		s.src(buf)
	}
	if _, err := s.mem.WriteAt(buf, dst); err != nil {
		return err
	}
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	return nil
}

// Counter is a Source emitting an incrementing byte pattern.
func Counter() Source {
	var next byte
	return func(p []byte) {
		for i := range p {
			p[i] = next
			next++
		}
	}
}

var _ Engine = (*Sim)(nil)
