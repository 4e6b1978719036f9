// Package ddr models the capture memory the DMA engine writes into and the
// data cache that must be invalidated before the CPU reads it.
package ddr

import (
	"strconv"
	"sync"

	"tinyiiod-go/errcode"
)

// Memory is byte-addressable memory at absolute bus addresses.
type Memory interface {
	ReadAt(p []byte, addr uint32) (int, error)
	WriteAt(p []byte, addr uint32) (int, error)
}

// Cache is the data cache maintenance capability.
type Cache interface {
	InvalidateRange(addr uint32, n int)
}

// Range is an address span.
type Range struct {
	Addr uint32
	Len  int
}

// RAM is a window of simulated memory starting at Base. It also records cache
// invalidations so callers can check maintenance happened.
type RAM struct {
	mu          sync.RWMutex
	base        uint32
	mem         []byte
	invalidated []Range
}

func NewRAM(base uint32, size int) *RAM {
	return &RAM{base: base, mem: make([]byte, size)}
}

func (r *RAM) Base() uint32 { return r.base }
func (r *RAM) Size() int    { return len(r.mem) }

func (r *RAM) span(addr uint32, n int) (int, error) {
	if addr < r.base || uint64(addr-r.base)+uint64(n) > uint64(len(r.mem)) {
		return 0, &errcode.E{
			C:   errcode.InvalidParams,
			Op:  "ddr",
			Msg: "0x" + strconv.FormatUint(uint64(addr), 16) + "+" + strconv.Itoa(n) + " outside memory",
		}
	}
	return int(addr - r.base), nil
}

func (r *RAM) ReadAt(p []byte, addr uint32) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	off, err := r.span(addr, len(p))
	if err != nil {
		return 0, err
	}
	return copy(p, r.mem[off:]), nil
}

func (r *RAM) WriteAt(p []byte, addr uint32) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	off, err := r.span(addr, len(p))
	if err != nil {
		return 0, err
	}
	return copy(r.mem[off:], p), nil
}

func (r *RAM) InvalidateRange(addr uint32, n int) {
	r.mu.Lock()
	r.invalidated = append(r.invalidated, Range{Addr: addr, Len: n})
	r.mu.Unlock()
}

// Invalidated returns the ranges invalidated so far.
func (r *RAM) Invalidated() []Range {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Range(nil), r.invalidated...)
}

var (
	_ Memory = (*RAM)(nil)
	_ Cache  = (*RAM)(nil)
)
