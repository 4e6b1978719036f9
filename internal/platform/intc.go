// Package platform provides the interrupt controller and UART transceivers
// the drivers run on: a software model for hosts and tests, a serial-port
// backed transceiver for hosts, and a uartx backed one for RP2 targets.
package platform

import (
	"strconv"
	"sync"

	"tinyiiod-go/errcode"
)

type line struct {
	run     sync.Mutex // held while isr runs
	isr     func()
	enabled bool
	latched bool
}

// SoftController is a software interrupt controller. Raise runs the service
// routine of an enabled line; a raise on a disabled line is latched and
// delivered when the line is enabled again.
type SoftController struct {
	mu    sync.Mutex
	lines map[uint32]*line
}

func NewSoftController() *SoftController {
	return &SoftController{lines: map[uint32]*line{}}
}

func (c *SoftController) get(irq uint32) (*line, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.lines[irq]
	return l, ok
}

func (c *SoftController) Register(irq uint32, isr func()) error {
	if isr == nil {
		return errcode.New(errcode.InvalidParams, "intc.register", "nil handler")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lines[irq]; ok {
		return &errcode.E{C: errcode.Busy, Op: "intc.register", Msg: "irq " + strconv.Itoa(int(irq))}
	}
	c.lines[irq] = &line{isr: isr}
	return nil
}

func (c *SoftController) Unregister(irq uint32) error {
	if err := c.Disable(irq); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.lines, irq)
	c.mu.Unlock()
	return nil
}

func (c *SoftController) Enable(irq uint32) error {
	c.mu.Lock()
	l, ok := c.lines[irq]
	if !ok {
		c.mu.Unlock()
		return c.missing("intc.enable", irq)
	}
	l.enabled = true
	deliver := l.latched
	l.latched = false
	c.mu.Unlock()
	if deliver {
		c.Raise(irq)
	}
	return nil
}

// Disable masks irq and waits for a running service routine to return.
func (c *SoftController) Disable(irq uint32) error {
	c.mu.Lock()
	l, ok := c.lines[irq]
	if ok {
		l.enabled = false
	}
	c.mu.Unlock()
	if !ok {
		return c.missing("intc.disable", irq)
	}
	l.run.Lock()
	l.run.Unlock()
	return nil
}

// Raise signals irq. Raises on unknown lines are dropped.
func (c *SoftController) Raise(irq uint32) {
	l, ok := c.get(irq)
	if !ok {
		return
	}
	l.run.Lock()
	defer l.run.Unlock()
	c.mu.Lock()
	if !l.enabled {
		l.latched = true
		c.mu.Unlock()
		return
	}
	isr := l.isr
	c.mu.Unlock()
	isr()
}

// Registered reports whether irq has a service routine.
func (c *SoftController) Registered(irq uint32) bool {
	_, ok := c.get(irq)
	return ok
}

func (c *SoftController) missing(op string, irq uint32) error {
	return &errcode.E{C: errcode.NotFound, Op: op, Msg: "irq " + strconv.Itoa(int(irq))}
}
