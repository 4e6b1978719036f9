// Package axiadc describes the calibration interface of an ADC acquisition
// core. Values are fixed-point pairs: an integer part and a fraction in
// millionths, both carrying the sign of the value.
package axiadc

import (
	"sync"

	"tinyiiod-go/errcode"
)

// Core is the register-level capability used by the attribute bridge.
// Errors from a real core are errcode.Status values.
type Core interface {
	CalibPhase(ch int) (val, val2 int32, err error)
	SetCalibPhase(ch int, val, val2 int32) error
	CalibBias(ch int) (val, val2 int32, err error)
	SetCalibBias(ch int, val, val2 int32) error
	CalibScale(ch int) (val, val2 int32, err error)
	SetCalibScale(ch int, val, val2 int32) error
	SamplingFreq(ch int) (uint64, error)
}

type pair struct{ val, val2 int32 }

type calib struct {
	phase, bias, scale pair
}

// Sim is an in-memory core that stores what is written and echoes it back.
type Sim struct {
	mu       sync.Mutex
	chans    []calib
	sampling uint64

	// Fail, when set, is returned by every call for which it returns non-nil.
	Fail func(op string, ch int) error
}

// NewSim returns a core with n channels, unity scale and the given sampling
// frequency in Hz.
func NewSim(n int, samplingHz uint64) *Sim {
	s := &Sim{chans: make([]calib, n), sampling: samplingHz}
	for i := range s.chans {
		s.chans[i].scale = pair{1, 0}
	}
	return s
}

// Set loads raw register contents, bypassing the setters.
func (s *Sim) Set(ch int, phase, bias, scale [2]int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chans[ch] = calib{
		phase: pair{phase[0], phase[1]},
		bias:  pair{bias[0], bias[1]},
		scale: pair{scale[0], scale[1]},
	}
}

func (s *Sim) check(op string, ch int) error {
	if s.Fail != nil {
		if err := s.Fail(op, ch); err != nil {
			return err
		}
	}
	if ch < 0 || ch >= len(s.chans) {
		return errcode.Status(-22)
	}
	return nil
}

func (s *Sim) get(op string, ch int, sel func(*calib) *pair) (int32, int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(op, ch); err != nil {
		return 0, 0, err
	}
	p := sel(&s.chans[ch])
	return p.val, p.val2, nil
}

func (s *Sim) set(op string, ch int, sel func(*calib) *pair, val, val2 int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(op, ch); err != nil {
		return err
	}
	*sel(&s.chans[ch]) = pair{val, val2}
	return nil
}

func phaseOf(c *calib) *pair { return &c.phase }
func biasOf(c *calib) *pair  { return &c.bias }
func scaleOf(c *calib) *pair { return &c.scale }

func (s *Sim) CalibPhase(ch int) (int32, int32, error) { return s.get("calibphase", ch, phaseOf) }
func (s *Sim) SetCalibPhase(ch int, val, val2 int32) error {
	return s.set("calibphase", ch, phaseOf, val, val2)
}
func (s *Sim) CalibBias(ch int) (int32, int32, error) { return s.get("calibbias", ch, biasOf) }
func (s *Sim) SetCalibBias(ch int, val, val2 int32) error {
	return s.set("calibbias", ch, biasOf, val, val2)
}
func (s *Sim) CalibScale(ch int) (int32, int32, error) { return s.get("calibscale", ch, scaleOf) }
func (s *Sim) SetCalibScale(ch int, val, val2 int32) error {
	return s.set("calibscale", ch, scaleOf, val, val2)
}

func (s *Sim) SamplingFreq(ch int) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("sampling_frequency", ch); err != nil {
		return 0, err
	}
	return s.sampling, nil
}

var _ Core = (*Sim)(nil)
