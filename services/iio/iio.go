// Package iio is the attribute surface a remote-management protocol layer
// calls into. Requests name a device, a channel and an attribute; values
// travel as ASCII decimal text in caller-supplied buffers.
package iio

import (
	"context"

	"tinyiiod-go/errcode"
	"tinyiiod-go/services/iio/attr"
	"tinyiiod-go/services/iio/registry"
	"tinyiiod-go/types"
)

// Device is one IIO device as seen by the protocol layer.
type Device interface {
	Name() string
	ReadAttrs() *attr.Table[attr.ReadFn]
	WriteAttrs() *attr.Table[attr.WriteFn]
	Transfer(ctx context.Context, n int) (int, error)
	ReadDev(dst []byte, off uint32) (int, error)
	Channels() []types.ChannelInfo
}

type Service struct {
	devs *registry.Registry[Device]
}

func New(devs ...Device) *Service {
	s := &Service{devs: registry.New[Device]()}
	for _, d := range devs {
		s.Register(d)
	}
	return s
}

// Register adds d under its name. Duplicate names panic.
func (s *Service) Register(d Device) {
	s.devs.Register(d.Name(), d)
}

// ReadAttr formats device/channel/attribute into buf and returns the bytes
// written. Misses report errcode.NotFound.
func (s *Service) ReadAttr(device, channel, attribute string, buf []byte) (int, error) {
	d, err := s.devs.Get(device)
	if err != nil {
		return 0, err
	}
	bd, err := d.ReadAttrs().Lookup(channel, attribute)
	if err != nil {
		return 0, err
	}
	return bd.Fn(buf, bd.Channel)
}

// WriteAttr applies the text value src and returns the bytes consumed.
func (s *Service) WriteAttr(device, channel, attribute string, src []byte) (int, error) {
	d, err := s.devs.Get(device)
	if err != nil {
		return 0, err
	}
	bd, err := d.WriteAttrs().Lookup(channel, attribute)
	if err != nil {
		return 0, err
	}
	return bd.Fn(src, bd.Channel)
}

// Transfer captures n bytes on device into its capture buffer.
func (s *Service) Transfer(ctx context.Context, device string, n int) (int, error) {
	d, err := s.devs.Get(device)
	if err != nil {
		return 0, err
	}
	return d.Transfer(ctx, n)
}

// ReadDev copies captured bytes of device starting at off.
func (s *Service) ReadDev(device string, dst []byte, off uint32) (int, error) {
	d, err := s.devs.Get(device)
	if err != nil {
		return 0, err
	}
	return d.ReadDev(dst, off)
}

// Devices lists device names in registration order.
func (s *Service) Devices() []string { return s.devs.Names() }

// Channels describes the channels of device.
func (s *Service) Channels(device string) ([]types.ChannelInfo, error) {
	d, err := s.devs.Get(device)
	if err != nil {
		return nil, err
	}
	return d.Channels(), nil
}

// Reply folds a result into the protocol convention: the byte count on
// success, a negative status otherwise.
func Reply(n int, err error) int {
	if err != nil {
		return int(errcode.Errno(err))
	}
	return n
}
