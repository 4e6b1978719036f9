package iio

import (
	"context"
	"errors"
	"testing"

	"tinyiiod-go/drivers/axiadc"
	"tinyiiod-go/drivers/axidmac"
	"tinyiiod-go/drivers/ddr"
	"tinyiiod-go/errcode"
	"tinyiiod-go/services/iio/adc"
	"tinyiiod-go/services/iio/attr"
	"tinyiiod-go/types"
)

func newService(t *testing.T) *Service {
	t.Helper()
	ram := ddr.NewRAM(0x1000, 256)
	b, err := adc.New(adc.Config{
		ADC:  axiadc.NewSim(2, 1000000),
		DMA:  axidmac.NewSim(ram, axidmac.Counter()),
		Mem:  ram,
		Base: 0x1000,

		Channels: 2,
	})
	if err != nil {
		t.Fatalf("adc.New: %v", err)
	}
	return New(b)
}

func TestReadWriteThroughService(t *testing.T) {
	s := newService(t)
	if n, err := s.WriteAttr(adc.DefaultName, "voltage1", "calibscale", []byte("0.75")); err != nil || n != 4 {
		t.Fatalf("WriteAttr = %d, %v", n, err)
	}
	buf := make([]byte, 16)
	n, err := s.ReadAttr(adc.DefaultName, "voltage1", "calibscale", buf)
	if err != nil || string(buf[:n]) != "0.750000" {
		t.Fatalf("ReadAttr = %q, %v", buf[:n], err)
	}
}

func TestMissesAreNotFound(t *testing.T) {
	s := newService(t)
	buf := make([]byte, 16)
	cases := [][3]string{
		{"nodev", "voltage0", "calibbias"},
		{adc.DefaultName, "voltage2", "calibbias"},
		{adc.DefaultName, "voltage0", "nope"},
	}
	for _, c := range cases {
		_, err := s.ReadAttr(c[0], c[1], c[2], buf)
		if !errors.Is(err, errcode.NotFound) {
			t.Fatalf("ReadAttr%v err=%v", c, err)
		}
		if Reply(0, err) != -2 {
			t.Fatalf("Reply = %d", Reply(0, err))
		}
	}
}

func TestReplyConvention(t *testing.T) {
	s := newService(t)
	_, err := s.WriteAttr(adc.DefaultName, "voltage0", "sampling_frequency", []byte("1"))
	if Reply(0, err) != -19 {
		t.Fatalf("unsupported -> %d", Reply(0, err))
	}
	if Reply(7, nil) != 7 {
		t.Fatal("success should return count")
	}
}

func TestCapturePath(t *testing.T) {
	s := newService(t)
	if _, err := s.Transfer(context.Background(), adc.DefaultName, 8); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	dst := make([]byte, 4)
	if n, err := s.ReadDev(adc.DefaultName, dst, 4); err != nil || n != 4 || dst[0] != 4 || dst[3] != 7 {
		t.Fatalf("ReadDev = %d %v %v", n, err, dst)
	}
	if _, err := s.Transfer(context.Background(), "nodev", 8); !errors.Is(err, errcode.NotFound) {
		t.Fatalf("Transfer on missing device err=%v", err)
	}
}

func TestDevicesAndChannels(t *testing.T) {
	s := newService(t)
	if got := s.Devices(); len(got) != 1 || got[0] != adc.DefaultName {
		t.Fatalf("Devices = %v", got)
	}
	chs, err := s.Channels(adc.DefaultName)
	if err != nil || len(chs) != 2 {
		t.Fatalf("Channels = %v, %v", chs, err)
	}
}

// stub exercises the interface with a hand-built tree.
type stub struct {
	hits int
}

func (s *stub) Name() string { return "stub" }
func (s *stub) ReadAttrs() *attr.Table[attr.ReadFn] {
	return attr.NewTable(attr.ChannelNode(attr.NewChannel("temp0", 0), attr.NewTable(
		attr.Leaf("raw", attr.ReadFn(func(buf []byte, ch attr.Channel) (int, error) {
			s.hits++
			return copy(buf, ch.Name()), nil
		})),
	)))
}
func (s *stub) WriteAttrs() *attr.Table[attr.WriteFn] { return nil }
func (s *stub) Transfer(context.Context, int) (int, error) { return 0, errcode.Unsupported }
func (s *stub) ReadDev([]byte, uint32) (int, error) { return 0, errcode.Unsupported }
func (s *stub) Channels() []types.ChannelInfo { return nil }

func TestForeignDeviceAndDuplicate(t *testing.T) {
	st := &stub{}
	s := New(st)
	buf := make([]byte, 8)
	n, err := s.ReadAttr("stub", "temp0", "raw", buf)
	if err != nil || string(buf[:n]) != "temp0" || st.hits != 1 {
		t.Fatalf("ReadAttr = %q %v hits=%d", buf[:n], err, st.hits)
	}
	if _, err := s.WriteAttr("stub", "temp0", "raw", []byte("1")); !errors.Is(err, errcode.NotFound) {
		t.Fatalf("write on nil table err=%v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("duplicate Register did not panic")
		}
	}()
	s.Register(st)
}
