// Package adc exposes the calibration registers and the DMA capture buffer of
// an ADC core as IIO attributes.
package adc

import (
	"context"
	"strconv"
	"time"

	"tinygo.org/x/drivers"

	"tinyiiod-go/drivers/axiadc"
	"tinyiiod-go/drivers/axidmac"
	"tinyiiod-go/drivers/ddr"
	"tinyiiod-go/errcode"
	"tinyiiod-go/services/iio/attr"
	"tinyiiod-go/types"
	"tinyiiod-go/x/conv"
)

const (
	DefaultName     = "cf-ad9361-lpc"
	DefaultChannels = 4
)

// Attribute names exposed on every channel.
const (
	AttrCalibPhase   = "calibphase"
	AttrCalibBias    = "calibbias"
	AttrCalibScale   = "calibscale"
	AttrSamplesPPS   = "samples_pps"
	AttrSamplingFreq = "sampling_frequency"
)

type Config struct {
	Name     string
	Channels int

	ADC   axiadc.Core
	DMA   axidmac.Engine
	Cache ddr.Cache // optional
	Mem   ddr.Memory

	// Base is the bus address of the capture buffer.
	Base uint32
	// TransferTimeout bounds one DMA transfer; zero waits for the context only.
	TransferTimeout time.Duration
}

// Bridge holds the handles of one ADC device. It is built once and is safe
// for concurrent use as long as the capabilities are.
type Bridge struct {
	name    string
	adc     axiadc.Core
	dma     axidmac.Engine
	cache   ddr.Cache
	mem     ddr.Memory
	base    uint32
	timeout time.Duration

	chans []attr.Channel
	read  *attr.Table[attr.ReadFn]
	write *attr.Table[attr.WriteFn]
}

func New(cfg Config) (*Bridge, error) {
	if cfg.ADC == nil || cfg.DMA == nil || cfg.Mem == nil {
		return nil, errcode.New(errcode.InvalidParams, "adc.new", "adc, dma and memory are required")
	}
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.Channels <= 0 {
		cfg.Channels = DefaultChannels
	}
	b := &Bridge{
		name:    cfg.Name,
		adc:     cfg.ADC,
		dma:     cfg.DMA,
		cache:   cfg.Cache,
		mem:     cfg.Mem,
		base:    cfg.Base,
		timeout: cfg.TransferTimeout,
	}
	b.buildTables(cfg.Channels)
	return b, nil
}

func (b *Bridge) buildTables(n int) {
	rd := attr.NewTable(
		attr.Leaf(AttrCalibPhase, attr.ReadFn(b.readCalibPhase)),
		attr.Leaf(AttrCalibBias, attr.ReadFn(b.readCalibBias)),
		attr.Leaf(AttrCalibScale, attr.ReadFn(b.readCalibScale)),
		attr.Leaf(AttrSamplesPPS, attr.ReadFn(unsupportedRead)),
		attr.Leaf(AttrSamplingFreq, attr.ReadFn(b.readSamplingFreq)),
	)
	wr := attr.NewTable(
		attr.Leaf(AttrCalibPhase, attr.WriteFn(b.writeCalibPhase)),
		attr.Leaf(AttrCalibBias, attr.WriteFn(b.writeCalibBias)),
		attr.Leaf(AttrCalibScale, attr.WriteFn(b.writeCalibScale)),
		attr.Leaf(AttrSamplesPPS, attr.WriteFn(unsupportedWrite)),
		attr.Leaf(AttrSamplingFreq, attr.WriteFn(unsupportedWrite)),
	)

	b.chans = make([]attr.Channel, n)
	rdev := make([]attr.Entry[attr.ReadFn], n)
	wdev := make([]attr.Entry[attr.WriteFn], n)
	for i := 0; i < n; i++ {
		ch := attr.NewChannel("voltage"+strconv.Itoa(i), i)
		b.chans[i] = ch
		rdev[i] = attr.ChannelNode(ch, rd)
		wdev[i] = attr.ChannelNode(ch, wr)
	}
	b.read = attr.NewTable(rdev...)
	b.write = attr.NewTable(wdev...)
}

func (b *Bridge) Name() string { return b.name }

// ReadAttrs is the channel -> attribute table of read accessors.
func (b *Bridge) ReadAttrs() *attr.Table[attr.ReadFn] { return b.read }

// WriteAttrs is the channel -> attribute table of write accessors.
func (b *Bridge) WriteAttrs() *attr.Table[attr.WriteFn] { return b.write }

// ReadAttr formats attribute of channel into buf.
func (b *Bridge) ReadAttr(channel, attribute string, buf []byte) (int, error) {
	bd, err := b.read.Lookup(channel, attribute)
	if err != nil {
		return 0, err
	}
	return bd.Fn(buf, bd.Channel)
}

// WriteAttr applies the text value src to attribute of channel.
func (b *Bridge) WriteAttr(channel, attribute string, src []byte) (int, error) {
	bd, err := b.write.Lookup(channel, attribute)
	if err != nil {
		return 0, err
	}
	return bd.Fn(src, bd.Channel)
}

// Channels describes every input with its readable attributes.
func (b *Bridge) Channels() []types.ChannelInfo {
	out := make([]types.ChannelInfo, 0, len(b.chans))
	for _, ch := range b.chans {
		var names []string
		if e, ok := b.read.Entry(ch.Name()); ok {
			names = e.Children().Names()
		}
		out = append(out, types.ChannelInfo{
			Device:  b.name,
			Name:    ch.Name(),
			Index:   ch.Num(),
			Measure: drivers.Voltage,
			Attrs:   names,
		})
	}
	return out
}

// ---- read accessors ----

func hwErr(op string, err error) error {
	return errcode.Wrap(errcode.HardwareFailure, op, err)
}

func (b *Bridge) readCalibPhase(buf []byte, ch attr.Channel) (int, error) {
	val, val2, err := b.adc.CalibPhase(ch.Num())
	if err != nil {
		return 0, hwErr("adc.calibphase", err)
	}
	return conv.PutMicro(buf, val, val2), nil
}

func (b *Bridge) readCalibBias(buf []byte, ch attr.Channel) (int, error) {
	val, _, err := b.adc.CalibBias(ch.Num())
	if err != nil {
		return 0, hwErr("adc.calibbias", err)
	}
	return conv.PutInt(buf, int64(val)), nil
}

func (b *Bridge) readCalibScale(buf []byte, ch attr.Channel) (int, error) {
	val, val2, err := b.adc.CalibScale(ch.Num())
	if err != nil {
		return 0, hwErr("adc.calibscale", err)
	}
	return conv.PutMicro(buf, val, val2), nil
}

func (b *Bridge) readSamplingFreq(buf []byte, ch attr.Channel) (int, error) {
	hz, err := b.adc.SamplingFreq(ch.Num())
	if err != nil {
		return 0, hwErr("adc.sampling_frequency", err)
	}
	return conv.PutUint(buf, hz), nil
}

func unsupportedRead(_ []byte, ch attr.Channel) (int, error) {
	return 0, errcode.New(errcode.Unsupported, "adc.read", ch.Name())
}

// ---- write accessors ----

func (b *Bridge) writeCalibPhase(src []byte, ch attr.Channel) (int, error) {
	val, val2, err := conv.ParseMicro(src)
	if err != nil {
		return 0, err
	}
	if err := b.adc.SetCalibPhase(ch.Num(), val, val2); err != nil {
		return 0, hwErr("adc.calibphase", err)
	}
	return len(src), nil
}

func (b *Bridge) writeCalibBias(src []byte, ch attr.Channel) (int, error) {
	val, err := conv.ParseInt32(src)
	if err != nil {
		return 0, err
	}
	if err := b.adc.SetCalibBias(ch.Num(), val, 0); err != nil {
		return 0, hwErr("adc.calibbias", err)
	}
	return len(src), nil
}

func (b *Bridge) writeCalibScale(src []byte, ch attr.Channel) (int, error) {
	val, val2, err := conv.ParseMicro(src)
	if err != nil {
		return 0, err
	}
	if err := b.adc.SetCalibScale(ch.Num(), val, val2); err != nil {
		return 0, hwErr("adc.calibscale", err)
	}
	return len(src), nil
}

func unsupportedWrite(_ []byte, ch attr.Channel) (int, error) {
	return 0, errcode.New(errcode.Unsupported, "adc.write", ch.Name())
}

// ---- capture path ----

// Transfer captures n bytes into the capture buffer and invalidates the
// cached copy of that range. It must precede ReadDev for fresh data.
func (b *Bridge) Transfer(ctx context.Context, n int) (int, error) {
	if n < 0 {
		return 0, errcode.New(errcode.InvalidParams, "adc.transfer", "negative length")
	}
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	b.dma.ResetFlags()
	if err := b.dma.Transfer(ctx, b.base, n); err != nil {
		return 0, err
	}
	if b.cache != nil {
		b.cache.InvalidateRange(b.base, n)
	}
	return n, nil
}

// ReadDev copies len(dst) bytes from the capture buffer at off. The captured
// length is not checked.
func (b *Bridge) ReadDev(dst []byte, off uint32) (int, error) {
	return b.mem.ReadAt(dst, b.base+off)
}
