// Package config resolves the board description: which ADC and UART to
// bring up and how. Boards come from the embedded set or from a YAML/JSON
// file.
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tinyiiod-go/errcode"
	"tinyiiod-go/internal/util"
	"tinyiiod-go/types"
)

const DefaultBoard = "zc702"

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	return b, ok
}

type Board struct {
	Name string `json:"name" yaml:"name"`
	ADC  ADC    `json:"adc" yaml:"adc"`
	UART UART   `json:"uart" yaml:"uart"`
}

type ADC struct {
	Device            string `json:"device,omitempty" yaml:"device,omitempty"`
	Channels          int    `json:"channels,omitempty" yaml:"channels,omitempty"`       // 1..16
	SamplingHz        uint64 `json:"sampling_hz,omitempty" yaml:"sampling_hz,omitempty"` // simulated core only
	CaptureBase       uint32 `json:"capture_base,omitempty" yaml:"capture_base,omitempty"`
	CaptureSize       int    `json:"capture_size,omitempty" yaml:"capture_size,omitempty"`
	TransferTimeoutMS int    `json:"transfer_timeout_ms,omitempty" yaml:"transfer_timeout_ms,omitempty"` // 0 = none
}

type UART struct {
	DeviceID      uint32 `json:"device_id" yaml:"device_id"`
	IRQ           uint32 `json:"irq,omitempty" yaml:"irq,omitempty"` // 0 = board default
	Baud          uint32 `json:"baud,omitempty" yaml:"baud,omitempty"`
	Variant       string `json:"variant,omitempty" yaml:"variant,omitempty"`                 // "zynq" | "zynqmp"
	RxBufSize     int    `json:"rx_buf_size,omitempty" yaml:"rx_buf_size,omitempty"`         // 16..4096
	ChunkSize     int    `json:"chunk_size,omitempty" yaml:"chunk_size,omitempty"`           // 16..4096
	MaxChunks     int    `json:"max_chunks,omitempty" yaml:"max_chunks,omitempty"`           // 1..4096
	RecvTimeout   int    `json:"recv_timeout,omitempty" yaml:"recv_timeout,omitempty"`       // x4 char times, 1..255
	ReadTimeoutMS int    `json:"read_timeout_ms,omitempty" yaml:"read_timeout_ms,omitempty"` // 0 = block
	Port          string `json:"port,omitempty" yaml:"port,omitempty"`                       // host serial device
}

// Normalize applies defaults and clamps every field to its range.
func (b *Board) Normalize() {
	a := &b.ADC
	if a.Device == "" {
		a.Device = "cf-ad9361-lpc"
	}
	a.Channels = util.DefaultInt(a.Channels, 4, 1, 16)
	if a.SamplingHz == 0 {
		a.SamplingHz = 61_440_000
	}
	if a.CaptureBase == 0 {
		a.CaptureBase = 0x800000
	}
	a.CaptureSize = util.DefaultInt(a.CaptureSize, 0x10000, 256, 16<<20)
	a.TransferTimeoutMS = util.ClampInt(a.TransferTimeoutMS, 0, 60_000)

	u := &b.UART
	if u.Baud == 0 {
		u.Baud = 115200
	}
	u.Variant = strings.ToLower(u.Variant)
	if u.Variant != "zynqmp" {
		u.Variant = "zynq"
	}
	u.RxBufSize = util.DefaultInt(u.RxBufSize, 256, 16, 4096)
	u.ChunkSize = util.DefaultInt(u.ChunkSize, u.RxBufSize, 16, 4096)
	u.MaxChunks = util.DefaultInt(u.MaxChunks, 64, 1, 4096)
	// The budget must hold one full receive buffer.
	if need := (u.RxBufSize + u.ChunkSize - 1) / u.ChunkSize; u.MaxChunks < need {
		u.MaxChunks = need
	}
	u.RecvTimeout = util.DefaultInt(u.RecvTimeout, 8, 1, 255)
	u.ReadTimeoutMS = util.ClampInt(u.ReadTimeoutMS, 0, 60_000)
}

func (u UART) VariantValue() types.UARTVariant {
	if u.Variant == "zynqmp" {
		return types.VariantZynqMP
	}
	return types.VariantZynq
}

func (u UART) ReadTimeout() time.Duration { return time.Duration(u.ReadTimeoutMS) * time.Millisecond }

func (a ADC) TransferTimeout() time.Duration {
	return time.Duration(a.TransferTimeoutMS) * time.Millisecond
}

// Embedded returns the named built-in board, normalised.
func Embedded(name string) (Board, error) {
	raw, ok := EmbeddedConfigLookup(name)
	if !ok || len(raw) == 0 {
		return Board{}, &errcode.E{C: errcode.NotFound, Op: "config.embedded", Msg: "no embedded config for board: " + name}
	}
	var b Board
	if err := util.DecodeJSON(raw, &b); err != nil {
		return Board{}, errcode.Wrap(errcode.InvalidParams, "config.embedded", err)
	}
	if b.Name == "" {
		b.Name = name
	}
	b.Normalize()
	return b, nil
}

// LoadFile reads a board from a .yaml/.yml or .json file.
func LoadFile(path string) (Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Board{}, errcode.Wrap(errcode.NotFound, "config.load", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes data according to ext (".json", or YAML otherwise).
func Parse(data []byte, ext string) (Board, error) {
	var b Board
	var err error
	if strings.EqualFold(ext, ".json") {
		err = util.DecodeJSON(data, &b)
	} else {
		err = yaml.Unmarshal(data, &b)
	}
	if err != nil {
		return Board{}, errcode.Wrap(errcode.InvalidParams, "config.parse", err)
	}
	b.Normalize()
	return b, nil
}

// Names lists the embedded boards in sorted order.
func Names() []string {
	out := make([]string, 0, len(embeddedConfigs))
	for k := range embeddedConfigs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
