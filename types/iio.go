package types

import "tinygo.org/x/drivers"

// ------------------------
// IIO devices
// ------------------------

type ChannelInfo struct {
	Device  string              `json:"device"`
	Name    string              `json:"name"`    // "voltage0", ...
	Index   int                 `json:"index"`
	Measure drivers.Measurement `json:"measure"` // drivers.Voltage for ADC inputs
	Attrs   []string            `json:"attrs"`   // readable attribute names
}
