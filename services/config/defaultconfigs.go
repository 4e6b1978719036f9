package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: board name
// Val: raw JSON bytes for that board
// -----------------------------------------------------------------------------

const cfgZC702 = `{
  "name": "zc702",
  "adc": {
    "device": "cf-ad9361-lpc",
    "channels": 4,
    "capture_base": 8388608
  },
  "uart": {
    "device_id": 0,
    "variant": "zynq",
    "baud": 115200
  }
}`

const cfgZCU102 = `{
  "name": "zcu102",
  "adc": {
    "channels": 4,
    "capture_base": 8388608,
    "transfer_timeout_ms": 1000
  },
  "uart": {
    "device_id": 0,
    "variant": "zynqmp",
    "baud": 115200,
    "recv_timeout": 8
  }
}`

const cfgPico = `{
  "name": "pico",
  "adc": {
    "channels": 2,
    "capture_size": 4096
  },
  "uart": {
    "device_id": 0,
    "baud": 115200,
    "rx_buf_size": 64,
    "max_chunks": 16
  }
}`

var embeddedConfigs = map[string][]byte{
	"zc702":  []byte(cfgZC702),
	"zcu102": []byte(cfgZCU102),
	"pico":   []byte(cfgPico),
}
