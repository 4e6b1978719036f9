package types

// ------------------------
// UART
// ------------------------

type UARTVariant uint8

const (
	VariantZynq UARTVariant = iota
	VariantZynqMP
)

func (v UARTVariant) String() string {
	if v == VariantZynqMP {
		return "zynqmp"
	}
	return "zynq"
}

func (v UARTVariant) MarshalJSON() ([]byte, error) { return []byte(`"` + v.String() + `"`), nil }

type UARTInfo struct {
	DeviceID  uint32      `json:"device_id"`
	IRQ       uint32      `json:"irq"`
	Baud      uint32      `json:"baud"`
	Variant   UARTVariant `json:"variant"`
	RxBufSize int         `json:"rx_buf_size"`
	ChunkSize int         `json:"chunk_size"`
	Buffered  int         `json:"buffered"` // bytes waiting in the software queue
}
