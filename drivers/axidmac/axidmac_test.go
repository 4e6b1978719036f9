package axidmac

import (
	"context"
	"errors"
	"testing"
	"time"

	"tinyiiod-go/drivers/ddr"
	"tinyiiod-go/errcode"
)

func TestTransferWritesSourceStream(t *testing.T) {
	ram := ddr.NewRAM(0x100, 32)
	d := NewSim(ram, Counter())
	if err := d.Transfer(context.Background(), 0x100, 4); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if err := d.Transfer(context.Background(), 0x104, 4); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	buf := make([]byte, 8)
	_, _ = ram.ReadAt(buf, 0x100)
	for i, b := range buf {
		if int(b) != i {
			t.Fatalf("byte %d = %d", i, b)
		}
	}
	if d.Transfers() != 2 {
		t.Fatalf("Transfers() = %d", d.Transfers())
	}
}

func TestTransferHonoursContext(t *testing.T) {
	d := NewSim(ddr.NewRAM(0, 8), Counter())
	d.Latency = time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := d.Transfer(ctx, 0, 4); !errors.Is(err, errcode.Timeout) {
		t.Fatalf("want timeout, got %v", err)
	}
}

func TestResetFlags(t *testing.T) {
	d := NewSim(ddr.NewRAM(0, 8), nil)
	d.SetFlags(FlagCyclic | FlagLast)
	d.ResetFlags()
	if d.Flags() != 0 {
		t.Fatalf("flags = %b", d.Flags())
	}
}
