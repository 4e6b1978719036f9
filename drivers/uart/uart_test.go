package uart_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"tinyiiod-go/drivers/uart"
	"tinyiiod-go/errcode"
	"tinyiiod-go/internal/platform"
)

func setup(t *testing.T, v uart.Variant, mod func(*uart.InitParams)) (*uart.UART, *platform.SimBoard, *platform.SimUART) {
	t.Helper()
	b := platform.NewSimBoard(v)
	p := uart.InitParams{
		BaudRate: 115200,
		DeviceID: 0,
		IRQID:    b.IRQ(0),
		IRQ:      b.Intc,
		Provider: b,
	}
	if mod != nil {
		mod(&p)
	}
	u, err := uart.Init(p)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = u.Remove() })
	return u, b, b.UART(0)
}

type result struct {
	n   int
	err error
	buf []byte
}

func readAsync(u *uart.UART, n int) <-chan result {
	ch := make(chan result, 1)
	go func() {
		buf := make([]byte, n)
		k, err := u.ReadContext(context.Background(), buf)
		ch <- result{k, err, buf[:k]}
	}()
	return ch
}

func TestReadWaitsForAllBytes(t *testing.T) {
	u, _, sim := setup(t, uart.VariantZynq, nil)
	res := readAsync(u, 5)

	sim.Inject([]byte("ab"))
	select {
	case r := <-res:
		t.Fatalf("read returned early: %+v", r)
	case <-time.After(30 * time.Millisecond):
	}
	sim.Inject([]byte("cde"))
	select {
	case r := <-res:
		if r.err != nil || string(r.buf) != "abcde" {
			t.Fatalf("read = %q, %v", r.buf, r.err)
		}
	case <-time.After(time.Second):
		t.Fatal("read did not complete")
	}
}

func TestRepeatedCompletionIsRecounted(t *testing.T) {
	u, _, sim := setup(t, uart.VariantZynq, nil)
	// Two completions before anyone reads: the second report overwrites the
	// first with the larger fill level.
	sim.Inject([]byte("abc"))
	sim.Inject([]byte("de"))
	if got := u.Buffered(); got != 5 {
		t.Fatalf("Buffered = %d", got)
	}
	buf := make([]byte, 5)
	n, err := u.Read(buf)
	if err != nil || string(buf[:n]) != "abcde" {
		t.Fatalf("Read = %q, %v", buf[:n], err)
	}
	if got := u.Buffered(); got != 0 {
		t.Fatalf("Buffered after read = %d", got)
	}
	sim.Inject([]byte("f"))
	n, err = u.Read(buf[:1])
	if err != nil || n != 1 || buf[0] != 'f' {
		t.Fatalf("second Read = %q, %v", buf[:n], err)
	}
}

func TestBufferOverflowIntoFIFO(t *testing.T) {
	u, _, sim := setup(t, uart.VariantZynq, func(p *uart.InitParams) { p.RxBufSize = 16 })
	msg := []byte("0123456789abcdefghijklmnopqrstuv") // two full buffers
	sim.Inject(msg)
	buf := make([]byte, len(msg))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n, err := u.ReadContext(ctx, buf)
	if err != nil || string(buf[:n]) != string(msg) {
		t.Fatalf("ReadContext = %q, %v", buf[:n], err)
	}
}

func TestStreamingOrder(t *testing.T) {
	u, _, sim := setup(t, uart.VariantZynq, func(p *uart.InitParams) {
		p.RxBufSize = 16
		p.ChunkSize = 16
	})
	const total = 700
	var consumed int64

	go func() {
		next := byte(0)
		produced := 0
		for produced < total {
			if int64(produced)-atomic.LoadInt64(&consumed) > 16 {
				time.Sleep(100 * time.Microsecond)
				continue
			}
			k := 1 + produced%10
			if produced+k > total {
				k = total - produced
			}
			p := make([]byte, k)
			for i := range p {
				p[i] = next
				next++
			}
			sim.Inject(p)
			produced += k
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	want := byte(0)
	buf := make([]byte, 7)
	for got := 0; got < total; got += len(buf) {
		n, err := u.ReadContext(ctx, buf)
		if err != nil {
			t.Fatalf("ReadContext after %d bytes: %v", got, err)
		}
		for i := 0; i < n; i++ {
			if buf[i] != want {
				t.Fatalf("byte %d = %d, want %d", got+i, buf[i], want)
			}
			want++
		}
		atomic.AddInt64(&consumed, int64(n))
	}
	if u.Errors() != 0 {
		t.Fatal("unexpected receive errors")
	}
}

func TestReadTimeout(t *testing.T) {
	u, _, sim := setup(t, uart.VariantZynq, func(p *uart.InitParams) { p.ReadTimeout = 20 * time.Millisecond })
	buf := make([]byte, 4)
	if n, err := u.Read(buf); n != 0 || !errors.Is(err, errcode.Timeout) {
		t.Fatalf("Read = %d, %v", n, err)
	}
	sim.Inject([]byte("ab"))
	n, err := u.Read(buf)
	if n != 2 || !errors.Is(err, errcode.Timeout) || string(buf[:2]) != "ab" {
		t.Fatalf("partial Read = %d %q, %v", n, buf[:n], err)
	}
}

func TestErrorsReadAndClear(t *testing.T) {
	u, _, sim := setup(t, uart.VariantZynqMP, nil)
	sim.InjectFault(platform.FaultParity)
	sim.InjectFault(platform.FaultOverrun)
	sim.InjectFault(platform.FaultBreak)
	if got := u.Errors(); got != 3 {
		t.Fatalf("Errors = %d, want 3", got)
	}
	if got := u.Errors(); got != 0 {
		t.Fatalf("second Errors = %d, want 0", got)
	}
	// errors do not touch the data path
	if u.Buffered() != 0 {
		t.Fatalf("Buffered = %d", u.Buffered())
	}
}

func TestBreakIgnoredOnZynq(t *testing.T) {
	u, _, sim := setup(t, uart.VariantZynq, nil)
	sim.InjectFault(platform.FaultBreak)
	sim.InjectFault(platform.FaultFraming)
	if got := u.Errors(); got != 1 {
		t.Fatalf("Errors = %d, want 1", got)
	}
}

func TestWrite(t *testing.T) {
	u, _, sim := setup(t, uart.VariantZynq, nil)
	n, err := u.Write([]byte("hello"))
	if err != nil || n != 5 || string(sim.Sent()) != "hello" {
		t.Fatalf("Write = %d, %v sent=%q", n, err, sim.Sent())
	}
	if sim.IsSending() {
		t.Fatal("Write returned before the transmitter drained")
	}
}

func TestShortWriteFails(t *testing.T) {
	u, _, sim := setup(t, uart.VariantZynq, nil)
	sim.SetTxLimit(2)
	n, err := u.Write([]byte("hello"))
	if n != 2 || !errors.Is(err, errcode.Failure) {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if string(sim.Sent()) != "he" {
		t.Fatalf("sent %q", sim.Sent())
	}
}

func TestLocalLoopEcho(t *testing.T) {
	u, _, sim := setup(t, uart.VariantZynq, nil)
	_ = sim.SetMode(uart.ModeLocalLoop)
	if _, err := u.Write([]byte("ping")); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 4)
	if n, err := u.Read(buf); err != nil || string(buf[:n]) != "ping" {
		t.Fatalf("Read = %q, %v", buf[:n], err)
	}
}

func TestInitRejectsShortChunkBudget(t *testing.T) {
	b := platform.NewSimBoard(uart.VariantZynq)
	p := uart.InitParams{
		DeviceID:  0,
		IRQID:     b.IRQ(0),
		IRQ:       b.Intc,
		Provider:  b,
		RxBufSize: 64,
		ChunkSize: 16,
		MaxChunks: 2,
	}
	u, err := uart.Init(p)
	if u != nil || !errors.Is(err, errcode.InitFailure) {
		t.Fatalf("Init = %v, %v", u, err)
	}
	if b.UART(0) != nil || b.Intc.Registered(b.IRQ(0)) {
		t.Fatal("hardware touched for a rejected config")
	}

	// Four chunks hold the whole buffer, so a 40 byte burst drains in one go.
	u, _, sim := setup(t, uart.VariantZynq, func(p *uart.InitParams) {
		p.RxBufSize = 64
		p.ChunkSize = 16
		p.MaxChunks = 4
	})
	msg := []byte("0123456789abcdefghijklmnopqrstuvwxyzABCD")
	sim.Inject(msg)
	buf := make([]byte, len(msg))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n, err := u.ReadContext(ctx, buf)
	if err != nil || string(buf[:n]) != string(msg) {
		t.Fatalf("Read = %q, %v", buf[:n], err)
	}
}

func TestRemove(t *testing.T) {
	b := platform.NewSimBoard(uart.VariantZynq)
	u, err := uart.Init(uart.InitParams{DeviceID: 1, IRQID: b.IRQ(1), IRQ: b.Intc, Provider: b})
	if err != nil {
		t.Fatal(err)
	}
	sim := b.UART(1)
	sim.Inject([]byte("xyz"))
	res := readAsync(u, 10)

	time.Sleep(10 * time.Millisecond)
	if err := u.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	select {
	case r := <-res:
		if !errors.Is(r.err, errcode.Closed) || string(r.buf) != "xyz" {
			t.Fatalf("blocked read = %q, %v", r.buf, r.err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked read not released")
	}
	if b.Intc.Registered(b.IRQ(1)) || !sim.Closed() {
		t.Fatal("interrupt or transceiver not released")
	}
	if u.Buffered() != 0 {
		t.Fatalf("queue not freed: %d", u.Buffered())
	}
	if err := u.Remove(); !errors.Is(err, errcode.Closed) {
		t.Fatalf("second Remove = %v", err)
	}
	if _, err := u.Read(make([]byte, 1)); !errors.Is(err, errcode.Closed) {
		t.Fatalf("Read after Remove = %v", err)
	}
	if _, err := u.Write([]byte("x")); !errors.Is(err, errcode.Closed) {
		t.Fatalf("Write after Remove = %v", err)
	}
}

func TestInitFailuresReleaseEverything(t *testing.T) {
	boom := errcode.Status(-5)
	cases := []struct {
		name  string
		setup func(b *platform.SimBoard, p *uart.InitParams)
	}{
		{"unknown device", func(_ *platform.SimBoard, p *uart.InitParams) { p.DeviceID = 7 }},
		{"open", func(b *platform.SimBoard, _ *uart.InitParams) { b.FailOpen(boom) }},
		{"mode", func(b *platform.SimBoard, _ *uart.InitParams) {
			b.OnOpen(func(s *platform.SimUART) { s.FailMode(boom) })
		}},
		{"baud", func(b *platform.SimBoard, _ *uart.InitParams) {
			b.OnOpen(func(s *platform.SimUART) { s.FailBaud(boom) })
		}},
		{"irq taken", func(b *platform.SimBoard, p *uart.InitParams) {
			_ = b.Intc.Register(p.IRQID, func() {})
		}},
		{"irq not registered", func(_ *platform.SimBoard, p *uart.InitParams) { p.IRQ = nil }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := platform.NewSimBoard(uart.VariantZynq)
			p := uart.InitParams{DeviceID: 0, IRQID: b.IRQ(0), IRQ: b.Intc, Provider: b}
			c.setup(b, &p)
			u, err := uart.Init(p)
			if u != nil || !errors.Is(err, errcode.InitFailure) {
				t.Fatalf("Init = %v, %v", u, err)
			}
			if s := b.UART(0); s != nil && !s.Closed() {
				t.Fatal("transceiver left open")
			}
			if c.name != "irq taken" && b.Intc.Registered(b.IRQ(0)) {
				t.Fatal("interrupt left registered")
			}
		})
	}
}

func TestInfo(t *testing.T) {
	u, b, sim := setup(t, uart.VariantZynqMP, func(p *uart.InitParams) { p.RxBufSize = 64 })
	sim.Inject([]byte("12"))
	info := u.Info()
	if info.Baud != 115200 || info.IRQ != b.IRQ(0) || info.RxBufSize != 64 || info.ChunkSize != 64 ||
		info.Variant != uart.VariantZynqMP || info.Buffered != 2 {
		t.Fatalf("Info = %+v", info)
	}
}
