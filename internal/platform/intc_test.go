package platform

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"tinyiiod-go/errcode"
)

func TestRaiseRunsEnabledLine(t *testing.T) {
	c := NewSoftController()
	var hits int32
	if err := c.Register(5, func() { atomic.AddInt32(&hits, 1) }); err != nil {
		t.Fatal(err)
	}
	c.Raise(5) // not enabled yet: latched
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatal("disabled line ran its routine")
	}
	if err := c.Enable(5); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("latched raise not delivered on enable, hits=%d", hits)
	}
	c.Raise(5)
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("hits=%d", hits)
	}
	c.Raise(99) // unknown line: dropped
}

func TestRegisterErrors(t *testing.T) {
	c := NewSoftController()
	if err := c.Register(1, nil); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("nil isr err=%v", err)
	}
	_ = c.Register(1, func() {})
	if err := c.Register(1, func() {}); !errors.Is(err, errcode.Busy) {
		t.Fatalf("duplicate err=%v", err)
	}
	if err := c.Enable(2); !errors.Is(err, errcode.NotFound) {
		t.Fatalf("enable unknown err=%v", err)
	}
	if err := c.Unregister(1); err != nil || c.Registered(1) {
		t.Fatalf("Unregister err=%v registered=%v", err, c.Registered(1))
	}
}

func TestDisableWaitsForRunningRoutine(t *testing.T) {
	c := NewSoftController()
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished int32
	_ = c.Register(3, func() {
		close(entered)
		<-release
		atomic.StoreInt32(&finished, 1)
	})
	_ = c.Enable(3)
	go c.Raise(3)
	<-entered

	done := make(chan struct{})
	go func() {
		_ = c.Disable(3)
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("Disable returned while routine was running")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Disable did not return")
	}
	if atomic.LoadInt32(&finished) != 1 {
		t.Fatal("routine not finished when Disable returned")
	}
}
