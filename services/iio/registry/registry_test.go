package registry

import (
	"errors"
	"testing"

	"tinyiiod-go/errcode"
)

type dummyDevice struct{ id int }

func TestRegisterAndLookup(t *testing.T) {
	r := New[*dummyDevice]()
	r.Register("cf-ad9361-lpc", &dummyDevice{id: 1})
	d, ok := r.Lookup("cf-ad9361-lpc")
	if !ok || d.id != 1 {
		t.Fatalf("lookup failed: %v %v", d, ok)
	}
	if _, err := r.Get("missing"); !errors.Is(err, errcode.NotFound) {
		t.Fatalf("Get(missing) err=%v", err)
	}
	if names := r.Names(); len(names) != 1 || names[0] != "cf-ad9361-lpc" {
		t.Fatalf("Names() = %v", names)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	r := New[int]()
	r.Register("a", 1)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	r.Register("a", 2)
}
