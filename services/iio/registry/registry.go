// Package registry maps device names to devices: the first stage of the
// device -> channel -> attribute lookup.
package registry

import (
	"fmt"
	"sync"

	"tinyiiod-go/errcode"
)

type Registry[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string
}

func New[T any]() *Registry[T] {
	return &Registry[T]{items: map[string]T{}}
}

// Register adds a device. Names are fixed at start-up, so a duplicate is a
// programming error and panics.
func (r *Registry[T]) Register(name string, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[name]; exists {
		panic(fmt.Sprintf("device already registered under %q", name))
	}
	r.items[name] = v
	r.order = append(r.order, name)
}

func (r *Registry[T]) Lookup(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[name]
	return v, ok
}

// Get is Lookup returning errcode.NotFound on a miss.
func (r *Registry[T]) Get(name string) (T, error) {
	v, ok := r.Lookup(name)
	if !ok {
		return v, &errcode.E{C: errcode.NotFound, Op: "registry.get", Msg: "device " + name}
	}
	return v, nil
}

// Names lists registered names in registration order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
