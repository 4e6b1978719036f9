// Package attr is the attribute lookup tree shared by the IIO devices.
//
// A Table maps names to entries. An entry is a leaf carrying an accessor, a
// node carrying a nested table, or both. Tables are built once at start-up and
// never change afterwards, so lookups take no locks.
package attr

import (
	"reflect"
	"strconv"

	"tinyiiod-go/errcode"
)

// Channel identifies one input line by index. Immutable.
type Channel struct {
	num  int
	name string
}

func NewChannel(name string, num int) Channel { return Channel{num: num, name: name} }

func (c Channel) Num() int       { return c.num }
func (c Channel) Name() string   { return c.name }
func (c Channel) String() string { return c.name + "#" + strconv.Itoa(c.num) }

// ReadFn formats one attribute of ch into buf and returns the bytes written.
type ReadFn func(buf []byte, ch Channel) (int, error)

// WriteFn applies the text value src to one attribute of ch and returns the
// bytes consumed.
type WriteFn func(src []byte, ch Channel) (int, error)

// Accessor is either a ReadFn or a WriteFn; a table holds one kind only.
type Accessor interface {
	ReadFn | WriteFn
}

// Entry is one named element of a Table.
type Entry[F Accessor] struct {
	name     string
	fn       F
	hasFn    bool
	children *Table[F]
	ch       Channel
	isChan   bool
}

// Leaf is an entry with an accessor and no children.
func Leaf[F Accessor](name string, fn F) Entry[F] {
	return Entry[F]{name: name, fn: fn, hasFn: true}
}

// Node is an entry scoping a nested table.
func Node[F Accessor](name string, children *Table[F]) Entry[F] {
	return Entry[F]{name: name, children: children}
}

// ChannelNode is a Node bound to a channel; accessors found below it receive ch.
func ChannelNode[F Accessor](ch Channel, children *Table[F]) Entry[F] {
	return Entry[F]{name: ch.Name(), children: children, ch: ch, isChan: true}
}

// WithAccessor adds a direct accessor to a node entry.
func (e Entry[F]) WithAccessor(fn F) Entry[F] {
	e.fn, e.hasFn = fn, true
	return e
}

func (e Entry[F]) Name() string { return e.name }

// Table is an immutable name -> entry mapping with declaration order kept
// for enumeration.
type Table[F Accessor] struct {
	entries map[string]*Entry[F]
	order   []string
}

// NewTable builds a table. It panics on empty or duplicate names and on
// leaves without an accessor; tables are program constants.
func NewTable[F Accessor](entries ...Entry[F]) *Table[F] {
	t := &Table[F]{entries: make(map[string]*Entry[F], len(entries))}
	for i := range entries {
		e := entries[i]
		if e.name == "" {
			panic("attr: entry with empty name")
		}
		if _, dup := t.entries[e.name]; dup {
			panic("attr: duplicate entry " + strconv.Quote(e.name))
		}
		if e.hasFn && isNilFunc(e.fn) {
			e.hasFn = false
		}
		if !e.hasFn && e.children == nil {
			panic("attr: leaf " + strconv.Quote(e.name) + " has no accessor")
		}
		t.entries[e.name] = &e
		t.order = append(t.order, e.name)
	}
	return t
}

func isNilFunc(fn any) bool {
	v := reflect.ValueOf(fn)
	return !v.IsValid() || (v.Kind() == reflect.Func && v.IsNil())
}

// Names lists the entry names in declaration order.
func (t *Table[F]) Names() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.order...)
}

// Entry returns the named entry. Matching is exact and case-sensitive.
func (t *Table[F]) Entry(name string) (*Entry[F], bool) {
	if t == nil {
		return nil, false
	}
	e, ok := t.entries[name]
	return e, ok
}

// Children returns the nested table of a node entry, or nil.
func (e *Entry[F]) Children() *Table[F] { return e.children }

// Bound is a resolved accessor together with the channel it applies to.
type Bound[F Accessor] struct {
	Fn      F
	Channel Channel
}

// Lookup resolves channel then attribute. A miss at either stage returns an
// error matching errcode.NotFound; probing for optional attributes relies on
// that being cheap and non-fatal.
func (t *Table[F]) Lookup(channel, attribute string) (Bound[F], error) {
	return t.Resolve(channel, attribute)
}

// Resolve walks path through nested tables and returns the accessor of the
// final entry. The innermost channel node passed on the way supplies the
// channel context.
func (t *Table[F]) Resolve(path ...string) (Bound[F], error) {
	var out Bound[F]
	if len(path) == 0 {
		return out, errcode.New(errcode.NotFound, "attr.resolve", "empty path")
	}
	cur := t
	for i, name := range path {
		e, ok := cur.Entry(name)
		if !ok {
			return out, &errcode.E{C: errcode.NotFound, Op: "attr.resolve", Msg: strconv.Quote(name)}
		}
		if e.isChan {
			out.Channel = e.ch
		}
		if i == len(path)-1 {
			if !e.hasFn {
				return out, &errcode.E{C: errcode.NotFound, Op: "attr.resolve", Msg: strconv.Quote(name) + " has no accessor"}
			}
			out.Fn = e.fn
			return out, nil
		}
		if e.children == nil {
			return out, &errcode.E{C: errcode.NotFound, Op: "attr.resolve", Msg: strconv.Quote(name) + " has no children"}
		}
		cur = e.children
	}
	return out, nil
}
