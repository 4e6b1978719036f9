// Package bytequeue is a FIFO byte queue built from a singly-linked chain of
// fixed-capacity chunks. Appends go to the tail, reads drain from the head and
// release each chunk as soon as it has been fully consumed.
package bytequeue

import (
	"sync"

	"tinyiiod-go/errcode"
)

// DefaultChunkSize matches the UART receive buffer length.
const DefaultChunkSize = 256

type node struct {
	data []byte // len(data) == chunk capacity
	n    int    // valid bytes, n <= len(data)
	next *node
}

// Queue is safe for one producer and one consumer running concurrently.
type Queue struct {
	mu        sync.Mutex
	head      *node
	tail      *node
	off       int // read cursor in head
	chunk     int
	maxNodes  int // 0 = unbounded
	nodes     int
	available int
}

// New returns a queue with the given chunk capacity. maxNodes bounds the
// number of live chunks; an Append needing more fails with
// errcode.AllocationFailure. Zero means no bound.
func New(chunk, maxNodes int) *Queue {
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	if maxNodes < 0 {
		maxNodes = 0
	}
	return &Queue{
		chunk:    chunk,
		maxNodes: maxNodes,
	}
}

// Append copies p to the tail of the queue. It tops up the tail chunk first and
// then links new chunks. Either all of p is queued or, on error, none of it.
func (q *Queue) Append(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	room := 0
	if q.tail != nil {
		room = len(q.tail.data) - q.tail.n
	}
	need := 0
	if rest := len(p) - room; rest > 0 {
		need = (rest + q.chunk - 1) / q.chunk
	}
	if q.maxNodes > 0 && q.nodes+need > q.maxNodes {
		return errcode.New(errcode.AllocationFailure, "bytequeue.append", "chunk budget exhausted")
	}

	if room > 0 {
		c := copy(q.tail.data[q.tail.n:], p)
		q.tail.n += c
		p = p[c:]
		q.available += c
	}
	for len(p) > 0 {
		nd := &node{data: make([]byte, q.chunk)}
		c := copy(nd.data, p)
		nd.n = c
		p = p[c:]
		q.link(nd)
		q.available += c
	}

	return nil
}

func (q *Queue) link(nd *node) {
	if q.tail == nil {
		q.head = nd
	} else {
		q.tail.next = nd
	}
	q.tail = nd
	q.nodes++
}

// release drops the head chunk once the cursor has reached its end.
func (q *Queue) release() {
	if q.head == nil || q.off < q.head.n {
		return
	}
	next := q.head.next
	q.head.next = nil
	q.head = next
	if next == nil {
		q.tail = nil
	}
	q.off = 0
	q.nodes--
}

// Pop removes one byte from the head. ok is false when the queue is empty;
// that is a signal to wait for more data, not an error.
func (q *Queue) Pop() (b byte, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.available == 0 {
		return 0, false
	}
	b = q.head.data[q.off]
	q.off++
	q.available--
	q.release()
	return b, true
}

// Read drains up to len(p) bytes in arrival order. It never blocks.
func (q *Queue) Read(p []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	total := 0
	for total < len(p) && q.available > 0 {
		c := copy(p[total:], q.head.data[q.off:q.head.n])
		q.off += c
		q.available -= c
		total += c
		q.release()
	}
	return total
}

// IsEmpty reports whether no bytes are queued.
func (q *Queue) IsEmpty() bool { return q.Len() == 0 }

// Len returns the number of queued bytes.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.available
}

// Nodes returns the number of live chunks.
func (q *Queue) Nodes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.nodes
}

// ChunkSize returns the capacity of each chunk.
func (q *Queue) ChunkSize() int { return q.chunk }

// Reset frees every chunk.
func (q *Queue) Reset() {
	q.mu.Lock()
	for nd := q.head; nd != nil; {
		next := nd.next
		nd.next = nil
		nd = next
	}
	q.head, q.tail = nil, nil
	q.off, q.nodes, q.available = 0, 0, 0
	q.mu.Unlock()
}

