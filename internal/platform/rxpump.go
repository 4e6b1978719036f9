package platform

import (
	"context"
	"time"
)

// recvFunc reads whatever is available into buf, waiting at most until ctx
// ends.
type recvFunc func(ctx context.Context, buf []byte) (int, error)

// pump moves bytes from a blocking port into a transceiver model.
type pump struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// startPump starts a bounded reader goroutine feeding sink.
func startPump(ctx context.Context, recv recvFunc, sink func([]byte), bufSize int) *pump {
	if bufSize < 16 {
		bufSize = 16
	}
	cctx, cancel := context.WithCancel(ctx)
	p := &pump{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(p.done)
		buf := make([]byte, bufSize)
		for {
			select {
			case <-cctx.Done():
				return
			default:
			}
			// Bound the blocking wait to assist shutdown.
			rctx, rcancel := context.WithTimeout(cctx, 250*time.Millisecond)
			n, err := recv(rctx, buf)
			rcancel()
			if n > 0 {
				sink(buf[:n])
			}
			if err != nil && n == 0 {
				select {
				case <-cctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
				}
			}
		}
	}()
	return p
}

// stop cancels the reader and waits for it to exit.
func (p *pump) stop() {
	if p == nil {
		return
	}
	p.cancel()
	<-p.done
}
