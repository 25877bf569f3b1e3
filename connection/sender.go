package connection

import (
	"github.com/chunkymonkey/pkserver/frame"
)

// Sender is the cheaply cloneable outbound handle spec.md §5 calls
// for: "every connection exposes a... sender handle... multiple
// threads may enqueue; a single writer thread per connection drains
// and writes." It carries only the send queue, the close signal and a
// way to snapshot the connection's current frame.Handler, so copying
// it is free and safe to hand to the level/tablist/entity broadcast
// layers.
type Sender struct {
	ch       chan<- outboundItem
	done     <-chan struct{}
	snapshot func() frame.Handler
}

// Send enqueues pkt for delivery, returning ErrClosed instead of
// blocking forever if the connection has already closed. The
// connection's frame.Handler is captured now, at enqueue time, rather
// than re-read when the writer goroutine eventually dequeues pkt: a
// SetCompression call racing with an in-flight Send must never cause
// an already-queued packet (notably Set Compression itself) to be
// written with the handler that call is installing.
func (s Sender) Send(pkt frame.RawPacket) error {
	item := outboundItem{pkt: pkt}
	if s.snapshot != nil {
		item.handler = s.snapshot()
	}
	select {
	case s.ch <- item:
		return nil
	case <-s.done:
		return ErrClosed
	}
}
