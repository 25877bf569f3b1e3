// Package connection implements the per-client socket adapter (spec.md
// §4.6): framed/compressed/encrypted packet I/O, a cloneable sender
// handle multiple goroutines can enqueue through, and the state tag
// gating which protocol-state decode table applies.
package connection

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/chunkymonkey/pkserver/cipher"
	"github.com/chunkymonkey/pkserver/frame"
	"github.com/chunkymonkey/pkserver/registry"
)

// ErrClosed is returned by Send once the connection has been closed.
var ErrClosed = errors.New("connection: closed")

// ErrMissingPacketID is returned when the injected registry.IDTable
// has no entry for a packet name this package needs to send — a
// registry misconfiguration, not a protocol violation by the peer.
var ErrMissingPacketID = errors.New("connection: registry has no id for packet name")

// sendQueueDepth bounds how many outbound packets may be buffered
// ahead of the writer goroutine before Send starts blocking the
// caller, matching spec.md §5's "packets ... delivered in enqueue
// order" guarantee without an unbounded queue.
const sendQueueDepth = 256

// Connection owns one accepted socket: its inbound byte stream, its
// current frame.Handler (swappable mid-connection once compression is
// negotiated), its optional cipher, and the protocol state tag that
// gates which decode table applies to incoming packets.
type Connection struct {
	conn   net.Conn
	table  registry.IDTable
	log    *logrus.Entry
	reader io.Reader
	writer io.Writer

	mu      sync.Mutex
	handler frame.Handler
	state   registry.State
	cipher  *cipher.Stream

	sendCh chan outboundItem
	done   chan struct{}
	once   sync.Once
}

// outboundItem pairs a queued packet with the frame.Handler that was
// active when it was enqueued (see Sender.Send's doc comment).
type outboundItem struct {
	pkt     frame.RawPacket
	handler frame.Handler
}

// New wraps an accepted net.Conn. The connection starts uncompressed,
// unencrypted, in the Handshake state, and its writer goroutine is
// started immediately so callers can Send before the handshake even
// completes (used by the status responder).
func New(conn net.Conn, table registry.IDTable, log *logrus.Logger) *Connection {
	entry := log.WithField("remote_addr", conn.RemoteAddr().String())
	c := &Connection{
		conn:    conn,
		table:   table,
		log:     entry,
		reader:  conn,
		writer:  conn,
		handler: frame.Uncompressed{},
		state:   registry.StateHandshake,
		sendCh:  make(chan outboundItem, sendQueueDepth),
		done:    make(chan struct{}),
	}
	go c.runSender()
	return c
}

// State reports the connection's current protocol state.
func (c *Connection) State() registry.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetState transitions the connection to a new protocol state.
func (c *Connection) SetState(s registry.State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// SetCompression swaps the active frame.Handler to the zlib-threshold
// scheme (spec.md §8 scenario b). Call this only after the
// Set Compression packet announcing the threshold has itself been
// sent uncompressed.
func (c *Connection) SetCompression(threshold, level int) {
	c.mu.Lock()
	c.handler = frame.NewZlib(threshold, level)
	c.mu.Unlock()
}

// EnableEncryption installs AES-128 CFB-8 on the connection's
// reader/writer pair using the shared secret negotiated by an
// out-of-scope key-exchange collaborator.
func (c *Connection) EnableEncryption(sharedSecret []byte) error {
	stream, err := cipher.New(sharedSecret)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.cipher = stream
	c.reader = cipher.NewReader(c.conn, stream)
	c.writer = cipher.NewWriter(c.conn, stream)
	c.mu.Unlock()
	return nil
}

// ReadPacket blocks until one full RawPacket has been read and
// unframed (and decompressed/decrypted as configured). It is called
// from the connection's dedicated reader goroutine only.
func (c *Connection) ReadPacket() (frame.RawPacket, error) {
	c.mu.Lock()
	handler := c.handler
	reader := c.reader
	c.mu.Unlock()
	return handler.ReadPacket(reader)
}

// Sender returns a cheaply cloneable handle other goroutines (the
// tick thread, broadcast layers) can enqueue outbound packets
// through, without touching Connection's reader-side state.
func (c *Connection) Sender() Sender {
	return Sender{ch: c.sendCh, done: c.done, snapshot: c.currentHandler}
}

// Send enqueues a packet for the writer goroutine, preserving
// enqueue-order delivery to this one connection.
func (c *Connection) Send(pkt frame.RawPacket) error {
	return c.Sender().Send(pkt)
}

func (c *Connection) currentHandler() frame.Handler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler
}

func (c *Connection) runSender() {
	for {
		select {
		case item, ok := <-c.sendCh:
			if !ok {
				return
			}
			handler := item.handler
			if handler == nil {
				handler = c.currentHandler()
			}
			c.mu.Lock()
			writer := c.writer
			c.mu.Unlock()
			if err := handler.WritePacket(writer, item.pkt); err != nil {
				c.log.WithError(err).Warn("write failed, closing connection")
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close closes the underlying socket and stops the writer goroutine.
// Safe to call multiple times and from multiple goroutines.
func (c *Connection) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// RemoteAddr exposes the peer address for logging.
func (c *Connection) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Log returns the connection's logging context.
func (c *Connection) Log() *logrus.Entry { return c.log }
