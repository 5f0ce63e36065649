package wsgate

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

const (
	sendBufferSize = 16
	ctrlBufferSize = 8

	// How long Close waits for the peer's close reply before dropping the
	// TCP connection anyway.
	closeTimeout = 5 * time.Second
)

// Conn is an established WebSocket connection. Two background goroutines own
// the socket: a read loop that decodes frames, answers pings, and reassembles
// messages, and a write loop that serializes all outgoing frames. Send and
// Receive only exchange messages with them over channels, so both are safe
// for concurrent use.
type Conn struct {
	nc   net.Conn
	br   *bufio.Reader
	bw   *bufio.Writer
	role role

	sendCh chan Message // application messages, fragmented by the write loop
	ctrlCh chan frame   // control frames, written as-is
	recvCh chan Message

	ctx    context.Context
	cancel context.CancelFunc

	closeSent  atomic.Bool
	closeRecvd atomic.Bool
	closeOnce  sync.Once
}

// newConn wires up a Conn over an already-upgraded connection and starts the
// background loops. br may hold bytes buffered during the handshake.
func newConn(nc net.Conn, br *bufio.Reader, bw *bufio.Writer, r role) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		nc:     nc,
		br:     br,
		bw:     bw,
		role:   r,
		sendCh: make(chan Message, sendBufferSize),
		ctrlCh: make(chan frame, ctrlBufferSize),
		recvCh: make(chan Message, sendBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
	go c.readLoop()
	go c.writeLoop()
	return c
}

// Send enqueues a message for transmission. It blocks while the outgoing
// buffer is full and returns ErrConnectionClosed once the connection is done.
// Enqueueing does not guarantee delivery; a connection failing mid-write
// surfaces on the next call.
func (c *Conn) Send(ctx context.Context, m Message) error {
	select {
	case c.sendCh <- m:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive returns the next complete message from the peer.
func (c *Conn) Receive(ctx context.Context) (Message, error) {
	select {
	case m, ok := <-c.recvCh:
		if !ok {
			return Message{}, ErrConnectionClosed
		}
		return m, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Close starts the closing handshake with a normal-closure status and waits
// (bounded) for the peer's reply before releasing the TCP connection.
// Safe to call on an already-closed connection.
func (c *Conn) Close() error {
	select {
	case c.ctrlCh <- frame{fin: true, op: opClose, payload: closePayload(StatusNormalClosure, "")}:
	case <-c.ctx.Done():
		return nil
	}

	select {
	case <-c.ctx.Done():
	case <-time.After(closeTimeout):
		c.teardown()
	}
	return nil
}

// teardown releases the socket and wakes up every blocked caller. Idempotent.
func (c *Conn) teardown() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.nc.Close()
	})
}

// control hands a frame to the write loop, giving up when the connection
// dies first.
func (c *Conn) control(f frame) {
	select {
	case c.ctrlCh <- f:
	case <-c.ctx.Done():
	}
}

// fail reacts to a broken inbound stream. Protocol violations get a close
// frame with the matching status code; plain I/O errors just tear down.
func (c *Conn) fail(err error) {
	var ferr *InvalidFrame
	if errors.As(err, &ferr) && !c.closeSent.Load() {
		// The peer misbehaved; don't wait for its close reply.
		c.closeRecvd.Store(true)
		c.control(frame{fin: true, op: opClose, payload: closePayload(ferr.CloseCode, "")})
		return
	}
	c.teardown()
}

// ---------------------------------------------------------------------------
// Read side
// ---------------------------------------------------------------------------

// readLoop decodes frames until the stream ends: control frames are handled
// inline, data frames are reassembled into messages and delivered to recvCh.
func (c *Conn) readLoop() {
	defer close(c.recvCh)

	var (
		assembling bool
		msgType    MessageType
		buf        []byte
	)

	for {
		f, err := readFrame(c.br, c.role)
		if err != nil {
			c.fail(err)
			return
		}

		switch f.op {
		case opPing:
			c.control(frame{fin: true, op: opPong, payload: f.payload})

		case opPong:
			// Unsolicited pongs are allowed and ignored.

		case opClose:
			c.closeRecvd.Store(true)
			if _, _, perr := parseClosePayload(f.payload); perr != nil {
				c.fail(perr)
				return
			}
			if c.closeSent.Load() {
				// Reply to our own close frame; the handshake is complete.
				c.teardown()
				return
			}
			echo := f.payload
			if len(echo) > 2 {
				echo = echo[:2] // echo the status, drop the reason
			}
			c.control(frame{fin: true, op: opClose, payload: echo})
			return

		case opText, opBinary:
			if assembling {
				c.fail(errInconsistent("data frame inside a fragmented message"))
				return
			}
			msgType = TextMessage
			if f.op == opBinary {
				msgType = BinaryMessage
			}
			if f.fin {
				if !c.deliver(msgType, f.payload) {
					return
				}
			} else {
				assembling = true
				buf = append([]byte(nil), f.payload...)
			}

		case opContinuation:
			if !assembling {
				c.fail(errInconsistent("continuation without a started message"))
				return
			}
			if uint64(len(buf))+uint64(len(f.payload)) > uint64(maxMessageSize) {
				c.fail(errTooBig(uint64(len(buf)) + uint64(len(f.payload))))
				return
			}
			buf = append(buf, f.payload...)
			if f.fin {
				if !c.deliver(msgType, buf) {
					return
				}
				assembling = false
				buf = nil
			}
		}
	}
}

// deliver validates and hands a reassembled message to Receive. Returns
// false when the read loop should stop.
func (c *Conn) deliver(t MessageType, payload []byte) bool {
	if t == TextMessage && !utf8.Valid(payload) {
		c.fail(errBadUTF8())
		return false
	}
	select {
	case c.recvCh <- Message{Type: t, Payload: payload}:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// ---------------------------------------------------------------------------
// Write side
// ---------------------------------------------------------------------------

// writeLoop is the single writer on the socket. It exits after writing a
// close frame; anything still queued behind it is dropped.
func (c *Conn) writeLoop() {
	for {
		select {
		case f := <-c.ctrlCh:
			if err := writeFrame(c.bw, c.role, f); err != nil {
				c.teardown()
				return
			}
			if f.op == opClose {
				c.closeSent.Store(true)
				if c.closeRecvd.Load() {
					c.teardown()
				}
				return
			}

		case m := <-c.sendCh:
			if err := writeDataMessage(c.bw, c.role, m); err != nil {
				c.teardown()
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// writeDataMessage fragments a message into frames no larger than the frame
// payload limit and writes them in order.
func writeDataMessage(bw *bufio.Writer, r role, m Message) error {
	op := opText
	if m.Type == BinaryMessage {
		op = opBinary
	}

	payload := m.Payload
	for first := true; ; first = false {
		chunk := payload
		if len(chunk) > maxFramePayloadSize {
			chunk = chunk[:maxFramePayloadSize]
		}
		payload = payload[len(chunk):]

		f := frame{fin: len(payload) == 0, op: op, payload: chunk}
		if !first {
			f.op = opContinuation
		}
		if err := writeFrame(bw, r, f); err != nil {
			return err
		}
		if f.fin {
			return nil
		}
	}
}
