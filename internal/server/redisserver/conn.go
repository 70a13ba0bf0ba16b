package redisserver

import (
	"bufio"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// Connection buffer limits.
const (
	// MaxInputBuffer caps accumulated unframed input per connection.
	MaxInputBuffer = 4 << 20

	// ReadChunk is the size of a single socket read.
	ReadChunk = 8 << 10
)

// Keepalive parameters: drop a silent peer after idle + count*interval.
const (
	keepAliveIdle     = 60 * time.Second
	keepAliveInterval = 10 * time.Second
	keepAliveCount    = 3
)

// Conn is a single client connection. It owns the socket, the input
// buffer, and the buffered reply writer.
type Conn struct {
	netConn net.Conn
	bw      *bufio.Writer

	// id tags this connection in log output.
	id string

	buf    []byte
	closed atomic.Bool
}

func newConn(c net.Conn) *Conn {
	return &Conn{
		netConn: c,
		bw:      bufio.NewWriter(c),
		id:      ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		buf:     make([]byte, 0, ReadChunk),
	}
}

// configureSocket applies per-connection TCP options.
func (c *Conn) configureSocket() {
	tc, ok := c.netConn.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tc.SetNoDelay(true)
	_ = tc.SetKeepAliveConfig(net.KeepAliveConfig{
		Enable:   true,
		Idle:     keepAliveIdle,
		Interval: keepAliveInterval,
		Count:    keepAliveCount,
	})
}

// Close half-closes both directions, then closes the socket.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if tc, ok := c.netConn.(*net.TCPConn); ok {
		_ = tc.CloseRead()
		_ = tc.CloseWrite()
	}
	return c.netConn.Close()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// serveConn runs the per-connection loop: read, frame, dispatch,
// reply. A read that produces no complete frame is normal; the loop
// just reads more. Only framing-limit violations, buffer overflow,
// fatal socket errors, or server shutdown end the connection.
func (s *Server) serveConn(conn *Conn) {
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.ConnectionsActive.Inc()
		defer s.metrics.ConnectionsActive.Dec()
	}

	chunk := make([]byte, ReadChunk)
	for {
		if !s.running.Load() {
			return
		}

		if err := conn.netConn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			return
		}
		n, err := conn.netConn.Read(chunk)
		if n > 0 {
			conn.buf = append(conn.buf, chunk[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				// Transient: keepalive still drops dead peers, and a
				// shutdown in progress is noticed at the loop top.
				continue
			}
			s.log.Debug("connection read error", "client", conn.id, "error", err)
			return
		}

		if len(conn.buf) > MaxInputBuffer {
			_ = WriteError(conn.bw, "ERR payload too large")
			s.flush(conn)
			return
		}

		frames, consumed, err := Split(conn.buf)
		for _, frame := range frames {
			tokens := Parse(frame)
			if len(tokens) == 0 {
				_ = WriteError(conn.bw, "ERR protocol error: malformed frame")
				continue
			}
			s.handler.Handle(conn, tokens)
		}
		if len(frames) > 0 {
			if !s.flush(conn) {
				return
			}
		}

		// Keep only the unconsumed tail for the next read.
		if consumed > 0 {
			conn.buf = append(conn.buf[:0], conn.buf[consumed:]...)
		}

		if err != nil {
			if s.metrics != nil {
				s.metrics.ProtocolErrors.Inc()
			}
			s.log.Warn("protocol error", "client", conn.id, "error", err)
			_ = WriteError(conn.bw, "ERR protocol error: "+err.Error())
			s.flush(conn)
			return
		}
	}
}

// flush writes buffered replies in full. Reports whether the
// connection is still usable.
func (s *Server) flush(conn *Conn) bool {
	if err := conn.netConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return false
	}
	if err := conn.bw.Flush(); err != nil {
		s.log.Warn("connection write error", "client", conn.id, "error", err)
		return false
	}
	return true
}
