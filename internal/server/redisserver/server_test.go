package redisserver

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/kvmesh-go/internal/storage/memory"
	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
)

// startTestServer starts a server on an ephemeral port and returns a
// dial function.
func startTestServer(t *testing.T) func() net.Conn {
	t.Helper()

	store := memory.New()
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	srv := New(&Config{Addr: "127.0.0.1:0", Workers: 4}, store, log, nil)

	if err := srv.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	})

	addr := srv.Addr().String()
	return func() net.Conn {
		c, err := net.Dial("tcp", addr)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		t.Cleanup(func() { c.Close() })
		return c
	}
}

func send(t *testing.T, c net.Conn, req string) {
	t.Helper()
	if _, err := c.Write([]byte(req)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readReply consumes exactly one RESP reply.
func readReply(t *testing.T, br *bufio.Reader) string {
	t.Helper()

	line, err := br.ReadString('\n')
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}

	switch line[0] {
	case '+', '-', ':':
		return line
	case '$':
		n := parseReplyLen(line)
		if n < 0 {
			return line
		}
		payload := make([]byte, n+2)
		if _, err := io.ReadFull(br, payload); err != nil {
			t.Fatalf("bulk payload: %v", err)
		}
		return line + string(payload)
	case '*':
		out := line
		for i := 0; i < parseReplyLen(line); i++ {
			out += readReply(t, br)
		}
		return out
	default:
		t.Fatalf("unexpected reply line %q", line)
		return ""
	}
}

// parseReplyLen reads the integer in a "$<n>\r\n" or "*<n>\r\n" line.
func parseReplyLen(line string) int {
	v, sign := 0, 1
	i := 1
	if i < len(line) && line[i] == '-' {
		sign = -1
		i++
	}
	for ; i < len(line) && line[i] != '\r'; i++ {
		v = v*10 + int(line[i]-'0')
	}
	return sign * v
}

func TestServer_PingScenario(t *testing.T) {
	dial := startTestServer(t)
	c := dial()
	br := bufio.NewReader(c)

	send(t, c, "*1\r\n$4\r\nPING\r\n")
	if got := readReply(t, br); got != "+PONG\r\n" {
		t.Errorf("PING = %q", got)
	}
}

func TestServer_SetGetScenario(t *testing.T) {
	dial := startTestServer(t)
	c := dial()
	br := bufio.NewReader(c)

	send(t, c, "*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n")
	if got := readReply(t, br); got != "+OK\r\n" {
		t.Errorf("SET = %q", got)
	}
	send(t, c, "*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n")
	if got := readReply(t, br); got != "$3\r\nbar\r\n" {
		t.Errorf("GET = %q", got)
	}
}

func TestServer_ExpiryScenario(t *testing.T) {
	dial := startTestServer(t)
	c := dial()
	br := bufio.NewReader(c)

	send(t, c, "*5\r\n$3\r\nSET\r\n$1\r\nx\r\n$1\r\n1\r\n$2\r\nEX\r\n$1\r\n1\r\n")
	if got := readReply(t, br); got != "+OK\r\n" {
		t.Errorf("SET EX = %q", got)
	}

	time.Sleep(1100 * time.Millisecond)

	send(t, c, "*2\r\n$3\r\nGET\r\n$1\r\nx\r\n")
	if got := readReply(t, br); got != "$-1\r\n" {
		t.Errorf("GET after expiry = %q", got)
	}
}

func TestServer_ListScenario(t *testing.T) {
	dial := startTestServer(t)
	c := dial()
	br := bufio.NewReader(c)

	steps := []struct {
		req  string
		want string
	}{
		{"*3\r\n$5\r\nLPUSH\r\n$6\r\nmylist\r\n$1\r\na\r\n", ":1\r\n"},
		{"*3\r\n$5\r\nLPUSH\r\n$6\r\nmylist\r\n$1\r\nb\r\n", ":2\r\n"},
		{"*3\r\n$5\r\nRPUSH\r\n$6\r\nmylist\r\n$1\r\nc\r\n", ":3\r\n"},
		{"*4\r\n$6\r\nLRANGE\r\n$6\r\nmylist\r\n$1\r\n0\r\n$2\r\n-1\r\n",
			"*3\r\n$1\r\nb\r\n$1\r\na\r\n$1\r\nc\r\n"},
	}
	for _, step := range steps {
		send(t, c, step.req)
		if got := readReply(t, br); got != step.want {
			t.Errorf("req %q → %q, want %q", step.req, got, step.want)
		}
	}
}

func TestServer_HashScenario(t *testing.T) {
	dial := startTestServer(t)
	c := dial()
	br := bufio.NewReader(c)

	send(t, c, "*4\r\n$4\r\nHSET\r\n$1\r\nh\r\n$1\r\nf\r\n$1\r\nv\r\n")
	if got := readReply(t, br); got != ":1\r\n" {
		t.Errorf("HSET = %q", got)
	}
	send(t, c, "*2\r\n$7\r\nHGETALL\r\n$1\r\nh\r\n")
	if got := readReply(t, br); got != "*2\r\n$1\r\nf\r\n$1\r\nv\r\n" {
		t.Errorf("HGETALL = %q", got)
	}
}

// TestServer_Pipelining sends three PING frames in one write and
// expects three replies in order.
func TestServer_Pipelining(t *testing.T) {
	dial := startTestServer(t)
	c := dial()
	br := bufio.NewReader(c)

	send(t, c, strings.Repeat("*1\r\n$4\r\nPING\r\n", 3))
	for i := 0; i < 3; i++ {
		if got := readReply(t, br); got != "+PONG\r\n" {
			t.Fatalf("reply %d = %q", i, got)
		}
	}
}

// TestServer_FragmentedRequest dribbles one frame across several
// writes; the server must wait for the full frame.
func TestServer_FragmentedRequest(t *testing.T) {
	dial := startTestServer(t)
	c := dial()
	br := bufio.NewReader(c)

	for _, part := range []string{"*3\r\n$3\r\nSET", "\r\n$3\r\nfoo\r\n$3\r", "\nbar\r\n"} {
		send(t, c, part)
		time.Sleep(20 * time.Millisecond)
	}
	if got := readReply(t, br); got != "+OK\r\n" {
		t.Errorf("fragmented SET = %q", got)
	}
}

func TestServer_InlineCommand(t *testing.T) {
	dial := startTestServer(t)
	c := dial()
	br := bufio.NewReader(c)

	send(t, c, "PING\r\n")
	if got := readReply(t, br); got != "+PONG\r\n" {
		t.Errorf("inline PING = %q", got)
	}
}

// TestServer_ReplyOrderAcrossCommands interleaves different commands
// in one pipelined write and checks reply order.
func TestServer_ReplyOrderAcrossCommands(t *testing.T) {
	dial := startTestServer(t)
	c := dial()
	br := bufio.NewReader(c)

	send(t, c,
		"*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n"+
			"*1\r\n$4\r\nPING\r\n"+
			"*2\r\n$3\r\nGET\r\n$1\r\nk\r\n")

	want := []string{"+OK\r\n", "+PONG\r\n", "$1\r\nv\r\n"}
	for i, w := range want {
		if got := readReply(t, br); got != w {
			t.Fatalf("reply %d = %q, want %q", i, got, w)
		}
	}
}

func TestServer_ProtocolLimitClosesConnection(t *testing.T) {
	dial := startTestServer(t)
	c := dial()
	br := bufio.NewReader(c)

	send(t, c, "*1000001\r\n")
	reply, err := br.ReadString('\n')
	if err != nil {
		t.Fatalf("expected error reply before close, got %v", err)
	}
	if !strings.HasPrefix(reply, "-ERR protocol error") {
		t.Errorf("reply = %q", reply)
	}

	// The server closes the connection after a limit violation.
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := br.ReadByte(); err != io.EOF {
		t.Errorf("expected EOF after protocol error, got %v", err)
	}
}

func TestServer_ConcurrentClients(t *testing.T) {
	dial := startTestServer(t)

	addr := dialAddr(t, dial)

	const clients = 8
	errCh := make(chan error, clients)

	for i := 0; i < clients; i++ {
		go func(id int) {
			c, err := net.Dial("tcp", addr)
			if err != nil {
				errCh <- err
				return
			}
			defer c.Close()
			br := bufio.NewReader(c)

			for j := 0; j < 50; j++ {
				if _, err := c.Write([]byte("*1\r\n$4\r\nPING\r\n")); err != nil {
					errCh <- err
					return
				}
				line, err := br.ReadString('\n')
				if err != nil || line != "+PONG\r\n" {
					errCh <- err
					return
				}
			}
			errCh <- nil
		}(i)
	}

	for i := 0; i < clients; i++ {
		if err := <-errCh; err != nil {
			t.Fatalf("client error: %v", err)
		}
	}
}

// dialAddr extracts the server address from an existing dialer by
// opening a throwaway connection.
func dialAddr(t *testing.T, dial func() net.Conn) string {
	t.Helper()
	c := dial()
	addr := c.RemoteAddr().String()
	c.Close()
	return addr
}
