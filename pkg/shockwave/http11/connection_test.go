package http11

import (
	"bytes"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

// echoHandler replies 200 with a body naming the method and path, so
// tests can tell which request produced which response.
type echoHandler struct{}

func (echoHandler) Handle(req *Request, resp *FreshResponse) {
	resp.SetStatus(200)
	resp.Send([]byte(req.Method() + " " + req.Path()))
}

// drainConn reads everything written to conn until it is closed or the
// deadline passes, handing the collected bytes back over ch.
func drainConn(t *testing.T, conn net.Conn, ch chan<- []byte) {
	t.Helper()
	var buf bytes.Buffer
	io.Copy(&buf, conn)
	ch <- buf.Bytes()
}

func newTestConnection(t *testing.T, handler Handler, cfg ConnectionConfig) (*Connection, net.Conn, chan []byte) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { server.Close(); client.Close() })

	ch := make(chan []byte, 1)
	go drainConn(t, client, ch)

	hc := NewConnection(server, cfg, handler, nil)
	return hc, client, ch
}

func TestConnectionSimpleRequestResponse(t *testing.T) {
	hc, _, ch := newTestConnection(t, echoHandler{}, DefaultConnectionConfig())

	req := []byte("GET /hello HTTP/1.1\r\nHost: example.com\r\n\r\n")
	hc.OnData(req)
	hc.Close()

	out := <-ch
	if !bytes.Contains(out, []byte("HTTP/1.1 200")) {
		t.Errorf("response missing status line: %q", out)
	}
	if !bytes.Contains(out, []byte("GET /hello")) {
		t.Errorf("response missing echoed body: %q", out)
	}
	if !bytes.Contains(out, []byte("Content-Length:")) {
		t.Errorf("response missing Content-Length framing: %q", out)
	}
	if !bytes.Contains(out, []byte("Date:")) {
		t.Errorf("response missing injected Date header: %q", out)
	}
}

func TestConnectionReturnsToParsingAfterResponse(t *testing.T) {
	hc, _, _ := newTestConnection(t, echoHandler{}, DefaultConnectionConfig())
	defer hc.Close()

	hc.OnData([]byte("GET /a HTTP/1.1\r\n\r\n"))
	if hc.State() != StateParsing {
		t.Fatalf("State() = %v, want StateParsing after a synchronously-completed handler", hc.State())
	}
	if hc.RequestCount() != 1 {
		t.Errorf("RequestCount() = %d, want 1", hc.RequestCount())
	}
}

func TestConnectionPipelinedRequestsInOneOnData(t *testing.T) {
	hc, _, ch := newTestConnection(t, echoHandler{}, DefaultConnectionConfig())

	both := []byte("GET /a HTTP/1.1\r\n\r\n" + "GET /b HTTP/1.1\r\n\r\n")
	hc.OnData(both)
	hc.Close()

	out := <-ch
	if !bytes.Contains(out, []byte("GET /a")) {
		t.Errorf("response missing first pipelined request's body: %q", out)
	}
	if !bytes.Contains(out, []byte("GET /b")) {
		t.Errorf("response missing second pipelined request's body: %q", out)
	}
	if hc.RequestCount() != 2 {
		t.Errorf("RequestCount() = %d, want 2", hc.RequestCount())
	}
}

func TestConnectionRequestHeadSplitAcrossOnDataCalls(t *testing.T) {
	hc, _, ch := newTestConnection(t, echoHandler{}, DefaultConnectionConfig())

	full := "GET /split HTTP/1.1\r\nHost: example.com\r\n\r\n"
	mid := len(full) / 2
	hc.OnData([]byte(full[:mid]))
	if hc.State() != StateParsing {
		t.Fatalf("State() = %v, want StateParsing while still awaiting the rest of the head", hc.State())
	}
	hc.OnData([]byte(full[mid:]))
	hc.Close()

	out := <-ch
	if !bytes.Contains(out, []byte("GET /split")) {
		t.Errorf("response missing echoed body: %q", out)
	}
}

func TestConnectionRequestWithSizedBody(t *testing.T) {
	hc, _, ch := newTestConnection(t, echoHandler{}, DefaultConnectionConfig())

	req := "POST /submit HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"
	hc.OnData([]byte(req))
	hc.Close()

	out := <-ch
	if !bytes.Contains(out, []byte("POST /submit")) {
		t.Errorf("response missing echoed body: %q", out)
	}
	if hc.RequestCount() != 1 {
		t.Errorf("RequestCount() = %d, want 1", hc.RequestCount())
	}
}

func TestConnectionSizedBodySplitAcrossOnDataThenPipelinedNext(t *testing.T) {
	hc, _, ch := newTestConnection(t, echoHandler{}, DefaultConnectionConfig())

	head := "POST /submit HTTP/1.1\r\nContent-Length: 5\r\n\r\n"
	hc.OnData([]byte(head))
	if hc.State() != StateHandling {
		t.Fatalf("State() = %v, want StateHandling while awaiting body bytes", hc.State())
	}

	hc.OnData([]byte("hel"))
	if hc.State() != StateHandling {
		t.Fatalf("State() = %v, want StateHandling: only 3 of 5 body bytes arrived", hc.State())
	}

	hc.OnData([]byte("lo" + "GET /next HTTP/1.1\r\n\r\n"))
	hc.Close()

	out := <-ch
	if !bytes.Contains(out, []byte("POST /submit")) {
		t.Errorf("first response missing: %q", out)
	}
	if !bytes.Contains(out, []byte("GET /next")) {
		t.Errorf("pipelined-after-body response missing: %q", out)
	}
	if hc.RequestCount() != 2 {
		t.Errorf("RequestCount() = %d, want 2", hc.RequestCount())
	}
}

func TestConnectionMaxRequestsClosesConnection(t *testing.T) {
	hc, _, ch := newTestConnection(t, echoHandler{}, ConnectionConfig{MaxRequests: 1})

	hc.OnData([]byte("GET /a HTTP/1.1\r\n\r\n"))
	if hc.State() != StateClosed {
		t.Fatalf("State() = %v, want StateClosed after hitting MaxRequests", hc.State())
	}
	hc.Close()

	out := <-ch
	if !bytes.Contains(out, []byte("GET /a")) {
		t.Errorf("response missing: %q", out)
	}
}

func TestConnectionMalformedRequestLineClosesWith400(t *testing.T) {
	hc, _, ch := newTestConnection(t, echoHandler{}, DefaultConnectionConfig())

	hc.OnData([]byte("NOT A REQUEST\r\n\r\n"))
	if hc.State() != StateClosed {
		t.Fatalf("State() = %v, want StateClosed after a parse error", hc.State())
	}
	hc.Close()

	out := <-ch
	if !bytes.Contains(out, []byte("HTTP/1.1 400")) {
		t.Errorf("response missing 400 status line: %q", out)
	}
}

func TestConnectionOversizedHeadReturns413AndCloses(t *testing.T) {
	hc, _, ch := newTestConnection(t, echoHandler{}, DefaultConnectionConfig())

	// One header line repeated until the parse buffer exceeds
	// ParseBufferMaxSize (8192 + 4096*100) without ever completing the
	// head's terminating blank line, so the parser keeps asking for more
	// instead of ever seeing a malformed head.
	line := "X-Pad: " + strings.Repeat("a", 100) + "\r\n"
	var head strings.Builder
	head.WriteString("GET / HTTP/1.1\r\n")
	for head.Len() <= ParseBufferMaxSize {
		head.WriteString(line)
	}

	hc.OnData([]byte(head.String()))
	if hc.State() != StateClosed {
		t.Fatalf("State() = %v, want StateClosed after exceeding the parse buffer bound", hc.State())
	}
	hc.Close()

	out := <-ch
	if !bytes.Contains(out, []byte("HTTP/1.1 413")) {
		t.Errorf("response missing 413 status line: %q", out)
	}
}

func TestConnectionConnectionCloseHeaderClosesAfterResponse(t *testing.T) {
	hc, _, ch := newTestConnection(t, echoHandler{}, DefaultConnectionConfig())

	hc.OnData([]byte("GET /bye HTTP/1.1\r\nConnection: close\r\n\r\n"))
	if hc.State() != StateClosed {
		t.Fatalf("State() = %v, want StateClosed: the response set Connection: close", hc.State())
	}
	hc.Close()

	select {
	case out := <-ch:
		if !bytes.Contains(out, []byte("Connection: close")) {
			t.Errorf("response missing Connection: close: %q", out)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connection to close after Connection: close request")
	}
}
