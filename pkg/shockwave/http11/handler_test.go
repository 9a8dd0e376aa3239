package http11

import (
	"bytes"
	"net"
	"testing"
)

type rejectingContinueHandler struct {
	code int
}

func (h rejectingContinueHandler) Handle(req *Request, resp *FreshResponse) {
	resp.Send([]byte("should never run"))
}

func (h rejectingContinueHandler) CheckContinue(method, path string, headers *Header) int {
	return h.code
}

type headAwareHandler struct{}

func (headAwareHandler) Handle(req *Request, resp *FreshResponse) {
	resp.SetStatus(200)
	resp.Send([]byte("full body a GET would carry"))
}

func TestExpectContinueDefaultAnswers100(t *testing.T) {
	hc, _, ch := newTestConnection(t, echoHandler{}, DefaultConnectionConfig())

	req := "POST /upload HTTP/1.1\r\nContent-Length: 5\r\nExpect: 100-continue\r\n\r\n"
	hc.OnData([]byte(req))
	hc.OnData([]byte("hello"))
	hc.Close()

	out := <-ch
	if !bytes.Contains(out, []byte("HTTP/1.1 100 Continue")) {
		t.Errorf("response missing 100 Continue interim: %q", out)
	}
	if !bytes.Contains(out, []byte("POST /upload")) {
		t.Errorf("response missing final handler response: %q", out)
	}
}

func TestExpectContinueCustomCheckerRejects(t *testing.T) {
	hc, _, ch := newTestConnection(t, rejectingContinueHandler{code: 417}, DefaultConnectionConfig())

	req := "POST /upload HTTP/1.1\r\nContent-Length: 5\r\nExpect: 100-continue\r\n\r\n"
	hc.OnData([]byte(req))
	hc.Close()

	out := <-ch
	if !bytes.Contains(out, []byte("HTTP/1.1 417")) {
		t.Errorf("response missing rejected status: %q", out)
	}
	if bytes.Contains(out, []byte("should never run")) {
		t.Errorf("handler ran despite a rejected Expect: 100-continue negotiation: %q", out)
	}
}

func TestHEADResponseOmitsBody(t *testing.T) {
	hc, _, ch := newTestConnection(t, headAwareHandler{}, DefaultConnectionConfig())

	hc.OnData([]byte("HEAD /resource HTTP/1.1\r\n\r\n"))
	hc.Close()

	out := <-ch
	if !bytes.Contains(out, []byte("HTTP/1.1 200")) {
		t.Errorf("response missing status line: %q", out)
	}
	if bytes.Contains(out, []byte("full body a GET would carry")) {
		t.Errorf("HEAD response leaked a body: %q", out)
	}
}

type connectionLifecycleHandler struct {
	started []string
	ended   []string
}

func (h *connectionLifecycleHandler) Handle(req *Request, resp *FreshResponse) {
	resp.Send(nil)
}

func (h *connectionLifecycleHandler) OnConnectionStart(remoteAddr string) {
	h.started = append(h.started, remoteAddr)
}

func (h *connectionLifecycleHandler) OnConnectionEnd(remoteAddr string) {
	h.ended = append(h.ended, remoteAddr)
}

func TestConnectionLifecycleHooksFire(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	ch := make(chan []byte, 1)
	go drainConn(t, client, ch)

	h := &connectionLifecycleHandler{}
	hc := NewConnection(server, DefaultConnectionConfig(), h, nil)
	if len(h.started) != 1 {
		t.Fatalf("OnConnectionStart called %d times, want 1", len(h.started))
	}

	hc.OnData([]byte("GET / HTTP/1.1\r\n\r\n"))
	hc.Close()
	<-ch

	if len(h.ended) != 1 {
		t.Errorf("OnConnectionEnd called %d times, want 1", len(h.ended))
	}
}
