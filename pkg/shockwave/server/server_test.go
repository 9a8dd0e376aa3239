package server

import (
	"bufio"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/watt-toolkit/shockwave/pkg/shockwave/http11"
)

type echoHandler struct{}

func (echoHandler) Handle(req *http11.Request, resp *http11.FreshResponse) {
	resp.SetStatus(200)
	resp.Send([]byte(req.Method() + " " + req.Path()))
}

func startTestServer(t *testing.T, cfg Config) (*Server, string) {
	t.Helper()
	cfg.Addr = "127.0.0.1:0"
	if cfg.Handler == nil {
		cfg.Handler = echoHandler{}
	}
	srv := New(cfg)

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	srv.ln = ln

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.serveConn(conn)
		}
	}()

	t.Cleanup(func() { srv.Close() })
	return srv, ln.Addr().String()
}

func TestServerHandlesSingleRequest(t *testing.T) {
	_, addr := startTestServer(t, Config{})

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Write([]byte("GET /hello HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
}

func TestServerKeepAliveServesMultipleRequests(t *testing.T) {
	_, addr := startTestServer(t, Config{})

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	br := bufio.NewReader(conn)
	for i := 0; i < 3; i++ {
		if _, err := conn.Write([]byte("GET /a HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
			t.Fatalf("Write request %d: %v", i, err)
		}
		resp, err := http.ReadResponse(br, nil)
		if err != nil {
			t.Fatalf("ReadResponse %d: %v", i, err)
		}
		resp.Body.Close()
		if resp.StatusCode != 200 {
			t.Errorf("request %d: StatusCode = %d, want 200", i, resp.StatusCode)
		}
	}
}

func TestServerMaxRequestsPerConnectionClosesAfterLimit(t *testing.T) {
	_, addr := startTestServer(t, Config{MaxRequestsPerConnection: 1})

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	if _, err := conn.Write([]byte("GET /a HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	resp.Body.Close()

	buf := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Read(buf); err == nil {
		t.Error("expected connection close after hitting MaxRequestsPerConnection, got more data")
	}
}

func TestServerCloseStopsAcceptingAndClosesConns(t *testing.T) {
	srv, addr := startTestServer(t, Config{})

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := srv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := net.Dial("tcp", addr); err == nil {
		t.Error("expected dial to fail after server Close")
	}
}
