// Package server provides the reference reactor explicitly left out of
// the http11 core: an acceptor loop, a goroutine-per-connection read
// pump feeding Connection.OnData, socket tuning, and idle-timeout
// enforcement. None of this is part of the protocol engine itself —
// http11.Connection never touches a net.Conn beyond the Transfer it was
// built around.
package server

import (
	"net"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/watt-toolkit/shockwave/pkg/shockwave/http11"
	"github.com/watt-toolkit/shockwave/pkg/shockwave/socket"
)

// Config configures the reference reactor.
type Config struct {
	// Addr is the TCP address to listen on, e.g. ":8080".
	Addr string

	// Handler answers every request the server accepts.
	Handler http11.Handler

	// MaxRequestsPerConnection caps requests per keep-alive connection
	// (0 = unlimited), forwarded to http11.ConnectionConfig.
	MaxRequestsPerConnection int

	// IdleTimeout closes a connection when a read waits this long for
	// data, whatever the connection's state. Zero disables the check. Enforced here,
	// not in the core, per spec's placement of timeouts on the reactor.
	IdleTimeout time.Duration

	// SocketConfig tunes accepted connections (TCP_NODELAY, buffer
	// sizes, ...). Defaults to socket.DefaultConfig().
	SocketConfig *socket.Config

	// Logger receives connection lifecycle and error events. Defaults to
	// logrus.StandardLogger().
	Logger logrus.FieldLogger
}

// Server is the reference acceptor loop. It is reference material, not a
// hardened production listener: the http11 package is what a caller
// embeds in their own reactor (io_uring, epoll, or this one).
type Server struct {
	cfg Config
	ln  net.Listener

	connPool *connectionPool

	mu      sync.Mutex
	conns   map[*http11.Connection]struct{}
	closing bool
}

// connectionPool keeps idle readLoop wrappers for reuse in one buffered
// channel of up to GOMAXPROCS*4 entries; it is not sharded per CPU.
type connectionPool struct {
	idle chan *readLoop
}

func newConnectionPool() *connectionPool {
	return &connectionPool{idle: make(chan *readLoop, runtime.GOMAXPROCS(0)*4)}
}

func (p *connectionPool) get() *readLoop {
	select {
	case rl := <-p.idle:
		return rl
	default:
		return &readLoop{}
	}
}

func (p *connectionPool) put(rl *readLoop) {
	rl.reset()
	select {
	case p.idle <- rl:
	default:
	}
}

// readLoop owns the per-connection goroutine: it reads raw bytes off the
// socket and pushes them into Connection.OnData, which is the entirety
// of the reactor contract http11.Connection expects.
type readLoop struct {
	conn   net.Conn
	hc     *http11.Connection
	server *Server
}

func (rl *readLoop) reset() {
	rl.conn = nil
	rl.hc = nil
	rl.server = nil
}

func (rl *readLoop) run() {
	defer rl.server.forget(rl.hc)
	defer rl.hc.Close()
	defer rl.server.connPool.put(rl)

	buf := http11.GetReadBuffer()
	defer http11.PutReadBuffer(buf)

	for {
		if rl.server.cfg.IdleTimeout > 0 {
			rl.conn.SetReadDeadline(time.Now().Add(rl.server.cfg.IdleTimeout))
		}

		n, err := rl.conn.Read(buf)
		if n > 0 {
			rl.hc.OnData(buf[:n])
		}
		if err != nil {
			return
		}
		if rl.hc.State() == http11.StateClosed {
			return
		}
	}
}

// New constructs a Server from cfg. It does not start listening; call
// ListenAndServe for that.
func New(cfg Config) *Server {
	if cfg.SocketConfig == nil {
		cfg.SocketConfig = socket.DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Server{
		cfg:      cfg,
		connPool: newConnectionPool(),
		conns:    make(map[*http11.Connection]struct{}),
	}
}

// ListenAndServe binds cfg.Addr and accepts connections until Close is
// called or the listener errors.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	if err := socket.ApplyListener(ln, s.cfg.SocketConfig); err != nil {
		s.cfg.Logger.WithError(err).Warn("server: failed to apply listener socket tuning")
	}
	s.ln = ln

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing {
				return nil
			}
			return err
		}
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	if err := socket.Apply(conn, s.cfg.SocketConfig); err != nil {
		s.cfg.Logger.WithError(err).Debug("server: failed to apply connection socket tuning")
	}

	hc := http11.NewConnection(conn, http11.ConnectionConfig{
		MaxRequests: s.cfg.MaxRequestsPerConnection,
	}, s.cfg.Handler, s.cfg.Logger)

	s.mu.Lock()
	s.conns[hc] = struct{}{}
	s.mu.Unlock()

	rl := s.connPool.get()
	rl.conn = conn
	rl.hc = hc
	rl.server = s
	rl.run()
}

func (s *Server) forget(hc *http11.Connection) {
	s.mu.Lock()
	delete(s.conns, hc)
	s.mu.Unlock()
}

// Close stops accepting new connections and closes every connection
// currently being served.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closing = true
	conns := make([]*http11.Connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	for _, c := range conns {
		c.Close()
	}
	return err
}
