package http11

import (
	"bufio"
	"net"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// ConnectionState is one of the three states spec.md §4.4 assigns a
// connection: Parsing while accumulating bytes toward a complete head,
// Handling while a Handler holds the Lease for the request it just
// parsed, Closed once the transfer has been shut down.
type ConnectionState int32

const (
	StateParsing ConnectionState = iota
	StateHandling
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateParsing:
		return "parsing"
	case StateHandling:
		return "handling"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectionConfig configures bookkeeping a Connection itself is
// responsible for. Idle/read/write timeouts are deliberately absent:
// spec.md's non-goals place the reactor, and therefore deadline
// enforcement, outside the core — see server.Server for where those
// live.
type ConnectionConfig struct {
	// MaxRequests caps the number of requests served on one connection
	// before it is forced to close (0 = unlimited).
	MaxRequests int
}

// DefaultConnectionConfig returns the zero-value configuration: unlimited
// requests per connection.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{MaxRequests: 0}
}

// Connection is the per-connection protocol engine of spec.md §4.4: a
// Parsing/Handling/Closed state machine entirely driven by OnData calls
// pushed in by an external reactor. It never reads from its net.Conn
// itself and never blocks.
type Connection struct {
	state    atomic.Int32
	lastUse  atomic.Int64
	requests atomic.Int32

	conn   net.Conn
	writer *bufio.Writer
	cell   *transferCell
	buf    *ParseBuffer

	adapter *handlerAdapter

	maxRequests int32
	remoteAddr  string
	logger      logrus.FieldLogger
}

// NewConnection wraps an accepted net.Conn, ready to receive OnData calls.
// handler is invoked once per request; logger may be nil.
func NewConnection(conn net.Conn, config ConnectionConfig, handler Handler, logger logrus.FieldLogger) *Connection {
	writer := GetBufioWriter(conn)

	c := &Connection{
		conn:        conn,
		writer:      writer,
		buf:         GetParseBuffer(),
		maxRequests: int32(config.MaxRequests),
		remoteAddr:  conn.RemoteAddr().String(),
		logger:      logger,
	}
	c.cell = newTransferCell(newTransfer(writer))
	c.adapter = &handlerAdapter{public: handler, logger: logger}
	c.state.Store(int32(StateParsing))
	c.lastUse.Store(time.Now().UnixNano())

	if hook, ok := handler.(ConnectionStartHook); ok {
		hook.OnConnectionStart(c.remoteAddr)
	}
	return c
}

// State returns the current connection state.
func (c *Connection) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

func (c *Connection) setState(s ConnectionState) {
	c.state.Store(int32(s))
	c.lastUse.Store(time.Now().UnixNano())
}

// OnData is the sole entry point the reactor drives: every byte slice
// read off the socket is pushed in here, in order, exactly once. It never
// blocks and never itself touches the network beyond what the buffered
// Transfer writer already queued.
func (c *Connection) OnData(data []byte) {
	if c.State() == StateClosed {
		return
	}

	// A Lease returned between on_data invocations is discovered here,
	// at the top of the next one (spec.md §4.4's "Transitions from
	// Handling" step 1); runParsing and runHandling also check right
	// after each Handler call.
	c.tryReclaim()

	switch c.State() {
	case StateParsing:
		c.runParsing(data)
	case StateHandling:
		c.runHandling(data)
	}
}

// tryReclaim is a non-blocking check for a released Lease. If one is
// found, the connection resumes Parsing immediately.
func (c *Connection) tryReclaim() bool {
	if _, ok := c.cell.claim(); ok {
		c.afterHandlingDone()
		return true
	}
	return false
}

// runParsing appends data to the parse buffer and extracts as many
// complete heads as it can. Each parsed head leases the Transfer and
// transitions to Handling; if the Handler completes synchronously
// (the common case for this package's synchronous Handler contract) the
// Lease is reclaimed immediately and parsing continues on whatever
// pipelined bytes remain. Otherwise any bytes past the head belong to
// that request's body and are handed to the Handling path.
func (c *Connection) runParsing(data []byte) {
	if len(data) > 0 {
		c.buf.Append(data)
	}

	for c.State() == StateParsing {
		head, consumed, err := ParseRequestHead(c.buf.Pending())
		if err != nil {
			c.fail(err)
			return
		}
		if head == nil {
			if c.buf.ExceedsBound() {
				c.failTooLarge()
			}
			return
		}
		c.buf.Advance(consumed)
		c.onHeadParsed(head)

		if c.tryReclaim() {
			continue
		}

		piggyback := c.buf.Pending()
		if len(piggyback) > 0 {
			tail := append([]byte(nil), piggyback...)
			c.buf.Advance(len(tail))
			c.runHandling(tail)
		}
		return
	}
}

// runHandling forwards data to the Handler's body accounting. If the
// Handler's Lease comes back — either because the body just completed or
// because it had already completed without consuming these bytes at all —
// any unconsumed tail is pipelined-request bytes and parsing resumes on
// it immediately.
func (c *Connection) runHandling(data []byte) {
	used := c.adapter.onBody(data)
	reclaimed := c.tryReclaim()

	if used < len(data) {
		c.buf.SetToTail(data[used:])
		c.setState(StateParsing)
		c.runParsing(nil)
		return
	}
	if reclaimed {
		c.runParsing(nil)
	}
}

// onHeadParsed leases the Transfer for a freshly parsed head, transitions
// to Handling, and invokes the Handler via the internal adapter contract
// (spec.md §4.4's "Transitions from Parsing" step 3).
func (c *Connection) onHeadParsed(head *Head) {
	lease, err := c.cell.lease()
	if err != nil {
		// The state machine guarantees Parsing never holds an
		// outstanding lease; reaching here is a programming error, not
		// a malformed request, but the connection has no better remedy
		// than closing.
		c.fail(newParseError(KindIO, err))
		return
	}
	c.setState(StateHandling)
	c.requests.Add(1)
	c.adapter.onIncoming(head, lease, c.remoteAddr)
}

// afterHandlingDone returns to Parsing once a response has ended,
// compacting the parse buffer and clearing per-request adapter state.
func (c *Connection) afterHandlingDone() {
	c.setState(StateParsing)
	c.buf.Compact()
	c.adapter.reset()

	if tr := c.cell.owned; tr != nil && tr.Closed() {
		c.setState(StateClosed)
		return
	}
	if c.maxRequests > 0 && c.requests.Load() >= c.maxRequests {
		c.closeTransfer()
	}
}

// fail writes the 4xx response statusForKind calls for, then closes the
// connection — spec.md §7's prescribed handling for a parse error, which
// can only happen while Parsing, before any Lease is ever issued.
func (c *Connection) fail(err error) {
	kind := KindHeader
	if pe, ok := err.(*ParseError); ok {
		kind = pe.Kind
	}
	c.writeErrorResponse(statusForKind(kind))
	c.closeTransfer()
	if c.logger != nil {
		c.logger.WithError(err).Warn("http11: closing connection after parse error")
	}
}

func (c *Connection) failTooLarge() {
	c.writeErrorResponse(statusForKind(KindTooLarge))
	c.closeTransfer()
}

// writeErrorResponse writes a minimal, body-less error response directly
// on the owned Transfer. Only reachable from Parsing, where the cell is
// guaranteed to still hold it.
func (c *Connection) writeErrorResponse(code int) {
	tr := c.cell.owned
	if tr == nil {
		return
	}
	writeStatusLine(tr, Version11, code)
	tr.Write(headerConnection)
	tr.Write(colonSpace)
	tr.Write(headerClose)
	tr.Write(crlfBytes)
	tr.Write(headerContentLength)
	tr.Write(colonSpace)
	tr.Write([]byte("0"))
	tr.Write(crlfBytes)
	tr.Write(crlfBytes)
	tr.Flush()
}

func (c *Connection) closeTransfer() {
	if tr := c.cell.owned; tr != nil {
		tr.Close()
	}
	c.setState(StateClosed)
}

// Close tears the connection down: closes the transfer, releases pooled
// resources, and fires the Handler's OnConnectionEnd hook if present.
// Safe to call more than once.
func (c *Connection) Close() error {
	if c.State() != StateClosed {
		c.closeTransfer()
	}
	if c.buf == nil {
		// An earlier Close already fired the hook and released resources.
		return nil
	}
	if c.adapter.public != nil {
		if hook, ok := c.adapter.public.(ConnectionEndHook); ok {
			hook.OnConnectionEnd(c.remoteAddr)
		}
	}
	c.adapter.reset()
	if c.buf != nil {
		PutParseBuffer(c.buf)
		c.buf = nil
	}
	if c.writer != nil {
		PutBufioWriter(c.writer)
		c.writer = nil
	}
	return c.conn.Close()
}

// RemoteAddr returns the connection's remote network address.
func (c *Connection) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// LocalAddr returns the connection's local network address.
func (c *Connection) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// RequestCount returns the number of requests handled on this connection.
func (c *Connection) RequestCount() int { return int(c.requests.Load()) }

// IdleTime reports how long the connection has sat in Parsing without
// activity; the reactor uses this to decide whether to enforce an idle
// timeout of its own, since the core does not track one itself.
func (c *Connection) IdleTime() time.Duration {
	if c.State() == StateHandling {
		return 0
	}
	return time.Since(time.Unix(0, c.lastUse.Load()))
}
