package http11

import "bufio"

// Transfer is the opaque handle on a connection's underlying byte-oriented
// transport (spec.md §3, "Transfer Handle"). Write appends bytes to the
// buffered writer; they reach the socket when that buffer fills or on
// Flush, which the body writers call when a response is finalized and
// which Close and the connection's error responses also trigger.
//
// Exactly one Transfer exists per live connection; access to it is
// mediated by the Lease so the connection and a handler never touch it
// at once.
type Transfer struct {
	w      *bufio.Writer
	err    error
	closed bool
}

func newTransfer(w *bufio.Writer) *Transfer {
	return &Transfer{w: w}
}

// Write enqueues p for transmission. Once a write has failed, every
// subsequent Write is a silent no-op; the failure surfaces through Err or
// the next explicit Flush (spec.md §7: Io errors are never surfaced to the
// handler mid-stream).
func (t *Transfer) Write(p []byte) {
	if t.closed || t.err != nil || len(p) == 0 {
		return
	}
	if _, err := t.w.Write(p); err != nil {
		t.err = err
	}
}

// Flush drains the buffered writer to the socket.
func (t *Transfer) Flush() error {
	if t.err != nil {
		return t.err
	}
	if t.closed {
		return nil
	}
	return t.w.Flush()
}

// Err returns the first write error observed, if any.
func (t *Transfer) Err() error {
	return t.err
}

// Close half-closes the Transfer after pending writes drain. The
// connection is responsible for actually closing the socket; Close here
// only marks the Transfer so further writes are ignored.
func (t *Transfer) Close() error {
	if t.closed {
		return nil
	}
	flushErr := t.Flush()
	t.closed = true
	return flushErr
}

// Closed reports whether Close has been called.
func (t *Transfer) Closed() bool {
	return t.closed
}

// transferCell holds the single Transfer a connection owns, implementing
// the Lend{Owned|Lent} state spec.md's Design Notes describe: Owned
// directly holds the Transfer; Lent installs a one-shot return channel in
// its place. Only the owning connection's goroutine touches a
// transferCell, so it needs no locking despite the channel.
type transferCell struct {
	owned   *Transfer
	pending chan *Transfer
}

func newTransferCell(tr *Transfer) *transferCell {
	return &transferCell{owned: tr}
}

// lease atomically moves the Transfer out of the cell into a Lease,
// installing a one-shot return channel in its place. Calling lease again
// before the outstanding Lease is released is a programming error.
func (c *transferCell) lease() (*Lease, error) {
	if c.pending != nil {
		return nil, ErrLeaseAlreadyOutstanding
	}
	tr := c.owned
	c.owned = nil
	ch := make(chan *Transfer, 1)
	c.pending = ch
	return &Lease{transfer: tr, returnCh: ch}, nil
}

// claim is a non-blocking inspection of the return channel. If the
// outstanding Lease has been released, it reclaims ownership of the
// Transfer and returns it; otherwise it returns (nil, false).
func (c *transferCell) claim() (*Transfer, bool) {
	if c.pending == nil {
		return nil, false
	}
	select {
	case tr := <-c.pending:
		c.owned = tr
		c.pending = nil
		return tr, true
	default:
		return nil, false
	}
}

// outstanding reports whether a Lease is currently lent out.
func (c *transferCell) outstanding() bool {
	return c.pending != nil
}

// Lease is a single-holder borrow of a Transfer, handed from the
// connection to a handler for the duration of one response (spec.md §4.3).
// Release is called by StreamingResponse.Finalize (or by the 100-continue
// rejection path in handler.go) once the response is done; it is what lets
// the connection discover the response has ended and resume Parsing (see
// Connection.OnData).
type Lease struct {
	transfer *Transfer
	returnCh chan *Transfer
	released bool
}

// Transfer returns the leased Transfer for writing.
func (l *Lease) Transfer() *Transfer {
	return l.transfer
}

// Release returns the Transfer to its owning connection. Calling Release
// more than once is a no-op.
func (l *Lease) Release() {
	if l.released {
		return
	}
	l.released = true
	l.returnCh <- l.transfer
}
