package http11

import "github.com/valyala/bytebufferpool"

// bufferPool backs every ParseBuffer's growable array. A Connection takes
// one when it is created and returns it to the pool in Close; between
// requests it keeps the same backing array (Compact and Reset only move or
// clear bytes).
var bufferPool bytebufferpool.Pool

// ParseBuffer is the growable byte buffer with a read cursor described in
// spec.md's Parse Buffer data model: bytes before the cursor have already
// been consumed by the parser, bytes at or after it are pending.
//
// A ParseBuffer is owned by exactly one Connection and is never touched
// concurrently (see the concurrency model: one reactor goroutine per
// connection), so it carries no synchronization.
type ParseBuffer struct {
	bb     *bytebufferpool.ByteBuffer
	cursor int
}

func newParseBuffer() *ParseBuffer {
	return &ParseBuffer{bb: bufferPool.Get()}
}

// Append adds bytes to the end of the buffer.
func (p *ParseBuffer) Append(b []byte) {
	p.bb.Write(b)
}

// Pending returns the bytes at or after the cursor: the portion the parser
// (or handler body sink) has not yet consumed.
func (p *ParseBuffer) Pending() []byte {
	return p.bb.B[p.cursor:]
}

// Advance moves the cursor forward by n bytes, marking them consumed.
func (p *ParseBuffer) Advance(n int) {
	p.cursor += n
	if p.cursor > len(p.bb.B) {
		p.cursor = len(p.bb.B)
	}
}

// Len returns the total buffered length, consumed prefix included.
func (p *ParseBuffer) Len() int {
	return len(p.bb.B)
}

// ExceedsBound reports whether the buffer has grown past the bound spec.md
// §4.2 assigns the parse buffer (8192 + 4096*100 bytes).
func (p *ParseBuffer) ExceedsBound() bool {
	return len(p.bb.B) > ParseBufferMaxSize
}

// Compact discards the consumed prefix, sliding pending bytes down to
// offset 0. Called when a response ends (Connection.afterHandlingDone), so the buffer doesn't
// keep re-growing across a long keep-alive connection's requests.
func (p *ParseBuffer) Compact() {
	if p.cursor == 0 {
		return
	}
	n := copy(p.bb.B, p.bb.B[p.cursor:])
	p.bb.B = p.bb.B[:n]
	p.cursor = 0
}

// Reset clears the buffer back to empty, keeping its backing array.
func (p *ParseBuffer) Reset() {
	p.bb.Reset()
	p.cursor = 0
}

// SetToTail replaces the buffer's contents with tail, used when the
// Handling-state handler hands back an unconsumed remainder that belongs
// to the next pipelined request (spec.md §4.4, Handling transition 2).
func (p *ParseBuffer) SetToTail(tail []byte) {
	p.bb.Reset()
	p.bb.Write(tail)
	p.cursor = 0
}

// Release returns the backing array to the pool. The ParseBuffer must not
// be used afterward.
func (p *ParseBuffer) Release() {
	bufferPool.Put(p.bb)
	p.bb = nil
}
