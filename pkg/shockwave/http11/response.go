package http11

import (
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// rfc7231DateFormat is the fixed-length IMF-fixdate format RFC 7231
// §7.1.1.1 requires for the Date header, e.g. "Sun, 06 Nov 1994 08:49:37 GMT".
const rfc7231DateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// FreshResponse is the type-stated phase of a response in which headers
// may still be mutated and no body byte has been written (spec.md §4.5).
// It is what a Handler receives; a handler must eventually call Start (or
// Send, which calls it for them) and then Finalize the resulting
// StreamingResponse.
//
// If a FreshResponse is finalized without ever starting — the Go
// stand-in for the source's Drop-while-Fresh behavior, since Go has no
// destructors — it synthesizes an empty response per spec.md §4.5 rather
// than leaving the client with a half-written head.
type FreshResponse struct {
	version Version
	status  int
	headers Header
	lease   *Lease
	logger  logrus.FieldLogger

	// noBody forces the Empty body writer regardless of framing: set for
	// a HEAD request, whose response must report the same headers a GET
	// would but never write body bytes (RFC 7231 §4.3.2).
	noBody bool

	started   bool
	finalized bool
}

// newFreshResponse constructs the Fresh response the connection state
// machine hands to a Handler immediately after a lease is issued.
func newFreshResponse(version Version, lease *Lease, logger logrus.FieldLogger, noBody bool) *FreshResponse {
	return &FreshResponse{
		version: version,
		status:  200,
		lease:   lease,
		logger:  logger,
		noBody:  noBody,
	}
}

// Status returns the status code that will be sent (200 until changed).
func (r *FreshResponse) Status() int { return r.status }

// SetStatus sets the status code to be sent. Go's stand-in for the
// source's status_mut() accessor.
func (r *FreshResponse) SetStatus(code int) { r.status = code }

// Headers returns the mutable header collection. Go's stand-in for the
// source's headers_mut() accessor; valid only while still Fresh.
func (r *FreshResponse) Headers() *Header { return &r.headers }

// Send is the shortcut of spec.md §4.5: set Content-Length to len(data),
// transition to Streaming, write data, and finalize. Equivalent to:
//
//	r.Headers().Set(contentLength, len(data))
//	s, _ := r.Start()
//	s.Write(data)
//	s.Finalize()
func (r *FreshResponse) Send(data []byte) error {
	r.headers.Set(headerContentLength, []byte(strconv.Itoa(len(data))))
	streaming, err := r.Start()
	if err != nil {
		return err
	}
	if _, err := streaming.Write(data); err != nil {
		return err
	}
	return streaming.Finalize()
}

// Start commits the response head to the wire and returns the Streaming
// phase. This performs the five steps of spec.md §4.5:
//  1. emit the status line,
//  2. inject a Date header if the handler did not set one,
//  3. choose framing (Sized if Content-Length is present, else Chunked
//     plus a Transfer-Encoding: chunked header),
//  4. serialize headers terminated by the blank line,
//  5. hand the chosen BodyWriter to the returned StreamingResponse (the
//     head itself is written straight to the Transfer).
func (r *FreshResponse) Start() (*StreamingResponse, error) {
	if r.started {
		return nil, ErrHeadersAlreadyWritten
	}
	r.started = true

	tr := r.lease.Transfer()

	if r.headers.Get(headerDate) == nil {
		r.headers.Set(headerDate, []byte(time.Now().UTC().Format(rfc7231DateFormat)))
	}

	var bw BodyWriter
	switch {
	case r.noBody:
		// Headers still describe the body a GET would have carried; only
		// the writer itself discards bytes.
		if r.headers.Get(headerContentLength) == nil && !r.headers.Has(headerTransferEncoding) {
			r.headers.Set(headerContentLength, []byte("0"))
		}
		bw = &emptyWriter{tr: tr, logger: r.logger}
	case r.headers.Get(headerContentLength) != nil:
		n, err := parseContentLength(r.headers.Get(headerContentLength))
		if err != nil {
			n = 0
		}
		bw = &sizedWriter{tr: tr, remaining: uint64(n)}
	default:
		if !r.headers.Has(headerTransferEncoding) {
			r.headers.Set(headerTransferEncoding, headerChunked)
		}
		bw = &chunkedWriter{tr: tr}
	}

	writeStatusLine(tr, r.version, r.status)
	r.headers.VisitAll(func(name, value []byte) bool {
		tr.Write(name)
		tr.Write(colonSpace)
		tr.Write(value)
		tr.Write(crlfBytes)
		return true
	})
	tr.Write(crlfBytes)

	return &StreamingResponse{
		version: r.version,
		headers: r.headers,
		lease:   r.lease,
		writer:  bw,
		logger:  r.logger,
	}, nil
}

// Finalize is the explicit stand-in for the source's Drop-while-Fresh
// behavior (spec.md's Design Notes: "languages without deterministic
// destruction should expose an explicit finalize() ... if the response
// is a Fresh value at finalization, synthesize the empty response").
// Idempotent; a no-op if Start was already called (the resulting
// StreamingResponse must be finalized instead).
func (r *FreshResponse) Finalize() error {
	if r.finalized || r.started {
		return nil
	}
	r.finalized = true
	r.headers.Set(headerContentLength, []byte("0"))
	streaming, err := r.Start()
	if err != nil {
		return err
	}
	return streaming.Finalize()
}

// StreamingResponse is the type-stated phase of a response after Start:
// headers are frozen, and only body writes are permitted.
type StreamingResponse struct {
	version Version
	headers Header
	lease   *Lease
	writer  BodyWriter
	logger  logrus.FieldLogger

	finalized bool
}

// Write writes data through the chosen BodyWriter.
func (s *StreamingResponse) Write(data []byte) (int, error) {
	return s.writer.Write(data)
}

// End is a documentation-only no-op: in the source, ending a streaming
// response relies on Drop for finalization. Go has no Drop, so End does
// nothing and Finalize must still be called.
func (s *StreamingResponse) End() {}

// Finalize emits any closing framing, flushes the Transfer, evaluates the
// keep-alive predicate, and releases the Lease — the sole mechanism by
// which the connection learns the response has ended (spec.md §4.3, §4.5).
// Idempotent.
func (s *StreamingResponse) Finalize() error {
	if s.finalized {
		return nil
	}
	s.finalized = true

	err := s.writer.Finalize()

	tr := s.lease.Transfer()
	forceClose := false
	if sw, ok := s.writer.(*sizedWriter); ok && sw.remaining > 0 {
		// spec.md §4.6: a Sized writer dropped with remaining > 0 is a
		// FramingViolation; the connection must close rather than leave
		// the client with an under-length body it can't detect.
		forceClose = true
		if s.logger != nil {
			s.logger.WithField("remaining", sw.remaining).Warn("http11: response finalized before Sized body writer was fully written")
		}
	}

	if forceClose || !shouldKeepAlive(s.version, &s.headers) {
		tr.Close()
	}

	s.lease.Release()
	return err
}
