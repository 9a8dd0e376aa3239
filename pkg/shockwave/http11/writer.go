package http11

import (
	"strconv"

	"github.com/sirupsen/logrus"
)

// chunkedTerminator is the terminal zero-length chunk.
var chunkedTerminator = []byte("0\r\n\r\n")

// BodyWriter is the uniform write/finalize contract every framing variant
// of spec.md §4.6 implements. Exactly one BodyWriter exists per response;
// its variant is fixed once Response.Start chooses it.
type BodyWriter interface {
	// Write frames and enqueues p on the underlying Transfer, returning
	// the number of bytes actually accepted into the body (which may be
	// less than len(p) for a Sized writer nearing its limit).
	Write(p []byte) (accepted int, err error)

	// Finalize emits any closing framing (the chunked terminator) and
	// flushes the underlying Transfer. Idempotent.
	Finalize() error
}

// passThroughWriter forwards bytes verbatim. FreshResponse.Start never
// selects it: Start writes the head straight to the Transfer and then
// picks Sized, Chunked or Empty. It is only ever constructed directly.
type passThroughWriter struct {
	tr *Transfer
}

func (w *passThroughWriter) Write(p []byte) (int, error) {
	w.tr.Write(p)
	return len(p), nil
}

func (w *passThroughWriter) Finalize() error {
	return w.tr.Flush()
}

// sizedWriter frames a response with a known Content-Length, silently
// truncating any bytes written past the declared length.
type sizedWriter struct {
	tr        *Transfer
	remaining uint64
}

func (w *sizedWriter) Write(p []byte) (int, error) {
	if w.remaining == 0 || len(p) == 0 {
		return 0, nil
	}
	n := uint64(len(p))
	if n > w.remaining {
		n = w.remaining
	}
	w.tr.Write(p[:n])
	w.remaining -= n
	return int(n), nil
}

func (w *sizedWriter) Finalize() error {
	return w.tr.Flush()
}

// chunkedWriter frames each write as a chunk: hex(len) CRLF bytes CRLF.
// A zero-length write is a no-op; it never emits the terminator, which
// is Finalize's job alone.
type chunkedWriter struct {
	tr *Transfer
}

func (w *chunkedWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	w.tr.Write(strconv.AppendUint(nil, uint64(len(p)), 16))
	w.tr.Write(crlfBytes)
	w.tr.Write(p)
	w.tr.Write(crlfBytes)
	return len(p), nil
}

func (w *chunkedWriter) Finalize() error {
	w.tr.Write(chunkedTerminator)
	return w.tr.Flush()
}

// emptyWriter discards every write, logging each non-empty attempt. It
// backs responses that must carry no body (e.g. a HEAD reply or a
// handler that never starts one).
type emptyWriter struct {
	tr     *Transfer
	logger logrus.FieldLogger
}

func (w *emptyWriter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		log := w.logger
		if log == nil {
			log = logrus.StandardLogger()
		}
		log.WithField("bytes", len(p)).Error("http11: write to an Empty body writer was discarded")
	}
	return len(p), nil
}

func (w *emptyWriter) Finalize() error {
	return w.tr.Flush()
}
