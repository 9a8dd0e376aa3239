package http11

import "testing"

func headWithContentLength(n int) *Head {
	h := &Head{Request: &RequestSubject{MethodID: MethodPOST}}
	h.Headers.Add([]byte("Content-Length"), []byte(itoa(n)))
	return h
}

func headChunked() *Head {
	h := &Head{Request: &RequestSubject{MethodID: MethodPOST}}
	h.Headers.Add([]byte("Transfer-Encoding"), []byte("chunked"))
	return h
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestBodyTrackerSizedCompletesAfterContentLengthBytes(t *testing.T) {
	tr := newBodyTracker(headWithContentLength(5))
	if tr.complete() {
		t.Fatal("complete() = true before any bytes consumed")
	}

	used := tr.consume([]byte("hel"))
	if used != 3 {
		t.Errorf("consume() = %d, want 3", used)
	}
	if tr.complete() {
		t.Fatal("complete() = true, want false (2 bytes remaining)")
	}

	used = tr.consume([]byte("loxx"))
	if used != 2 {
		t.Errorf("consume() = %d, want 2 (only 2 bytes belong to this body)", used)
	}
	if !tr.complete() {
		t.Fatal("complete() = false after all Content-Length bytes consumed")
	}
}

func TestBodyTrackerNoBodyIsImmediatelyComplete(t *testing.T) {
	h := &Head{Request: &RequestSubject{MethodID: MethodGET}}
	tr := newBodyTracker(h)
	if !tr.complete() {
		t.Fatal("complete() = false for a request with no declared body")
	}
}

func TestBodyTrackerChunkedSingleChunk(t *testing.T) {
	tr := newBodyTracker(headChunked())
	wire := "4\r\nWiki\r\n0\r\n\r\n"

	used := tr.consume([]byte(wire))
	if used != len(wire) {
		t.Errorf("consume() = %d, want %d", used, len(wire))
	}
	if !tr.complete() {
		t.Fatal("complete() = false after terminal chunk and trailer CRLF")
	}
}

func TestBodyTrackerChunkedMultipleChunksAndTrailer(t *testing.T) {
	tr := newBodyTracker(headChunked())
	wire := "4\r\nWiki\r\n5\r\npedia\r\n0\r\nX-Trailer: value\r\n\r\n"

	used := tr.consume([]byte(wire))
	if used != len(wire) {
		t.Errorf("consume() = %d, want %d", used, len(wire))
	}
	if !tr.complete() {
		t.Fatal("complete() = false after trailer section")
	}
}

func TestBodyTrackerChunkedByteAtATime(t *testing.T) {
	tr := newBodyTracker(headChunked())
	wire := []byte("4\r\nWiki\r\n0\r\n\r\n")

	total := 0
	for _, b := range wire {
		total += tr.consume([]byte{b})
	}
	if total != len(wire) {
		t.Errorf("total consumed = %d, want %d", total, len(wire))
	}
	if !tr.complete() {
		t.Fatal("complete() = false after feeding the wire one byte at a time")
	}
}

func TestBodyTrackerChunkedDetectsPipelinedTail(t *testing.T) {
	tr := newBodyTracker(headChunked())
	wire := "4\r\nWiki\r\n0\r\n\r\n"
	next := "GET /next HTTP/1.1\r\n\r\n"

	used := tr.consume([]byte(wire + next))
	if used != len(wire) {
		t.Errorf("consume() = %d, want %d (body framing only, not the pipelined tail)", used, len(wire))
	}
	if !tr.complete() {
		t.Fatal("complete() = false after terminal chunk")
	}
}

func TestBodyTrackerChunkedWithExtension(t *testing.T) {
	tr := newBodyTracker(headChunked())
	wire := "4;ext=value\r\nWiki\r\n0\r\n\r\n"

	used := tr.consume([]byte(wire))
	if used != len(wire) {
		t.Errorf("consume() = %d, want %d", used, len(wire))
	}
	if !tr.complete() {
		t.Fatal("complete() = false after a chunk-size line carrying an extension")
	}
}

func TestBodyTrackerChunkedMalformedSizeMarksErrored(t *testing.T) {
	tr := newBodyTracker(headChunked())
	tr.consume([]byte("zzz\r\n"))
	if !tr.complete() {
		t.Fatal("complete() = false after an unparsable chunk-size line; tracker should give up, not hang")
	}
}
