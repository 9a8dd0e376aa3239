package http11

import "bytes"

// bodyTracker counts request body bytes as they arrive via on_body without
// ever exposing their content to a Handler (spec.md §1's non-goal:
// "streaming request-body decoding surfaced to the handler ... reads and
// counts body bytes without exposing them").
//
// For a Sized body it is a simple counter. For a chunked body it must
// still fully parse the wire framing — chunk-size lines, chunk data,
// the terminating zero-chunk, and any trailer lines — to know exactly
// where the body ends and a pipelined next request begins, even though
// the decoded payload itself is discarded.
type bodyTracker struct {
	kind      bodyKind
	remaining uint64 // bodyKindSized

	state          chunkScanState // bodyKindChunked
	chunkRemaining uint64
	scratch        []byte
	errored        bool
}

type bodyKind uint8

const (
	bodyKindNone bodyKind = iota
	bodyKindSized
	bodyKindChunked
)

type chunkScanState uint8

const (
	scanChunkSize chunkScanState = iota
	scanChunkData
	scanChunkDataCRLF
	scanTrailer
	scanDone
)

// newBodyTracker derives the tracking strategy from a parsed Head exactly
// as the parser's own framing detection would: Content-Length takes a
// sized counter, Transfer-Encoding: chunked takes the chunk scanner,
// otherwise there is no body to track.
func newBodyTracker(head *Head) *bodyTracker {
	if head.IsChunked() {
		return &bodyTracker{kind: bodyKindChunked}
	}
	if cl := head.ContentLength(); cl > 0 {
		return &bodyTracker{kind: bodyKindSized, remaining: uint64(cl)}
	}
	return &bodyTracker{kind: bodyKindNone}
}

// complete reports whether the entire body has been accounted for.
func (t *bodyTracker) complete() bool {
	switch t.kind {
	case bodyKindSized:
		return t.remaining == 0
	case bodyKindChunked:
		return t.state == scanDone || t.errored
	default:
		return true
	}
}

// consume accounts for data as body bytes, returning how many of them
// belong to this body (the on_body "used" count of spec.md §4.4). Bytes
// beyond that belong to the next pipelined request.
func (t *bodyTracker) consume(data []byte) int {
	switch t.kind {
	case bodyKindSized:
		n := uint64(len(data))
		if n > t.remaining {
			n = t.remaining
		}
		t.remaining -= n
		return int(n)
	case bodyKindChunked:
		return t.consumeChunked(data)
	default:
		return 0
	}
}

// consumeChunked incrementally scans chunked-transfer framing across
// however many on_body calls it takes to see the terminal 0-chunk and its
// trailer section, never buffering more than one partial line/chunk at a
// time.
func (t *bodyTracker) consumeChunked(data []byte) int {
	if t.state == scanDone || t.errored {
		return 0
	}

	before := len(t.scratch)
	t.scratch = append(t.scratch, data...)
	pos := 0

scan:
	for {
		switch t.state {
		case scanChunkSize:
			idx := bytes.Index(t.scratch[pos:], crlfBytes)
			if idx == -1 {
				break scan
			}
			line := t.scratch[pos : pos+idx]
			if semi := bytes.IndexByte(line, ';'); semi >= 0 {
				line = line[:semi]
			}
			size, ok := parseHexUint(bytes.TrimSpace(line))
			pos += idx + 2
			if !ok {
				t.errored = true
				t.state = scanDone
				break scan
			}
			if size == 0 {
				t.state = scanTrailer
			} else {
				t.chunkRemaining = size
				t.state = scanChunkData
			}

		case scanChunkData:
			avail := uint64(len(t.scratch) - pos)
			if avail == 0 {
				break scan
			}
			n := t.chunkRemaining
			if avail < n {
				n = avail
			}
			pos += int(n)
			t.chunkRemaining -= n
			if t.chunkRemaining == 0 {
				t.state = scanChunkDataCRLF
			} else {
				break scan
			}

		case scanChunkDataCRLF:
			if len(t.scratch)-pos < 2 {
				break scan
			}
			pos += 2
			t.state = scanChunkSize

		case scanTrailer:
			idx := bytes.Index(t.scratch[pos:], crlfBytes)
			if idx == -1 {
				break scan
			}
			pos += idx + 2
			if idx == 0 {
				t.state = scanDone
				break scan
			}

		case scanDone:
			break scan
		}
	}

	t.scratch = t.scratch[pos:]
	if t.state != scanDone {
		// Unscanned bytes wait in scratch for the next call, so every byte
		// of data still belongs to this body.
		return len(data)
	}
	used := pos - before
	if used < 0 {
		used = 0
	}
	if used > len(data) {
		used = len(data)
	}
	return used
}

// parseHexUint parses a bare hex integer (no leading "0x").
func parseHexUint(b []byte) (uint64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	var n uint64
	for _, c := range b {
		n <<= 4
		switch {
		case c >= '0' && c <= '9':
			n |= uint64(c - '0')
		case c >= 'a' && c <= 'f':
			n |= uint64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			n |= uint64(c-'A') + 10
		default:
			return 0, false
		}
	}
	return n, true
}
