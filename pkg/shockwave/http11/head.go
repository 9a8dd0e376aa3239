package http11

// Version is an HTTP protocol version. Only 1.0 and 1.1 are recognized;
// any other version token is a parse error (see parser.go).
type Version struct {
	Major int
	Minor int
}

var (
	Version10 = Version{Major: 1, Minor: 0}
	Version11 = Version{Major: 1, Minor: 1}
)

func (v Version) bytes() []byte {
	if v.Minor == 0 {
		return http10Bytes
	}
	return http11Bytes
}

func (v Version) String() string {
	return string(v.bytes())
}

// RequestSubject is the method/target pair of a request line.
type RequestSubject struct {
	MethodID uint8
	Method   []byte
	Path     []byte
	Query    []byte
}

// ResponseSubject is the status code/reason pair of a status line.
//
// CanonicalReason reports whether Reason is exactly the IANA canonical
// phrase for Code, mirroring the borrowed-vs-owned distinction the source
// material draws between a shared static string and a copied one; Go has
// no borrow checker to enforce it, so the field is purely informational.
type ResponseSubject struct {
	Code            int
	Reason          []byte
	CanonicalReason bool
}

// Head is a parsed message head: a request line or status line plus its
// header block. Exactly one of Request or Response is non-nil. Immutable
// once returned by the parser.
type Head struct {
	Version  Version
	Request  *RequestSubject
	Response *ResponseSubject
	Headers  Header
}

// ContentLength returns the parsed Content-Length, or -1 if absent.
func (h *Head) ContentLength() int64 {
	v := h.Headers.Get(headerContentLength)
	if v == nil {
		return -1
	}
	n, err := parseContentLength(v)
	if err != nil {
		return -1
	}
	return n
}

// IsChunked reports whether Transfer-Encoding names chunked as its final
// (and, since the core does not support encoding chains, only) coding.
func (h *Head) IsChunked() bool {
	return bytesEqualCaseInsensitive(h.Headers.Get(headerTransferEncoding), headerChunked)
}

// HasExpectContinue reports whether an HTTP/1.1 request carries
// "Expect: 100-continue".
func (h *Head) HasExpectContinue() bool {
	if h.Request == nil || h.Version != Version11 {
		return false
	}
	return bytesEqualCaseInsensitive(h.Headers.Get(headerExpect), expect100Continue)
}

// wantsClose evaluates the per-message (not per-response) close signal:
// an explicit "Connection: close", or HTTP/1.0 without "Connection:
// keep-alive".
func (h *Head) wantsClose() bool {
	conn := h.Headers.Get(headerConnection)
	if bytesEqualCaseInsensitive(conn, headerClose) {
		return true
	}
	if h.Version.Major == 1 && h.Version.Minor == 0 {
		return !bytesEqualCaseInsensitive(conn, headerKeepAlive)
	}
	return false
}

// shouldKeepAlive implements the keep-alive predicate of spec §4.5: true
// unless (1.0 without Connection: keep-alive) or (1.1 with Connection:
// close).
func shouldKeepAlive(version Version, headers *Header) bool {
	conn := headers.Get(headerConnection)
	if version.Major == 1 && version.Minor == 0 {
		return bytesEqualCaseInsensitive(conn, headerKeepAlive)
	}
	return !bytesEqualCaseInsensitive(conn, headerClose)
}
