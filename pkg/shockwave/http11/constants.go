// Package http11 implements the per-connection HTTP/1.x protocol engine:
// an incremental message parser, a Parsing/Handling/Closed connection
// state machine driven by pushed byte chunks, a Transfer/Lease ownership
// primitive, and framed body writers.
package http11

// HTTP Method IDs for O(1) switching on the common verbs. Any other valid
// token is still accepted (see method.go); the ID table is a fast path,
// not a whitelist.
const (
	MethodUnknown uint8 = 0
	MethodGET     uint8 = 1
	MethodPOST    uint8 = 2
	MethodPUT     uint8 = 3
	MethodDELETE  uint8 = 4
	MethodPATCH   uint8 = 5
	MethodHEAD    uint8 = 6
	MethodOPTIONS uint8 = 7
	MethodCONNECT uint8 = 8
	MethodTRACE   uint8 = 9
)

// HTTP Status Lines - pre-compiled with CRLF for zero-allocation writes.
// Covers the status codes a handler is most likely to set.
var (
	status100Bytes = []byte("HTTP/1.1 100 Continue\r\n")
	status101Bytes = []byte("HTTP/1.1 101 Switching Protocols\r\n")

	status200Bytes = []byte("HTTP/1.1 200 OK\r\n")
	status201Bytes = []byte("HTTP/1.1 201 Created\r\n")
	status202Bytes = []byte("HTTP/1.1 202 Accepted\r\n")
	status204Bytes = []byte("HTTP/1.1 204 No Content\r\n")
	status206Bytes = []byte("HTTP/1.1 206 Partial Content\r\n")

	status301Bytes = []byte("HTTP/1.1 301 Moved Permanently\r\n")
	status302Bytes = []byte("HTTP/1.1 302 Found\r\n")
	status303Bytes = []byte("HTTP/1.1 303 See Other\r\n")
	status304Bytes = []byte("HTTP/1.1 304 Not Modified\r\n")
	status307Bytes = []byte("HTTP/1.1 307 Temporary Redirect\r\n")

	status400Bytes = []byte("HTTP/1.1 400 Bad Request\r\n")
	status401Bytes = []byte("HTTP/1.1 401 Unauthorized\r\n")
	status403Bytes = []byte("HTTP/1.1 403 Forbidden\r\n")
	status404Bytes = []byte("HTTP/1.1 404 Not Found\r\n")
	status405Bytes = []byte("HTTP/1.1 405 Method Not Allowed\r\n")
	status408Bytes = []byte("HTTP/1.1 408 Request Timeout\r\n")
	status409Bytes = []byte("HTTP/1.1 409 Conflict\r\n")
	status411Bytes = []byte("HTTP/1.1 411 Length Required\r\n")
	status413Bytes = []byte("HTTP/1.1 413 Payload Too Large\r\n")
	status414Bytes = []byte("HTTP/1.1 414 URI Too Long\r\n")
	status429Bytes = []byte("HTTP/1.1 429 Too Many Requests\r\n")

	status500Bytes = []byte("HTTP/1.1 500 Internal Server Error\r\n")
	status501Bytes = []byte("HTTP/1.1 501 Not Implemented\r\n")
	status502Bytes = []byte("HTTP/1.1 502 Bad Gateway\r\n")
	status503Bytes = []byte("HTTP/1.1 503 Service Unavailable\r\n")
	status504Bytes = []byte("HTTP/1.1 504 Gateway Timeout\r\n")
)

// Common HTTP header names - byte slices to avoid allocation on lookup.
var (
	headerContentLength    = []byte("Content-Length")
	headerContentType      = []byte("Content-Type")
	headerConnection       = []byte("Connection")
	headerKeepAlive        = []byte("keep-alive")
	headerClose            = []byte("close")
	headerTransferEncoding = []byte("Transfer-Encoding")
	headerChunked          = []byte("chunked")
	headerHost             = []byte("Host")
	headerDate             = []byte("Date")
	headerExpect           = []byte("Expect")
	expect100Continue      = []byte("100-continue")
)

var (
	http11Bytes = []byte("HTTP/1.1")
	http10Bytes = []byte("HTTP/1.0")
	crlfBytes   = []byte("\r\n")
	colonSpace  = []byte(": ")
)

// Header, request-line and buffer limits (RFC 7230 recommendations plus
// the bound spec §4.2 assigns the parse buffer).
const (
	// MaxHeaders is the number of headers storable inline before falling
	// back to overflow storage.
	MaxHeaders = 32

	// MaxHeaderName is the maximum inline header name length.
	MaxHeaderName = 64

	// MaxHeaderValue is the maximum inline header value length; larger
	// values spill into overflow storage rather than being rejected.
	MaxHeaderValue = 128

	// MaxHeaderLines bounds the number of header lines a single head may
	// carry (spec §4.1: "at most 100 header lines").
	MaxHeaderLines = 100

	// MaxRequestLineSize bounds the request line.
	MaxRequestLineSize = 8192

	// MaxURILength bounds the request-target specifically.
	MaxURILength = 8192

	// ParseBufferMaxSize is the parse buffer's hard bound (spec §4.2):
	// 8192 + 4096*100, i.e. enough for a max request line plus 100
	// max-sized header lines.
	ParseBufferMaxSize = 8192 + 4096*100
)
