package http11

import "net/url"

// Request is the handler-facing view of a parsed request head. Per
// spec.md §1's non-goals, it never exposes body bytes — only the
// Content-Length/Transfer-Encoding metadata the handler needs to know a
// body exists — since the core reads and counts body bytes without
// surfacing them.
//
// Unlike the zero-copy, buffer-referencing Request the teacher package
// builds, every field here owns its bytes. In the async model a request's
// lifetime can span many on_data invocations (a slow handler may hold its
// lease for a while), during which the connection's ParseBuffer keeps
// accepting and compacting bytes for the next pipelined request; holding
// slices into that buffer across such a gap would be unsafe. The copy
// happens once, at promotion from Head to Request, which keeps it cheap.
type Request struct {
	MethodID uint8
	method   []byte
	path     []byte
	query    []byte

	Header Header

	Version    Version
	Proto      string
	ProtoMajor int
	ProtoMinor int

	ContentLength    int64
	TransferEncoding []string
	Close            bool

	RemoteAddr string

	pathParsed *url.URL
}

// newRequest copies a parsed Head's request subject and headers into a
// freshly pooled Request, safe to retain past the Head's lifetime.
func newRequest(head *Head, remoteAddr string) *Request {
	req := GetRequest()
	subj := head.Request

	req.MethodID = subj.MethodID
	req.method = append(req.method[:0], subj.Method...)
	req.path = append(req.path[:0], subj.Path...)
	req.query = append(req.query[:0], subj.Query...)

	req.Version = head.Version
	req.Proto = head.Version.String()
	req.ProtoMajor = head.Version.Major
	req.ProtoMinor = head.Version.Minor

	req.ContentLength = head.ContentLength()
	if head.IsChunked() {
		req.TransferEncoding = []string{"chunked"}
	}
	req.Close = head.wantsClose()
	req.RemoteAddr = remoteAddr

	head.Headers.VisitAll(func(name, value []byte) bool {
		req.Header.Add(name, value)
		return true
	})

	return req
}

// Method returns the HTTP method as a string.
func (r *Request) Method() string {
	if IsValidMethodID(r.MethodID) {
		return MethodString(r.MethodID)
	}
	return string(r.method)
}

// MethodBytes returns the HTTP method as a byte slice.
func (r *Request) MethodBytes() []byte { return r.method }

// Path returns the request path as a string.
func (r *Request) Path() string { return string(r.path) }

// PathBytes returns the request path as a byte slice.
func (r *Request) PathBytes() []byte { return r.path }

// Query returns the query string (without '?') as a string.
func (r *Request) Query() string { return string(r.query) }

// QueryBytes returns the query string (without '?') as a byte slice.
func (r *Request) QueryBytes() []byte { return r.query }

// ParsedURL lazily parses and caches path+query as a *url.URL.
func (r *Request) ParsedURL() (*url.URL, error) {
	if r.pathParsed == nil {
		urlStr := string(r.path)
		if len(r.query) > 0 {
			urlStr += "?" + string(r.query)
		}
		parsed, err := url.Parse(urlStr)
		if err != nil {
			return nil, err
		}
		r.pathParsed = parsed
	}
	return r.pathParsed, nil
}

// GetHeader retrieves a header value by name (case-insensitive).
func (r *Request) GetHeader(name []byte) []byte { return r.Header.Get(name) }

// GetHeaderString retrieves a header value as a string (case-insensitive).
func (r *Request) GetHeaderString(name string) string { return r.Header.GetString([]byte(name)) }

// HasHeader checks if a header exists (case-insensitive).
func (r *Request) HasHeader(name []byte) bool { return r.Header.Has(name) }

func (r *Request) IsGET() bool     { return r.MethodID == MethodGET }
func (r *Request) IsPOST() bool    { return r.MethodID == MethodPOST }
func (r *Request) IsPUT() bool     { return r.MethodID == MethodPUT }
func (r *Request) IsDELETE() bool  { return r.MethodID == MethodDELETE }
func (r *Request) IsPATCH() bool   { return r.MethodID == MethodPATCH }
func (r *Request) IsHEAD() bool    { return r.MethodID == MethodHEAD }
func (r *Request) IsOPTIONS() bool { return r.MethodID == MethodOPTIONS }

// HasBody reports whether this request declared a body via Content-Length
// or Transfer-Encoding.
func (r *Request) HasBody() bool {
	return r.ContentLength > 0 || len(r.TransferEncoding) > 0
}

// IsChunked reports whether the request uses chunked transfer encoding.
func (r *Request) IsChunked() bool {
	return len(r.TransferEncoding) > 0 && r.TransferEncoding[len(r.TransferEncoding)-1] == "chunked"
}

// ShouldClose reports whether the connection should close after this
// request (the request's own signal; the response may independently
// force a close too — see shouldKeepAlive).
func (r *Request) ShouldClose() bool { return r.Close }

// Reset clears the request for reuse from the pool.
func (r *Request) Reset() {
	r.MethodID = 0
	r.method = r.method[:0]
	r.path = r.path[:0]
	r.query = r.query[:0]
	r.pathParsed = nil
	r.Header.Reset()
	r.Version = Version{}
	r.Proto = ""
	r.ProtoMajor = 0
	r.ProtoMinor = 0
	r.ContentLength = 0
	r.TransferEncoding = nil
	r.Close = false
	r.RemoteAddr = ""
}
