package http11

import (
	"bytes"
	"strconv"
)

// headTerminator is the blank line that ends a message head.
var headTerminator = []byte("\r\n\r\n")

// ParseRequestHead implements the Message Parser operation of spec.md
// §4.1 for request messages:
//
//	parse(buffer) -> Ok(Some((head, consumed))) | Ok(None) | Err(kind)
//
// consumed points one byte past the blank line terminating the header
// block. A nil head with a nil error means "need more bytes, try again
// once more have arrived" (Ok(None)); an empty buffer returns the same,
// not an error.
func ParseRequestHead(buf []byte) (*Head, int, error) {
	headEnd, ok := findHeadEnd(buf)
	if !ok {
		return nil, 0, nil
	}

	lineEnd := bytes.Index(buf, crlfBytes)
	if lineEnd == -1 || lineEnd > headEnd {
		return nil, 0, newParseError(KindMethod, ErrInvalidRequestLine)
	}

	subject, version, err := parseRequestLine(buf[:lineEnd])
	if err != nil {
		return nil, 0, err
	}

	headers, err := parseHeaderBlock(buf[lineEnd+2:headEnd], true)
	if err != nil {
		return nil, 0, err
	}

	head := &Head{
		Version: version,
		Request: subject,
		Headers: headers,
	}
	return head, headEnd + len(headTerminator), nil
}

// ParseResponseHead implements the same operation for status lines,
// generalizing the parser to the response-head shape the data model
// describes (used for response-head round-trip tests and any future
// client-facing reuse; the connection state machine itself only parses
// requests).
func ParseResponseHead(buf []byte) (*Head, int, error) {
	headEnd, ok := findHeadEnd(buf)
	if !ok {
		return nil, 0, nil
	}

	lineEnd := bytes.Index(buf, crlfBytes)
	if lineEnd == -1 || lineEnd > headEnd {
		return nil, 0, newParseError(KindVersion, ErrInvalidRequestLine)
	}

	subject, version, err := parseStatusLine(buf[:lineEnd])
	if err != nil {
		return nil, 0, err
	}

	headers, err := parseHeaderBlock(buf[lineEnd+2:headEnd], false)
	if err != nil {
		return nil, 0, err
	}

	head := &Head{
		Version:  version,
		Response: subject,
		Headers:  headers,
	}
	return head, headEnd + len(headTerminator), nil
}

// findHeadEnd locates the offset of "\r\n\r\n" in buf, returning the index
// of its first byte.
func findHeadEnd(buf []byte) (int, bool) {
	idx := bytes.Index(buf, headTerminator)
	if idx == -1 {
		return 0, false
	}
	return idx, true
}

// parseRequestLine parses "METHOD SP Request-URI SP HTTP-Version" (no
// trailing CRLF, already stripped by the caller).
func parseRequestLine(line []byte) (*RequestSubject, Version, error) {
	if len(line) > MaxRequestLineSize {
		return nil, Version{}, newParseError(KindMethod, ErrRequestLineTooLarge)
	}

	spaceIdx := bytes.IndexByte(line, ' ')
	if spaceIdx == -1 {
		return nil, Version{}, newParseError(KindMethod, ErrInvalidRequestLine)
	}
	methodBytes := line[:spaceIdx]
	if !isValidMethodToken(methodBytes) {
		return nil, Version{}, newParseError(KindMethod, ErrInvalidMethod)
	}

	rest := line[spaceIdx+1:]
	spaceIdx = bytes.IndexByte(rest, ' ')
	if spaceIdx == -1 {
		return nil, Version{}, newParseError(KindURI, ErrInvalidRequestLine)
	}
	uriBytes := rest[:spaceIdx]
	if len(uriBytes) > MaxURILength {
		return nil, Version{}, newParseError(KindURI, ErrURITooLong)
	}
	if !isValidRequestURI(uriBytes) {
		return nil, Version{}, newParseError(KindURI, ErrInvalidPath)
	}

	versionBytes := rest[spaceIdx+1:]
	version, err := parseVersionToken(versionBytes)
	if err != nil {
		return nil, Version{}, err
	}

	subject := &RequestSubject{
		MethodID: ParseMethodID(methodBytes),
		Method:   methodBytes,
	}
	if queryIdx := bytes.IndexByte(uriBytes, '?'); queryIdx != -1 {
		subject.Path = uriBytes[:queryIdx]
		subject.Query = uriBytes[queryIdx+1:]
	} else {
		subject.Path = uriBytes
	}

	return subject, version, nil
}

// isValidRequestURI accepts origin-form ("/path"), asterisk-form ("*"),
// authority-form (CONNECT, "host:port") and absolute-form
// ("scheme://..."), rejecting anything containing whitespace or control
// characters.
func isValidRequestURI(uri []byte) bool {
	if len(uri) == 0 {
		return false
	}
	for _, b := range uri {
		if b <= 0x20 || b == 0x7f {
			return false
		}
	}
	if uri[0] == '/' || (len(uri) == 1 && uri[0] == '*') {
		return true
	}
	// authority-form or absolute-form: anything else non-empty and
	// control-free is accepted; header/body parsing never interprets it.
	return true
}

// parseStatusLine parses "HTTP-Version SP status-code SP reason-phrase".
func parseStatusLine(line []byte) (*ResponseSubject, Version, error) {
	spaceIdx := bytes.IndexByte(line, ' ')
	if spaceIdx == -1 {
		return nil, Version{}, newParseError(KindVersion, ErrInvalidRequestLine)
	}
	version, err := parseVersionToken(line[:spaceIdx])
	if err != nil {
		return nil, Version{}, err
	}

	rest := line[spaceIdx+1:]
	spaceIdx = bytes.IndexByte(rest, ' ')
	var codeBytes, reason []byte
	if spaceIdx == -1 {
		codeBytes = rest
		reason = nil
	} else {
		codeBytes = rest[:spaceIdx]
		reason = rest[spaceIdx+1:]
	}

	if len(codeBytes) != 3 {
		return nil, Version{}, newParseError(KindHeader, ErrInvalidRequestLine)
	}
	code, err := strconv.Atoi(string(codeBytes))
	if err != nil {
		return nil, Version{}, newParseError(KindHeader, ErrInvalidRequestLine)
	}

	subject := &ResponseSubject{Code: code}
	canonical := CanonicalReasonPhrase(code)
	if canonical != nil && bytes.Equal(canonical, reason) {
		subject.Reason = canonical
		subject.CanonicalReason = true
	} else {
		owned := make([]byte, len(reason))
		copy(owned, reason)
		subject.Reason = owned
	}

	return subject, version, nil
}

// parseVersionToken parses "HTTP/1.1" or "HTTP/1.0"; anything else is a
// Version error.
func parseVersionToken(b []byte) (Version, error) {
	switch {
	case bytes.Equal(b, http11Bytes):
		return Version11, nil
	case bytes.Equal(b, http10Bytes):
		return Version10, nil
	default:
		return Version{}, newParseError(KindVersion, ErrInvalidProtocol)
	}
}

// parseHeaderBlock parses the header lines between the request/status
// line and the terminating blank line, applying the RFC 7230 smuggling
// protections the request path needs (enforceRequestRules gates the
// request-only checks: duplicate/conflicting Content-Length, CL+TE
// combination, duplicate Host).
func parseHeaderBlock(buf []byte, enforceRequestRules bool) (Header, error) {
	var h Header
	pos := 0
	lines := 0

	var hasContentLength, hasTransferEncoding, hasHost bool
	var contentLengthValue int64 = -1

	for pos < len(buf) {
		lineEnd := bytes.Index(buf[pos:], crlfBytes)
		if lineEnd == -1 {
			return h, newParseError(KindHeader, ErrInvalidHeader)
		}
		lineEnd += pos

		lines++
		if lines > MaxHeaderLines {
			return h, newParseError(KindHeader, ErrTooManyHeaders)
		}

		line := buf[pos:lineEnd]
		colonIdx := bytes.IndexByte(line, ':')
		if colonIdx <= 0 {
			return h, newParseError(KindHeader, ErrInvalidHeader)
		}
		if line[colonIdx-1] == ' ' || line[colonIdx-1] == '\t' {
			return h, newParseError(KindHeader, ErrInvalidHeader)
		}

		name := line[:colonIdx]
		if bytes.IndexByte(name, ' ') != -1 || bytes.IndexByte(name, '\t') != -1 {
			return h, newParseError(KindHeader, ErrInvalidHeader)
		}

		value := trimLeadingSpace(line[colonIdx+1:])
		value = trimTrailingSpace(value)

		if err := h.Add(name, value); err != nil {
			return h, newParseError(KindHeader, err)
		}

		if enforceRequestRules {
			if err := checkSpecialRequestHeader(name, value, &hasContentLength, &hasTransferEncoding, &contentLengthValue, &hasHost); err != nil {
				return h, err
			}
		}

		pos = lineEnd + 2
	}

	if enforceRequestRules && hasContentLength && hasTransferEncoding {
		return h, newParseError(KindHeader, ErrContentLengthWithTransferEncoding)
	}

	return h, nil
}

// checkSpecialRequestHeader applies the request-smuggling protections of
// RFC 7230 §3.3.3 and §5.4 as headers stream past.
func checkSpecialRequestHeader(name, value []byte, hasContentLength, hasTransferEncoding *bool, contentLengthValue *int64, hasHost *bool) error {
	switch {
	case bytesEqualCaseInsensitive(name, headerContentLength):
		n, err := parseContentLength(value)
		if err != nil {
			return newParseError(KindHeader, ErrInvalidContentLength)
		}
		if *hasContentLength {
			if *contentLengthValue != n {
				return newParseError(KindHeader, ErrDuplicateContentLength)
			}
			return nil
		}
		*hasContentLength = true
		*contentLengthValue = n
		return nil

	case bytesEqualCaseInsensitive(name, headerTransferEncoding):
		*hasTransferEncoding = true
		return nil

	case bytesEqualCaseInsensitive(name, headerHost):
		if *hasHost {
			return newParseError(KindHeader, ErrMultipleHost)
		}
		*hasHost = true
		return nil
	}
	return nil
}

// parseContentLength parses a decimal Content-Length value.
func parseContentLength(b []byte) (int64, error) {
	if len(b) == 0 {
		return -1, ErrInvalidContentLength
	}
	var n int64
	for _, c := range b {
		if c < '0' || c > '9' {
			return -1, ErrInvalidContentLength
		}
		n = n*10 + int64(c-'0')
		if n < 0 {
			return -1, ErrInvalidContentLength
		}
	}
	return n, nil
}

func trimLeadingSpace(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	return b
}

func trimTrailingSpace(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	return b
}
