package http11

import "github.com/sirupsen/logrus"

// Handler is the public, application-facing contract of spec.md §6: given
// a parsed Request and the Fresh response the connection leased for it,
// produce a response. A Handler controls the FreshResponse until it calls
// Send, or Start followed by the returned StreamingResponse's Finalize;
// if it returns having done neither, the connection synthesizes an empty
// response on its behalf.
type Handler interface {
	Handle(req *Request, resp *FreshResponse)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(req *Request, resp *FreshResponse)

func (f HandlerFunc) Handle(req *Request, resp *FreshResponse) { f(req, resp) }

// ContinueChecker is an optional Handler extension. When present, it is
// consulted for a request carrying "Expect: 100-continue" (spec.md §6's
// check_continue hook); the default, if absent, is to always answer 100.
type ContinueChecker interface {
	CheckContinue(method, path string, headers *Header) int
}

// ConnectionStartHook is an optional Handler extension invoked once when a
// connection is accepted, before its first request is parsed.
type ConnectionStartHook interface {
	OnConnectionStart(remoteAddr string)
}

// ConnectionEndHook is an optional Handler extension invoked once when a
// connection is torn down.
type ConnectionEndHook interface {
	OnConnectionEnd(remoteAddr string)
}

// handlerAdapter bridges the connection state machine's internal,
// hyper-style contract (onIncoming/onBody, mirroring the source's
// Service::call over a Head plus a byte-counted body) to the public,
// synchronous Handler interface. One adapter is reused for the life of a
// connection, across every request it handles in sequence.
type handlerAdapter struct {
	public Handler
	logger logrus.FieldLogger

	req     *Request
	resp    *FreshResponse
	tracker *bodyTracker
}

// onIncoming is invoked once a request head has been parsed and a Lease
// issued for it. It constructs the handler-facing Request/FreshResponse
// pair, answers any Expect: 100-continue negotiation, and — if the
// request carries no body — invokes the Handler immediately.
func (a *handlerAdapter) onIncoming(head *Head, lease *Lease, remoteAddr string) {
	a.req = newRequest(head, remoteAddr)
	a.resp = newFreshResponse(Version11, lease, a.logger, a.req.IsHEAD())
	a.tracker = newBodyTracker(head)

	// Pre-seed the response's own Connection: close before the handler
	// ever touches it, mirroring the source's keep_alive-computed-from-
	// the-request-first ordering: shouldKeepAlive only ever reads the
	// response's headers, so if the request already asked to close, the
	// handler must not be able to silently keep the connection alive by
	// never setting the header itself.
	if a.req.ShouldClose() {
		a.resp.Headers().Set(headerConnection, headerClose)
	}

	if head.HasExpectContinue() {
		if !a.negotiateContinue() {
			return // negotiateContinue already closed the lease on rejection
		}
	}

	if a.tracker.complete() {
		a.invoke()
	}
}

// onBody forwards newly arrived body bytes to the tracker and invokes the
// Handler once the body is fully accounted for. Returns the number of
// bytes consumed as this request's body; any remainder belongs to the
// next pipelined request.
func (a *handlerAdapter) onBody(data []byte) int {
	used := a.tracker.consume(data)
	if a.tracker.complete() {
		a.invoke()
	}
	return used
}

// negotiateContinue runs check_continue (default: always 100) and, for a
// non-100 verdict, writes that status directly and closes the lease
// without ever invoking the Handler — the request body was never going
// to be read. Returns false when it has already closed out the lease.
func (a *handlerAdapter) negotiateContinue() bool {
	code := 100
	if cc, ok := a.public.(ContinueChecker); ok {
		code = cc.CheckContinue(a.req.Method(), a.req.Path(), &a.req.Header)
	}

	tr := a.resp.lease.Transfer()
	if code == 100 {
		tr.Write(status100Bytes)
		tr.Write(crlfBytes)
		tr.Flush()
		return true
	}

	writeStatusLine(tr, Version11, code)
	tr.Write(headerConnection)
	tr.Write(colonSpace)
	tr.Write(headerClose)
	tr.Write(crlfBytes)
	tr.Write(crlfBytes)
	tr.Close()
	a.resp.lease.Release()
	return false
}

// invoke calls the public Handler and finalizes the FreshResponse as a
// safety net (a no-op if the handler already called Start).
func (a *handlerAdapter) invoke() {
	a.public.Handle(a.req, a.resp)
	a.resp.Finalize()
}

// reset clears per-request state between requests on the same connection.
func (a *handlerAdapter) reset() {
	if a.req != nil {
		PutRequest(a.req)
	}
	a.req = nil
	a.resp = nil
	a.tracker = nil
}
