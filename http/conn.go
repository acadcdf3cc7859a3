package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// conn handles exactly one request on an accepted connection. It moves
// through reading, parsing, routing, handling and writing, then closes.
type conn struct {
	srv *Server
	rwc net.Conn
	log *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	span   trace.Span
	start  time.Time

	buf     []byte
	req     *Request
	route   *Route
	params  map[string]string
	handler Handler
	res     *Response
}

// stateFunc performs one phase and returns the next; nil closes the connection.
type stateFunc func(*conn) stateFunc

func newConn(srv *Server, rwc net.Conn) *conn {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(WithRequestID(context.Background(), id))

	return &conn{
		srv:    srv,
		rwc:    rwc,
		log:    srv.logger().With("request_id", id, "remote_addr", remoteAddr(rwc)),
		ctx:    ctx,
		cancel: cancel,
		start:  time.Now(),
	}
}

func (c *conn) serve() {
	inst := c.srv.inst
	inst.active.Add(c.ctx, 1)
	defer func() {
		inst.active.Add(c.ctx, -1)
		c.close()
	}()

	for state := reading; state != nil; {
		state = state(c)
	}
}

func (c *conn) close() {
	if c.span != nil {
		c.span.End()
	}
	c.cancel()
	if err := c.rwc.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		c.log.Debug("close connection", "error", err)
	}
}

func reading(c *conn) stateFunc {
	err := c.readRequest()
	switch {
	case errors.Is(err, ErrRequestTooLarge):
		c.log.Warn("request rejected", "error", err, "bytes", len(c.buf))
		c.reject(StatusPayloadTooLarge)
		return writing
	case err != nil && len(c.buf) == 0:
		c.log.Warn("read request", "error", err)
		return nil
	case err != nil:
		c.log.Warn("read request", "error", err, "bytes", len(c.buf))
		if errors.Is(err, os.ErrDeadlineExceeded) {
			c.reject(StatusRequestTimeout)
		} else {
			c.reject(StatusBadRequest)
		}
		return writing
	case len(c.buf) == 0:
		c.log.Debug("peer closed before sending a request")
		return nil
	}
	return parsing
}

func parsing(c *conn) stateFunc {
	req, err := ParseRequest(c.buf)
	if err != nil {
		c.log.Warn("parse request", "error", err)
		c.srv.inst.parseErrors.Add(c.ctx, 1)

		if errors.Is(err, ErrUnsupportedMethod) {
			c.reject(StatusMethodNotAllowed)
			c.res.Set("Allow", allowHeader())
		} else {
			c.reject(StatusBadRequest)
		}
		return writing
	}

	c.req = req
	c.log = c.log.With("method", req.Method.String(), "path", req.Path)
	return routing
}

func routing(c *conn) stateFunc {
	router := c.srv.Router

	route, params, ok := router.Match(c.req.Method, c.req.Path)
	if ok {
		c.route = route
		c.params = params
		c.handler = route.Handler
	} else {
		c.params = map[string]string{}
		c.handler = router.notFoundHandler()
	}

	ctx := c.srv.propagator().Extract(c.ctx, headerCarrier(c.req.Headers))
	c.ctx, c.span = c.srv.inst.tracer.Start(ctx, c.spanName(),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", c.req.Method.String()),
			attribute.String("url.path", c.req.Path),
			attribute.String("http.route", c.routePattern()),
			attribute.String("request.id", requestID(c.ctx)),
		),
	)
	return handling
}

func handling(c *conn) stateFunc {
	c.res = NewResponse()
	req := c.req.withParams(c.params).WithContext(c.ctx)
	c.invoke(req)
	return writing
}

// invoke runs the handler, turning a panic into a 500 so one faulty handler
// cannot take down the server.
func (c *conn) invoke(req *Request) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("handler panicked", "panic", fmt.Sprint(r))
			c.reject(StatusInternalServerError)
		}
	}()

	c.handler.ServeHTTP(req, c.res)
}

func writing(c *conn) stateFunc {
	c.res.finalize()

	data, err := c.res.Serialize()
	if err != nil {
		c.log.Error("serialize response", "error", err)
		c.reject(StatusInternalServerError)
		c.res.finalize()
		data, _ = c.res.Serialize()
	}

	_ = c.rwc.SetWriteDeadline(time.Now().Add(c.srv.writeTimeout()))
	if _, err := c.rwc.Write(data); err != nil {
		c.log.Warn("write response", "error", fmt.Errorf("%w: %w", ErrSocketIO, err))
	} else if cw, ok := c.rwc.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}

	c.record()
	return nil
}

// reject replaces the response with a bare error response for status.
func (c *conn) reject(status int) {
	reason, _ := StatusText(status)
	c.res = NewResponse().Status(status).Send(reason)
}

func (c *conn) record() {
	status := c.res.StatusCode()
	method := ""
	if c.req != nil {
		method = c.req.Method.String()
	}

	attrs := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("http.route", c.routePattern()),
		attribute.Int("http.response.status_code", status),
	)
	c.srv.inst.requests.Add(c.ctx, 1, attrs)
	c.srv.inst.duration.Record(c.ctx, time.Since(c.start).Seconds(), attrs)

	if c.span != nil {
		c.span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= 500 {
			c.span.SetStatus(codes.Error, strconv.Itoa(status))
		}
	}

	c.log.Info("request handled", "status", status, "route", c.routePattern(),
		"duration", time.Since(c.start))
}

func (c *conn) spanName() string {
	if c.route != nil {
		return c.req.Method.String() + " " + c.route.Pattern
	}
	return c.req.Method.String()
}

func (c *conn) routePattern() string {
	if c.route != nil {
		return c.route.Pattern
	}
	return ""
}

// readRequest fills c.buf. The first read waits up to ReadTimeout. Further
// reads also wait while the header block or a declared body is incomplete;
// otherwise they only drain what is already in flight, and an expired
// DrainTimeout ends the phase like a would-block result.
func (c *conn) readRequest() error {
	chunk := make([]byte, DefaultReadBufferSize)
	maxSize := c.srv.maxRequestSize()

	for first := true; ; first = false {
		complete, known := messageComplete(c.buf)
		if complete {
			return nil
		}

		wait := c.srv.drainTimeout()
		if first || !known {
			wait = c.srv.readTimeout()
		}
		_ = c.rwc.SetReadDeadline(time.Now().Add(wait))

		n, err := c.rwc.Read(chunk)
		c.buf = append(c.buf, chunk[:n]...)
		if len(c.buf) > maxSize {
			return fmt.Errorf("%w: more than %d bytes", ErrRequestTooLarge, maxSize)
		}

		switch {
		case err == nil && n > 0:
			continue
		case err == nil, errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, os.ErrDeadlineExceeded) && !first && known:
			return nil
		default:
			return fmt.Errorf("%w: %w", ErrSocketIO, err)
		}
	}
}

// messageComplete reports whether buf holds a whole request. known is false
// while more bytes are certainly expected: the header block is unterminated
// or a declared Content-Length is not yet satisfied.
func messageComplete(buf []byte) (complete, known bool) {
	head, bodyLen, ok := splitHead(buf)
	if !ok {
		return false, false
	}

	length, ok := contentLength(head)
	if !ok {
		// Without a length any trailing bytes are drained opportunistically.
		return false, true
	}
	return bodyLen >= length, bodyLen >= length
}

// splitHead finds the blank line closing the header block, whichever line
// ending comes first.
func splitHead(buf []byte) (head []byte, bodyLen int, ok bool) {
	crlf := bytes.Index(buf, []byte("\r\n\r\n"))
	lf := bytes.Index(buf, []byte("\n\n"))
	switch {
	case lf >= 0 && (crlf < 0 || lf < crlf):
		return buf[:lf], len(buf) - lf - 2, true
	case crlf >= 0:
		return buf[:crlf], len(buf) - crlf - 4, true
	}
	return nil, 0, false
}

func contentLength(head []byte) (int, bool) {
	for _, line := range bytes.Split(head, []byte("\n")) {
		name, value, found := bytes.Cut(bytes.TrimSuffix(line, []byte("\r")), []byte(":"))
		if !found || !bytes.EqualFold(bytes.TrimSpace(name), []byte("Content-Length")) {
			continue
		}
		n, err := strconv.Atoi(string(bytes.TrimSpace(value)))
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func requestID(ctx context.Context) string {
	id, _ := RequestIDFrom(ctx)
	return id
}

func remoteAddr(rwc net.Conn) string {
	if addr := rwc.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
