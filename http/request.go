package http

import (
	"context"
	"fmt"
	"strings"
)

// Request is a parsed HTTP request. It is not modified after parsing; routing
// hands the handler a copy carrying the bound path parameters.
type Request struct {
	Method   Method
	Path     string
	RawQuery string
	Queries  map[string]string
	Proto    string
	Host     string
	Headers  Headers
	Body     []byte
	Params   map[string]string

	ctx context.Context
}

// Context returns the request's context. If nil, returns Background.
func (req *Request) Context() context.Context {
	if req == nil || req.ctx == nil {
		return context.Background()
	}
	return req.ctx
}

// WithContext returns a shallow copy of req with its context changed to ctx.
func (req *Request) WithContext(ctx context.Context) *Request {
	r2 := *req
	r2.ctx = ctx
	return &r2
}

func (req *Request) withParams(params map[string]string) *Request {
	r2 := *req
	r2.Params = params
	return &r2
}

func (req *Request) Header(name string) (string, bool) {
	return req.Headers.Get(name)
}

func (req *Request) Query(name string) (string, bool) {
	v, ok := req.Queries[name]
	return v, ok
}

func (req *Request) Param(name string) (string, bool) {
	v, ok := req.Params[name]
	return v, ok
}

func (req *Request) HasBody() bool {
	return req.Body != nil
}

// ParseRequest turns everything read from a connection into a Request.
// Lines may end in CRLF or a bare LF. Lines following the blank line that
// closes the header block are joined without separators to form the body.
func ParseRequest(raw []byte) (*Request, error) {
	lines := strings.Split(string(raw), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	req := &Request{
		Queries: make(map[string]string),
		Headers: make(Headers),
	}

	if err := req.parseRequestLine(lines[0]); err != nil {
		return nil, err
	}

	bodyStart := len(lines)
	for i := 1; i < len(lines); i++ {
		line := lines[i]
		if line == "" {
			bodyStart = i + 1
			break
		}

		name, value, found := strings.Cut(line, ": ")
		if !found || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
		}
		req.Headers.Set(name, value)
	}

	req.Host, _ = req.Headers.Get("Host")

	if bodyStart < len(lines) {
		if body := strings.Join(lines[bodyStart:], ""); body != "" {
			req.Body = []byte(body)
		}
	}

	return req, nil
}

func (req *Request) parseRequestLine(line string) error {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return fmt.Errorf("%w: %q", ErrMalformedRequestLine, line)
	}
	token, target, proto := parts[0], parts[1], parts[2]

	if !strings.HasPrefix(proto, "HTTP/") {
		return fmt.Errorf("%w: bad protocol %q", ErrMalformedRequestLine, proto)
	}

	method, ok := ParseMethod(token)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, token)
	}

	target, ok = originForm(target)
	if !ok {
		return fmt.Errorf("%w: bad target %q", ErrMalformedRequestLine, parts[1])
	}

	path, rawQuery, _ := strings.Cut(target, "?")

	req.Method = method
	req.Proto = proto
	req.Path = path
	req.RawQuery = rawQuery
	parseQuery(req.Queries, rawQuery)
	return nil
}

// originForm reduces an absolute-form target such as http://host/x?y to
// /x?y. Any other target must already start with a slash.
func originForm(target string) (string, bool) {
	for _, scheme := range []string{"http://", "https://"} {
		if rest, ok := strings.CutPrefix(target, scheme); ok {
			if i := strings.IndexAny(rest, "/?"); i >= 0 {
				if rest[i] == '?' {
					return "/" + rest[i:], true
				}
				return rest[i:], true
			}
			return "/", true
		}
	}
	return target, strings.HasPrefix(target, "/")
}

// parseQuery splits a raw query string into dst. Pairs without '=' are
// skipped and values are kept as sent; a repeated name keeps the last value.
func parseQuery(dst map[string]string, rawQuery string) {
	for _, pair := range strings.Split(rawQuery, "&") {
		name, value, found := strings.Cut(pair, "=")
		if !found || name == "" {
			continue
		}
		dst[name] = value
	}
}
