package http

import "errors"

var (
	ErrMalformedRequestLine = errors.New("http: malformed request line")
	ErrUnsupportedMethod    = errors.New("http: unsupported method")
	ErrMalformedHeader      = errors.New("http: malformed header")
	ErrRequestTooLarge      = errors.New("http: request too large")
	ErrUnknownStatusCode    = errors.New("http: unknown status code")

	ErrInvalidPattern = errors.New("http: invalid route pattern")
	ErrInvalidMethod  = errors.New("http: invalid route method")
	ErrNilHandler     = errors.New("http: nil handler")
	ErrRouterFrozen   = errors.New("http: router is frozen")

	ErrBind         = errors.New("http: bind failure")
	ErrSocketIO     = errors.New("http: socket i/o error")
	ErrServerClosed = errors.New("http: server closed")
)
