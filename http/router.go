package http

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
)

// Router is the route table. Routes are matched in registration order and the
// first match wins. It is filled before serving and read-only afterwards.
type Router struct {
	Logger *slog.Logger

	routes   []Route
	notFound Handler
	frozen   atomic.Bool
}

func NewRouter() *Router {
	return &Router{
		routes: make([]Route, 0),
	}
}

// Register appends a route answering method on pattern. A route that repeats
// an earlier method and pattern is kept but can never match; it is reported
// in the log.
func (router *Router) Register(method Method, pattern string, handler Handler) error {
	if router.frozen.Load() {
		return fmt.Errorf("%w: cannot register %s %s", ErrRouterFrozen, method, pattern)
	}
	if !method.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMethod, string(method))
	}
	if isNilHandler(handler) {
		return fmt.Errorf("%w: %s %s", ErrNilHandler, method, pattern)
	}

	segments, err := compilePattern(pattern)
	if err != nil {
		return err
	}

	route := Route{
		Method:   method,
		Pattern:  pattern,
		Segments: segments,
		Handler:  handler,
	}

	for i := range router.routes {
		if router.routes[i].sameAs(&route) {
			router.logger().Warn("route is shadowed by an earlier registration",
				"method", method.String(),
				"pattern", pattern,
				"shadowed_by", router.routes[i].Pattern,
			)
			break
		}
	}

	router.routes = append(router.routes, route)
	return nil
}

// isNilHandler also catches a nil HandlerFunc wrapped in the interface.
func isNilHandler(handler Handler) bool {
	if handler == nil {
		return true
	}
	f, ok := handler.(HandlerFunc)
	return ok && f == nil
}

func (router *Router) mustRegister(method Method, pattern string, handler HandlerFunc) {
	if err := router.Register(method, pattern, handler); err != nil {
		panic(err)
	}
}

func (router *Router) GET(pattern string, handler HandlerFunc) {
	router.mustRegister(MethodGet, pattern, handler)
}

func (router *Router) POST(pattern string, handler HandlerFunc) {
	router.mustRegister(MethodPost, pattern, handler)
}

func (router *Router) PUT(pattern string, handler HandlerFunc) {
	router.mustRegister(MethodPut, pattern, handler)
}

func (router *Router) PATCH(pattern string, handler HandlerFunc) {
	router.mustRegister(MethodPatch, pattern, handler)
}

func (router *Router) DELETE(pattern string, handler HandlerFunc) {
	router.mustRegister(MethodDelete, pattern, handler)
}

// NotFound sets the handler invoked when no route matches.
func (router *Router) NotFound(handler Handler) error {
	if router.frozen.Load() {
		return fmt.Errorf("%w: cannot replace not-found handler", ErrRouterFrozen)
	}
	if isNilHandler(handler) {
		return fmt.Errorf("%w: not-found handler", ErrNilHandler)
	}
	router.notFound = handler
	return nil
}

// Match returns the first route registered for method whose pattern fits
// path, together with the values bound to its dynamic segments.
func (router *Router) Match(method Method, path string) (*Route, map[string]string, bool) {
	parts := strings.Split(path, "/")
	for i := range router.routes {
		if params, ok := router.routes[i].match(method, parts); ok {
			return &router.routes[i], params, true
		}
	}
	return nil, nil, false
}

// Routes returns a copy of the table in matching order.
func (router *Router) Routes() []Route {
	routes := make([]Route, len(router.routes))
	copy(routes, router.routes)
	return routes
}

func (router *Router) notFoundHandler() Handler {
	if router.notFound != nil {
		return router.notFound
	}
	return NotFoundHandler
}

func (router *Router) freeze() {
	router.frozen.Store(true)
}

func (router *Router) logger() *slog.Logger {
	if router.Logger != nil {
		return router.Logger
	}
	return slog.Default()
}
