package http

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(req *Request, res *Response) {}

func TestRouterMatch(t *testing.T) {
	router := NewRouter()
	router.GET("/home", noop)
	router.GET("/:user_id/login", noop)
	router.GET("/login", noop)
	router.GET("/users/:id/posts/:post", noop)
	router.POST("/users", noop)
	router.GET("/", noop)

	tests := []struct {
		name        string
		method      Method
		path        string
		wantPattern string
		wantParams  map[string]string
		wantOK      bool
	}{
		{"static", MethodGet, "/home", "/home", map[string]string{}, true},
		{"dynamic", MethodGet, "/234sdf/login", "/:user_id/login", map[string]string{"user_id": "234sdf"}, true},
		{"earlier dynamic wins over later static", MethodGet, "/login/login", "/:user_id/login", map[string]string{"user_id": "login"}, true},
		{"single static", MethodGet, "/login", "/login", map[string]string{}, true},
		{"two params", MethodGet, "/users/7/posts/42", "/users/:id/posts/:post", map[string]string{"id": "7", "post": "42"}, true},
		{"root", MethodGet, "/", "/", map[string]string{}, true},
		{"method filter", MethodPost, "/users", "/users", map[string]string{}, true},
		{"wrong method", MethodDelete, "/users", "", nil, false},
		{"segment count mismatch", MethodGet, "/home/extra", "", nil, false},
		{"trailing slash adds a segment", MethodGet, "/home/", "", nil, false},
		{"empty dynamic segment", MethodGet, "//login", "", nil, false},
		{"case sensitive", MethodGet, "/HOME", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, params, ok := router.Match(tt.method, tt.path)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				assert.Nil(t, route)
				assert.Nil(t, params)
				return
			}
			assert.Equal(t, tt.wantPattern, route.Pattern)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

func TestRouterFirstMatchWins(t *testing.T) {
	var buf bytes.Buffer
	router := NewRouter()
	router.Logger = slog.New(slog.NewTextHandler(&buf, nil))

	var hit string
	router.GET("/items/:id", func(req *Request, res *Response) { hit = "first" })
	router.GET("/items/:name", func(req *Request, res *Response) { hit = "second" })

	route, params, ok := router.Match(MethodGet, "/items/9")
	require.True(t, ok)
	route.Handler.ServeHTTP(&Request{}, NewResponse())

	assert.Equal(t, "first", hit)
	assert.Equal(t, map[string]string{"id": "9"}, params)
	assert.Len(t, router.Routes(), 2)
	assert.Contains(t, buf.String(), "route is shadowed by an earlier registration")
	assert.Contains(t, buf.String(), "shadowed_by=/items/:id")
}

func TestRouterNoShadowWarningForDistinctRoutes(t *testing.T) {
	var buf bytes.Buffer
	router := NewRouter()
	router.Logger = slog.New(slog.NewTextHandler(&buf, nil))

	router.GET("/items/:id", noop)
	router.POST("/items/:id", noop)
	router.GET("/items/:id/tags", noop)
	router.GET("/items/all", noop)

	assert.Empty(t, buf.String())
}

func TestRouterRegisterErrors(t *testing.T) {
	router := NewRouter()

	err := router.Register(MethodGet, "home", HandlerFunc(noop))
	assert.ErrorIs(t, err, ErrInvalidPattern)

	err = router.Register(MethodGet, "/users/:", HandlerFunc(noop))
	assert.ErrorIs(t, err, ErrInvalidPattern)

	err = router.Register(Method("HEAD"), "/", HandlerFunc(noop))
	assert.ErrorIs(t, err, ErrInvalidMethod)

	err = router.Register(MethodGet, "/", nil)
	assert.ErrorIs(t, err, ErrNilHandler)

	err = router.Register(MethodGet, "/", HandlerFunc(nil))
	assert.ErrorIs(t, err, ErrNilHandler)

	assert.Empty(t, router.Routes())
	assert.Panics(t, func() { router.GET("no-slash", noop) })
	assert.Panics(t, func() { router.GET("/x", nil) })
	assert.ErrorIs(t, router.NotFound(HandlerFunc(nil)), ErrNilHandler)
	assert.Empty(t, router.Routes())
}

func TestRouterFrozen(t *testing.T) {
	router := NewRouter()
	router.GET("/", noop)

	srv := NewServer("test", router)
	require.NoError(t, srv.init())

	err := router.Register(MethodGet, "/late", HandlerFunc(noop))
	assert.ErrorIs(t, err, ErrRouterFrozen)
	assert.ErrorIs(t, router.NotFound(HandlerFunc(noop)), ErrRouterFrozen)
	assert.Len(t, router.Routes(), 1)
}

func TestRouterNotFound(t *testing.T) {
	router := NewRouter()
	res := NewResponse()
	router.notFoundHandler().ServeHTTP(&Request{}, res)
	assert.Equal(t, StatusNotFound, res.StatusCode())
	assert.Equal(t, "Not Found", string(res.Body()))

	assert.ErrorIs(t, router.NotFound(nil), ErrNilHandler)

	called := false
	require.NoError(t, router.NotFound(HandlerFunc(func(req *Request, res *Response) { called = true })))
	router.notFoundHandler().ServeHTTP(&Request{}, NewResponse())
	assert.True(t, called)
}

func TestCompilePattern(t *testing.T) {
	segments, err := compilePattern("/users/:id")
	require.NoError(t, err)
	assert.Equal(t, []Segment{
		{Kind: SegmentStatic, Value: ""},
		{Kind: SegmentStatic, Value: "users"},
		{Kind: SegmentDynamic, Value: "id"},
	}, segments)
}

func BenchmarkRouterMatch(b *testing.B) {
	router := NewRouter()
	router.GET("/home", noop)
	router.GET("/:user_id/login", noop)
	router.GET("/login", noop)
	router.GET("/users/:id/posts/:post", noop)

	for b.Loop() {
		if _, _, ok := router.Match(MethodGet, "/users/7/posts/42"); !ok {
			b.Fatal("no match")
		}
	}
}
