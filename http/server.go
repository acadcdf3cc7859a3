package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultHost           = "127.0.0.1"
	MaxRequestSize        = 2 * 1024 * 1024
	DefaultReadBufferSize = 4096
	DefaultReadTimeout    = 10 * time.Second
	DefaultWriteTimeout   = 10 * time.Second
	DefaultDrainTimeout   = 10 * time.Millisecond
	maxAcceptBackoff      = time.Second
	initialAcceptBackoff  = 5 * time.Millisecond
)

// Server accepts TCP connections and answers one request on each of them
// using Router. Configure the fields before calling Listen or Serve; zero
// timeouts and sizes fall back to the Default values.
type Server struct {
	Name   string
	Host   string
	Router *Router

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	DrainTimeout   time.Duration
	MaxRequestSize int

	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Propagator     propagation.TextMapPropagator

	initOnce sync.Once
	initErr  error
	inst     *instruments

	mu       sync.Mutex
	listener net.Listener
	closed   atomic.Bool
	conns    sync.WaitGroup
}

func NewServer(name string, router *Router) *Server {
	return &Server{
		Name:           name,
		Host:           DefaultHost,
		Router:         router,
		ReadTimeout:    DefaultReadTimeout,
		WriteTimeout:   DefaultWriteTimeout,
		DrainTimeout:   DefaultDrainTimeout,
		MaxRequestSize: MaxRequestSize,
	}
}

// Listen binds Host:port, calls onBound once the socket is bound and then
// serves until the server is shut down.
func (s *Server) Listen(port int, onBound func()) error {
	addr := net.JoinHostPort(s.host(), strconv.Itoa(port))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBind, addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	if onBound != nil {
		onBound()
	}

	return s.Serve(listener)
}

// ListenAndServe is Listen for a full host:port address.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBind, addr, err)
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener and handles each in its own
// goroutine. The router is frozen for the lifetime of the server.
func (s *Server) Serve(listener net.Listener) error {
	if err := s.init(); err != nil {
		listener.Close()
		return err
	}

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		listener.Close()
		return ErrServerClosed
	}
	s.listener = listener
	s.mu.Unlock()

	s.logger().Info("serving", "name", s.Name, "addr", listener.Addr().String())

	backoff := time.Duration(0)
	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			if backoff == 0 {
				backoff = initialAcceptBackoff
			} else {
				backoff = min(backoff*2, maxAcceptBackoff)
			}
			s.logger().Error("accept connection", "error", err, "retry_in", backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		s.mu.Lock()
		if s.closed.Load() {
			s.mu.Unlock()
			conn.Close()
			return ErrServerClosed
		}
		s.conns.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.conns.Done()
			s.serveConn(conn)
		}()
	}
}

// ServeConn handles a single connection on the calling goroutine and closes
// it when done.
func (s *Server) ServeConn(conn net.Conn) {
	if err := s.init(); err != nil {
		s.logger().Error("server init", "error", err)
		conn.Close()
		return
	}
	s.serveConn(conn)
}

func (s *Server) serveConn(conn net.Conn) {
	newConn(s, conn).serve()
}

// Addr returns the address the server is bound to, or nil before binding.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting connections and waits for in-flight ones to
// finish or for ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed.Store(true)
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Server) init() error {
	s.initOnce.Do(func() {
		if s.Router == nil {
			s.Router = NewRouter()
		}
		if s.Router.Logger == nil {
			s.Router.Logger = s.logger()
		}
		s.Router.freeze()

		tp := s.TracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		mp := s.MeterProvider
		if mp == nil {
			mp = otel.GetMeterProvider()
		}
		s.inst, s.initErr = newInstruments(tp, mp)
	})
	return s.initErr
}

func (s *Server) host() string {
	if s.Host == "" {
		return DefaultHost
	}
	return s.Host
}

func (s *Server) readTimeout() time.Duration {
	if s.ReadTimeout <= 0 {
		return DefaultReadTimeout
	}
	return s.ReadTimeout
}

func (s *Server) writeTimeout() time.Duration {
	if s.WriteTimeout <= 0 {
		return DefaultWriteTimeout
	}
	return s.WriteTimeout
}

func (s *Server) drainTimeout() time.Duration {
	if s.DrainTimeout <= 0 {
		return DefaultDrainTimeout
	}
	return s.DrainTimeout
}

func (s *Server) maxRequestSize() int {
	if s.MaxRequestSize <= 0 {
		return MaxRequestSize
	}
	return s.MaxRequestSize
}

func (s *Server) propagator() propagation.TextMapPropagator {
	if s.Propagator != nil {
		return s.Propagator
	}
	return otel.GetTextMapPropagator()
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
