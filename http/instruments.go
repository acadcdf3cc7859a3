package http

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/restless-rs/restless/http"

type instruments struct {
	tracer      trace.Tracer
	requests    metric.Int64Counter
	duration    metric.Float64Histogram
	active      metric.Int64UpDownCounter
	parseErrors metric.Int64Counter
}

func newInstruments(tp trace.TracerProvider, mp metric.MeterProvider) (*instruments, error) {
	meter := mp.Meter(instrumentationName)

	requests, err := meter.Int64Counter("http.server.request.count",
		metric.WithDescription("Requests answered, by method, route and status"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Time from accepting a connection to writing its response"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	active, err := meter.Int64UpDownCounter("http.server.active_connections",
		metric.WithDescription("Connections currently being handled"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}

	parseErrors, err := meter.Int64Counter("http.server.parse_errors",
		metric.WithDescription("Requests rejected before routing"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	return &instruments{
		tracer:      tp.Tracer(instrumentationName),
		requests:    requests,
		duration:    duration,
		active:      active,
		parseErrors: parseErrors,
	}, nil
}

// headerCarrier lets a propagator read trace context from request headers.
type headerCarrier Headers

func (c headerCarrier) Get(key string) string {
	v, _ := Headers(c).Get(key)
	return v
}

func (c headerCarrier) Set(key, value string) {
	Headers(c).Set(key, value)
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for name := range Headers(c).All() {
		keys = append(keys, name)
	}
	return keys
}
