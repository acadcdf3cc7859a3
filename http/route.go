package http

import (
	"fmt"
	"strings"
)

type SegmentKind int

const (
	SegmentStatic SegmentKind = iota
	SegmentDynamic
)

// Segment is one '/'-delimited component of a route pattern. For dynamic
// segments Value holds the parameter name without the leading ':'.
type Segment struct {
	Kind  SegmentKind
	Value string
}

type Route struct {
	Method   Method
	Pattern  string
	Segments []Segment
	Handler  Handler
}

func compilePattern(pattern string) ([]Segment, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("%w: %q does not start with /", ErrInvalidPattern, pattern)
	}

	parts := strings.Split(pattern, "/")
	segments := make([]Segment, len(parts))
	for i, part := range parts {
		if name, ok := strings.CutPrefix(part, ":"); ok {
			if name == "" {
				return nil, fmt.Errorf("%w: %q has an unnamed parameter", ErrInvalidPattern, pattern)
			}
			segments[i] = Segment{Kind: SegmentDynamic, Value: name}
			continue
		}
		segments[i] = Segment{Kind: SegmentStatic, Value: part}
	}
	return segments, nil
}

// match compares the route against an already split request path. Bound
// parameters are returned only on success.
func (route *Route) match(method Method, parts []string) (map[string]string, bool) {
	if route.Method != method || len(route.Segments) != len(parts) {
		return nil, false
	}

	var params map[string]string
	for i, seg := range route.Segments {
		switch seg.Kind {
		case SegmentStatic:
			if seg.Value != parts[i] {
				return nil, false
			}
		case SegmentDynamic:
			if parts[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[seg.Value] = parts[i]
		}
	}

	if params == nil {
		params = map[string]string{}
	}
	return params, true
}

func (route *Route) sameAs(other *Route) bool {
	if route.Method != other.Method || len(route.Segments) != len(other.Segments) {
		return false
	}
	for i := range route.Segments {
		if route.Segments[i] != other.Segments[i] {
			// Dynamic segments shadow each other whatever their names.
			if route.Segments[i].Kind == SegmentDynamic && other.Segments[i].Kind == SegmentDynamic {
				continue
			}
			return false
		}
	}
	return true
}
