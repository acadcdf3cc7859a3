package http

import (
	"iter"
	"maps"
	"slices"
	"strings"
)

// Headers maps header names to values. Lookups ignore case; the name is kept
// as it was last set so it is written back the way it was received.
type Headers map[string]headerField

type headerField struct {
	name  string
	value string
}

func headerKey(name string) string {
	return strings.ToLower(name)
}

func (h Headers) Get(name string) (string, bool) {
	f, ok := h[headerKey(name)]
	return f.value, ok
}

func (h Headers) Has(name string) bool {
	_, ok := h[headerKey(name)]
	return ok
}

// Set replaces any value stored under name, whatever its case.
func (h Headers) Set(name, value string) {
	h[headerKey(name)] = headerField{name: name, value: value}
}

// setDefault stores value only when name is absent.
func (h Headers) setDefault(name, value string) {
	if !h.Has(name) {
		h.Set(name, value)
	}
}

func (h Headers) Del(name string) {
	delete(h, headerKey(name))
}

// All yields name/value pairs ordered by lower-cased name.
func (h Headers) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, key := range slices.Sorted(maps.Keys(h)) {
			f := h[key]
			if !yield(f.name, f.value) {
				return
			}
		}
	}
}
