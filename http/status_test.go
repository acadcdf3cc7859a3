package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusText(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{StatusContinue, "Continue"},
		{StatusSwitchingProtocols, "Switching Protocol"},
		{StatusOK, "OK"},
		{StatusMultiStatus, "Multi-Status Status"},
		{StatusIMUsed, "IM Used"},
		{StatusUnused, "unused"},
		{StatusSeeOther, "See Other"},
		{StatusNotFound, "Not Found"},
		{StatusTeapot, "I'm a teapot"},
		{StatusPayloadTooLarge, "Payload Too Large"},
		{StatusUnprocessableContent, "Unprocessable Content"},
		{StatusTooEarly, "Too Early"},
		{StatusUnavailableForLegalReasons, "Unavailable For Legal Reasons"},
		{StatusInternalServerError, "Internal Server Error"},
		{StatusNetworkAuthenticationRequired, "Network Authentication Required"},
	}

	for _, tt := range tests {
		got, ok := StatusText(tt.code)
		assert.True(t, ok, "code %d", tt.code)
		assert.Equal(t, tt.want, got, "code %d", tt.code)
	}
}

func TestStatusTextUnknown(t *testing.T) {
	for _, code := range []int{-1, 0, 99, 209, 299, 420, 509, 512, 999} {
		got, ok := StatusText(code)
		assert.False(t, ok, "code %d", code)
		assert.Empty(t, got, "code %d", code)
	}
}

func TestStatusTextCoversRegisteredRange(t *testing.T) {
	known := 0
	for code := 100; code <= 511; code++ {
		if _, ok := StatusText(code); ok {
			known++
		}
	}
	assert.Equal(t, 63, known)
}
