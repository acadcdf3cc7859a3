package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Response accumulates a handler's result. The zero value is not usable;
// create one with NewResponse.
type Response struct {
	Headers Headers

	status int
	body   bytes.Buffer
}

func NewResponse() *Response {
	return &Response{
		Headers: make(Headers),
		status:  StatusOK,
	}
}

func (res *Response) Status(code int) *Response {
	res.status = code
	return res
}

// Set stores a header; a later Set with the same name in any case wins.
func (res *Response) Set(name, value string) *Response {
	res.Headers.Set(name, value)
	return res
}

// Send appends body to the output.
func (res *Response) Send(body string) *Response {
	res.body.WriteString(body)
	return res
}

func (res *Response) SendBytes(body []byte) *Response {
	res.body.Write(body)
	return res
}

func (res *Response) WithText(payload string) *Response {
	res.Set("Content-Type", "text/plain")
	return res.Send(payload)
}

// WithJson encodes payload as the body. Strings are taken to be encoded
// already. An encoding failure turns the response into a 500.
func (res *Response) WithJson(payload any) *Response {
	res.Set("Content-Type", "application/json")

	if s, ok := payload.(string); ok {
		return res.Send(s)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		res.body.Reset()
		res.Headers.Del("Content-Type")
		return res.Status(StatusInternalServerError)
	}
	return res.SendBytes(data)
}

func (res *Response) Get(name string) (string, bool) {
	return res.Headers.Get(name)
}

func (res *Response) StatusCode() int {
	return res.status
}

func (res *Response) Body() []byte {
	return res.body.Bytes()
}

// Serialize renders the response as HTTP/1.1 bytes. It fails when the status
// code has no reason phrase.
func (res *Response) Serialize() ([]byte, error) {
	reason, ok := StatusText(res.status)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatusCode, res.status)
	}

	var buf bytes.Buffer
	buf.Grow(64 + res.body.Len())

	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(strconv.Itoa(res.status))
	buf.WriteByte(' ')
	buf.WriteString(reason)
	buf.WriteString("\r\n")

	for name, value := range res.Headers.All() {
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
	}

	buf.WriteString("\r\n")
	buf.Write(res.body.Bytes())

	return buf.Bytes(), nil
}

// WriteTo serializes the response into w.
func (res *Response) WriteTo(w io.Writer) (int64, error) {
	data, err := res.Serialize()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// finalize adds the framing headers a one-shot connection needs, leaving any
// value the handler chose alone.
func (res *Response) finalize() {
	if res.bodyAllowed() {
		res.Headers.setDefault("Content-Length", strconv.Itoa(res.body.Len()))
	}
	res.Headers.setDefault("Connection", "close")
}

// bodyAllowed reports whether the status may carry a body and so a
// Content-Length header. 1xx and 204 responses never do.
func (res *Response) bodyAllowed() bool {
	return res.status >= 200 && res.status != StatusNoContent
}
