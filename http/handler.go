package http

// Handler responds to a matched request by mutating res.
type Handler interface {
	ServeHTTP(req *Request, res *Response)
}

type HandlerFunc func(req *Request, res *Response)

func (f HandlerFunc) ServeHTTP(req *Request, res *Response) {
	f(req, res)
}

// NotFoundHandler is the fallback used when no route matches and the router
// has no handler of its own.
var NotFoundHandler Handler = HandlerFunc(func(req *Request, res *Response) {
	res.Status(StatusNotFound).Send("Not Found")
})
