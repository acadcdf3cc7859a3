package http

// Method is one of the request methods the server understands.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

var methods = []Method{MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete}

// ParseMethod matches token against the supported methods exactly; the
// comparison is case-sensitive.
func ParseMethod(token string) (Method, bool) {
	for _, m := range methods {
		if string(m) == token {
			return m, true
		}
	}
	return "", false
}

func (m Method) Valid() bool {
	_, ok := ParseMethod(string(m))
	return ok
}

func (m Method) String() string {
	return string(m)
}

// allowHeader lists the supported methods for the Allow response header.
func allowHeader() string {
	s := ""
	for i, m := range methods {
		if i > 0 {
			s += ", "
		}
		s += string(m)
	}
	return s
}
