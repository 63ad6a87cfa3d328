package boschhttp

import "net/http"

// transport adds the headers the gateway firmware expects to every request,
// Content-Type included
type transport struct {
	http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range GatewayHeaders {
		req.Header.Set(k, v)
	}

	base := t.RoundTripper
	if base == nil {
		base = http.DefaultTransport
	}

	return base.RoundTrip(req)
}
