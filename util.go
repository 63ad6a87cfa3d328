package boschhttp

import (
	"fmt"
	"io"
	"mime"
	"net/http"
)

var (
	// GatewayHeaders are sent with every request
	GatewayHeaders = map[string]string{
		"User-Agent":   USER_AGENT,
		"Accept":       JSON_CONTENT,
		"Content-Type": JSON_CONTENT,
		"Connection":   "keep-alive",
	}
)

// StatusError indicates unsuccessful http response
type StatusError struct {
	resp *http.Response
}

func (e StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d (%s)", e.resp.StatusCode, http.StatusText(e.resp.StatusCode))
}

// Response returns the response with the unexpected error
func (e StatusError) Response() *http.Response {
	return e.resp
}

// StatusCode returns the response's status code
func (e StatusError) StatusCode() int {
	return e.resp.StatusCode
}

// statusError turns an HTTP status code other than 2xx into an error
func statusError(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return StatusError{resp: resp}
	}
	return nil
}

// contentTypeError returns an error unless the response announces json
func contentTypeError(resp *http.Response) error {
	ct := resp.Header.Get("Content-Type")
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil || mt != JSON_CONTENT {
		return fmt.Errorf("invalid content type: %q", ct)
	}
	return nil
}

// ReadBody reads HTTP response and returns error on response codes other than HTTP 2xx. It closes the request body after reading.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}
	return b, statusError(resp)
}
