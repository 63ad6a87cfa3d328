package boschhttp

import (
	"errors"
	"fmt"
)

var (
	ErrNotInitialized    = errors.New("gateway not initialized")
	ErrUnknownCircuit    = errors.New("unknown circuit")
	ErrUnsupportedDevice = errors.New("unsupported device")
)

// RequestError indicates that the gateway could not be reached
type RequestError struct {
	Host string
	Path string
	Err  error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("error requesting %s from %s: %v", e.Path, e.Host, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ResponseError indicates that the peer did not answer like a gateway would:
// unexpected status, content type or undecodable json.
type ResponseError struct {
	Path string
	Err  error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("invalid response for %s: %v", e.Path, e.Err)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned for paths the firmware does not provide
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return "path does not exist: " + e.Path
}

type EncryptionError struct {
	Err error
}

func (e *EncryptionError) Error() string {
	return e.Err.Error()
}

func (e *EncryptionError) Unwrap() error {
	return e.Err
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsDeviceError reports whether err originates from talking to the gateway
func IsDeviceError(err error) bool {
	var (
		req *RequestError
		res *ResponseError
		nf  *NotFoundError
		enc *EncryptionError
	)
	return errors.As(err, &req) || errors.As(err, &res) || errors.As(err, &nf) || errors.As(err, &enc)
}
