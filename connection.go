package boschhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

type Logger interface {
	Printf(msg string, arg ...any)
}

// Requester reads and writes gateway resources by path
type Requester interface {
	Get(ctx context.Context, path string, res any) error
	Put(ctx context.Context, path string, value any) (string, error)
}

// Connection is the encrypted gateway connection. All requests of one
// connection are serialized, the firmware does not cope with parallel calls.
type Connection struct {
	mu      sync.Mutex
	host    string
	client  *http.Client
	cipher  *Cipher
	logger  Logger
	timeout time.Duration
}

type ConnOption func(*Connection)

func WithConnLogger(logger Logger) ConnOption {
	return func(c *Connection) {
		c.logger = logger
	}
}

func WithConnTimeout(timeout time.Duration) ConnOption {
	return func(c *Connection) {
		c.timeout = timeout
	}
}

// NewConnection creates a connection to the gateway at host. A nil client
// uses a fresh http.Client.
func NewConnection(host string, client *http.Client, cred *Credentials, opts ...ConnOption) (*Connection, error) {
	cipher, err := NewCipher(cred)
	if err != nil {
		return nil, err
	}

	if client == nil {
		client = new(http.Client)
	}
	client.Transport = &transport{client.Transport}

	conn := &Connection{
		host:    strings.TrimSuffix(strings.TrimPrefix(host, "http://"), "/"),
		client:  client,
		cipher:  cipher,
		timeout: DEFAULT_TIMEOUT,
	}
	for _, opt := range opts {
		opt(conn)
	}
	if conn.timeout > 0 {
		client.Timeout = conn.timeout
	}

	return conn, nil
}

func (conn *Connection) debug(fmt string, arg ...any) {
	if conn.logger != nil {
		conn.logger.Printf(fmt, arg...)
	}
}

func (conn *Connection) Host() string {
	return conn.host
}

func (conn *Connection) url(path string) string {
	return "http://" + conn.host + path
}

func (conn *Connection) requestError(path string, err error) error {
	return &RequestError{Host: conn.host, Path: path, Err: err}
}

// Get fetches path, decrypts the body and decodes the json into res
func (conn *Connection) Get(ctx context.Context, path string, res any) error {
	conn.mu.Lock()
	defer conn.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, conn.url(path), nil)
	if err != nil {
		return conn.requestError(path, err)
	}

	resp, err := conn.client.Do(req)
	if err != nil {
		return conn.requestError(path, err)
	}

	body, err := ReadBody(resp)
	if err != nil {
		var se StatusError
		if errors.As(err, &se) {
			if se.StatusCode() == http.StatusNotFound {
				return &NotFoundError{Path: path}
			}
			return &ResponseError{Path: path, Err: err}
		}
		return conn.requestError(path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return &ResponseError{Path: path, Err: fmt.Errorf("invalid response code: %d", resp.StatusCode)}
	}
	if err := contentTypeError(resp); err != nil {
		return &ResponseError{Path: path, Err: err}
	}

	plain, err := conn.cipher.Decrypt(body)
	if err != nil {
		return err
	}
	conn.debug("GET %s: %s", path, plain)

	if err := json.Unmarshal([]byte(plain), res); err != nil {
		return &ResponseError{Path: path, Err: fmt.Errorf("unable to decode json response: %w", err)}
	}

	return nil
}

// Put encrypts {"value": value} and writes it to path. The raw response text
// is returned, the gateway usually answers with an empty 204.
func (conn *Connection) Put(ctx context.Context, path string, value any) (string, error) {
	data, err := json.Marshal(valueBody{Value: value})
	if err != nil {
		return "", err
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()

	conn.debug("PUT %s: %s", path, data)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, conn.url(path), bytes.NewReader(conn.cipher.Encrypt(data)))
	if err != nil {
		return "", conn.requestError(path, err)
	}

	resp, err := conn.client.Do(req)
	if err != nil {
		return "", conn.requestError(path, err)
	}

	body, err := ReadBody(resp)
	if err != nil {
		var se StatusError
		if errors.As(err, &se) {
			if se.StatusCode() == http.StatusNotFound {
				return "", &NotFoundError{Path: path}
			}
			return string(body), &ResponseError{Path: path, Err: err}
		}
		return "", conn.requestError(path, err)
	}

	return string(body), nil
}
