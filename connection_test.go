package boschhttp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func testConnection(t *testing.T, srv *httptest.Server, opts ...ConnOption) *Connection {
	t.Helper()
	cred, err := NewCredentials(testAccessKey, testPassword)
	if err != nil {
		t.Fatal(err)
	}
	conn, err := NewConnection(hostOf(srv), nil, cred, append([]ConnOption{WithConnLogger(testLogger{t})}, opts...)...)
	if err != nil {
		t.Fatalf("NewConnection() error = %v", err)
	}
	return conn
}

func TestConnectionGet(t *testing.T) {
	dev, srv := newFakeDevice(t)
	dev.set("/system/sensors/temperatures/outdoor_t1", map[string]any{
		"value":         7.5,
		"unitOfMeasure": "C",
		"state":         []any{map[string]any{"open": -3276.8}},
	})
	conn := testConnection(t, srv)

	var node Node
	if err := conn.Get(context.Background(), "/system/sensors/temperatures/outdoor_t1", &node); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v, ok := node.Float(); !ok || v != 7.5 {
		t.Errorf("value = %v %v, want 7.5", v, ok)
	}
	if node.Unit != "C" {
		t.Errorf("unit = %q", node.Unit)
	}
}

func TestConnectionHeaders(t *testing.T) {
	c := testCipher(t)
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", JSON_CONTENT)
		_, _ = w.Write(c.Encrypt([]byte(`{"id":"/gateway/uuid","value":"123"}`)))
	}))
	defer srv.Close()

	conn := testConnection(t, srv)
	var node Node
	if err := conn.Get(context.Background(), GATEWAY_UUID, &node); err != nil {
		t.Fatal(err)
	}

	if ua := got.Get("User-Agent"); ua != USER_AGENT {
		t.Errorf("User-Agent = %q", ua)
	}
	if acc := got.Get("Accept"); acc != JSON_CONTENT {
		t.Errorf("Accept = %q", acc)
	}
	if ct := got.Get("Content-Type"); ct != JSON_CONTENT {
		t.Errorf("Content-Type on GET = %q, want %q", ct, JSON_CONTENT)
	}
}

func TestConnectionGetErrors(t *testing.T) {
	dev, srv := newFakeDevice(t)
	dev.set("/ok", map[string]any{"value": 1})
	dev.setStatus("/broken", http.StatusInternalServerError)
	dev.setRaw("/garbage", "this is not json")
	conn := testConnection(t, srv)
	ctx := context.Background()

	var node Node

	err := conn.Get(ctx, "/missing", &node)
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Path != "/missing" {
		t.Errorf("missing path: error = %v, want NotFoundError", err)
	}
	if !IsNotFound(err) || !IsDeviceError(err) {
		t.Error("IsNotFound/IsDeviceError do not match NotFoundError")
	}

	err = conn.Get(ctx, "/broken", &node)
	var re *ResponseError
	if !errors.As(err, &re) {
		t.Errorf("status 500: error = %v, want ResponseError", err)
	}
	var se StatusError
	if !errors.As(err, &se) || se.StatusCode() != http.StatusInternalServerError {
		t.Errorf("status 500: error does not carry status: %v", err)
	}

	err = conn.Get(ctx, "/garbage", &node)
	if !errors.As(err, &re) {
		t.Errorf("invalid json: error = %v, want ResponseError", err)
	}

	dev.setContentType("text/html")
	err = conn.Get(ctx, "/ok", &node)
	if !errors.As(err, &re) {
		t.Errorf("content type: error = %v, want ResponseError", err)
	}
}

func TestConnectionRequestError(t *testing.T) {
	_, srv := newFakeDevice(t)
	conn := testConnection(t, srv)
	srv.Close()

	var node Node
	err := conn.Get(context.Background(), GATEWAY_UUID, &node)
	var re *RequestError
	if !errors.As(err, &re) {
		t.Fatalf("error = %v, want RequestError", err)
	}
	if IsNotFound(err) {
		t.Error("request error reported as not found")
	}
}

func TestConnectionTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	conn := testConnection(t, srv, WithConnTimeout(50*time.Millisecond))

	var node Node
	err := conn.Get(context.Background(), GATEWAY_UUID, &node)
	var re *RequestError
	if !errors.As(err, &re) {
		t.Fatalf("error = %v, want RequestError", err)
	}
}

func TestConnectionPut(t *testing.T) {
	dev, srv := newFakeDevice(t)
	dev.set("/heatingCircuits/hc1/operationMode", map[string]any{"value": "auto"})
	conn := testConnection(t, srv)

	res, err := conn.Put(context.Background(), "/heatingCircuits/hc1/operationMode", "manual")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if res != "" {
		t.Errorf("Put() = %q, want empty body", res)
	}

	if puts := dev.allPuts(); len(puts) != 1 || puts[0].Value != "manual" {
		t.Fatalf("device received %+v", puts)
	}

	var node Node
	if err := conn.Get(context.Background(), "/heatingCircuits/hc1/operationMode", &node); err != nil {
		t.Fatal(err)
	}
	if node.String() != "manual" {
		t.Errorf("value after put = %q", node.String())
	}
}

func TestConnectionSerializesRequests(t *testing.T) {
	dev, srv := newFakeDevice(t)
	dev.set("/gateway/uuid", map[string]any{"value": "123"})
	conn := testConnection(t, srv)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var node Node
			if err := conn.Get(context.Background(), GATEWAY_UUID, &node); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if n := dev.maxParallel(); n != 1 {
		t.Errorf("max parallel requests = %d, want 1", n)
	}
}
