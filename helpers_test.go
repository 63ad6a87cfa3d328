package boschhttp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const (
	testAccessKey = "abc1abc2abc3abc4"
	testPassword  = "passworddddd"
)

type put struct {
	Path  string
	Value any
}

// memRequester serves gateway nodes from memory
type memRequester struct {
	mu    sync.Mutex
	nodes map[string]map[string]any
	fail  map[string]error
	gets  map[string]int
	puts  []put
}

func newMemRequester() *memRequester {
	return &memRequester{
		nodes: make(map[string]map[string]any),
		fail:  make(map[string]error),
		gets:  make(map[string]int),
	}
}

func (m *memRequester) set(path string, node map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := node["id"]; !ok {
		node["id"] = path
	}
	m.nodes[path] = node
}

func (m *memRequester) Get(ctx context.Context, path string, res any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gets[path]++
	if err := m.fail[path]; err != nil {
		return err
	}
	node, ok := m.nodes[path]
	if !ok {
		return &NotFoundError{Path: path}
	}
	b, err := json.Marshal(node)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, res)
}

func (m *memRequester) Put(ctx context.Context, path string, value any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail[path]; err != nil {
		return "", err
	}
	m.puts = append(m.puts, put{Path: path, Value: value})
	if node, ok := m.nodes[path]; ok {
		node["value"] = value
	}
	return "", nil
}

func (m *memRequester) allPuts() []put {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]put(nil), m.puts...)
}

func (m *memRequester) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.puts)
}

func (m *memRequester) getCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets[path]
}

type testLogger struct {
	t *testing.T
}

func (l testLogger) Printf(msg string, arg ...any) {
	l.t.Helper()
	l.t.Logf(msg, arg...)
}

func testCipher(t *testing.T) *Cipher {
	t.Helper()
	cred, err := NewCredentials(testAccessKey, testPassword)
	if err != nil {
		t.Fatalf("NewCredentials() error = %v", err)
	}
	c, err := NewCipher(cred)
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}
	return c
}

// fakeDevice is an http gateway serving encrypted nodes
type fakeDevice struct {
	*memRequester
	cipher      *Cipher
	contentType string
	status      map[string]int
	raw         map[string]string

	inFlight, maxInFlight int
}

func newFakeDevice(t *testing.T) (*fakeDevice, *httptest.Server) {
	t.Helper()

	d := &fakeDevice{
		memRequester: newMemRequester(),
		cipher:       testCipher(t),
		contentType:  "application/json; charset=utf-8",
		status:       make(map[string]int),
		raw:          make(map[string]string),
	}

	srv := httptest.NewServer(d)
	t.Cleanup(srv.Close)

	return d, srv
}

func hostOf(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func (d *fakeDevice) setStatus(path string, status int) {
	d.mu.Lock()
	d.status[path] = status
	d.mu.Unlock()
}

func (d *fakeDevice) setRaw(path, plain string) {
	d.mu.Lock()
	d.raw[path] = plain
	d.mu.Unlock()
}

func (d *fakeDevice) setContentType(ct string) {
	d.mu.Lock()
	d.contentType = ct
	d.mu.Unlock()
}

func (d *fakeDevice) maxParallel() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxInFlight
}

func (d *fakeDevice) enter() {
	d.mu.Lock()
	d.inFlight++
	if d.inFlight > d.maxInFlight {
		d.maxInFlight = d.inFlight
	}
	d.mu.Unlock()
}

func (d *fakeDevice) leave() {
	d.mu.Lock()
	d.inFlight--
	d.mu.Unlock()
}

func (d *fakeDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.enter()
	defer d.leave()

	d.mu.Lock()
	status, forced := d.status[r.URL.Path]
	raw, hasRaw := d.raw[r.URL.Path]
	contentType := d.contentType
	d.mu.Unlock()

	if forced {
		w.WriteHeader(status)
		return
	}

	switch r.Method {
	case http.MethodGet:
		var body []byte
		if hasRaw {
			body = d.cipher.Encrypt([]byte(raw))
		} else {
			var node map[string]any
			if err := d.Get(r.Context(), r.URL.Path, &node); err != nil {
				http.NotFound(w, r)
				return
			}
			b, _ := json.Marshal(node)
			body = d.cipher.Encrypt(b)
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)

	case http.MethodPut:
		enc, _ := io.ReadAll(r.Body)
		plain, err := d.cipher.Decrypt(enc)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var v valueBody
		if err := json.Unmarshal([]byte(plain), &v); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if _, err := d.Put(r.Context(), r.URL.Path, v.Value); err != nil {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
