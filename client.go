package boschhttp

import (
	"net/http"
	"time"

	"github.com/ernesto-jimenez/httplogger"
)

// httpLogger writes request and response lines of the http client to a Logger
type httpLogger struct {
	log Logger
}

func (l *httpLogger) LogRequest(req *http.Request) {
	l.log.Printf("Request %s %s", req.Method, req.URL.String())
}

func (l *httpLogger) LogResponse(req *http.Request, res *http.Response, err error, duration time.Duration) {
	duration /= time.Millisecond
	if err != nil {
		l.log.Printf("Response method=%s error=%v %s", req.Method, err, req.URL.String())
		return
	}
	l.log.Printf("Response method=%s status=%d durationMs=%d %s", req.Method, res.StatusCode, duration, req.URL.String())
}

// NewClient creates an http client with the default request timeout
func NewClient() *http.Client {
	return &http.Client{
		Timeout: DEFAULT_TIMEOUT,
	}
}

// NewClientWithLog creates an http client that logs every exchange with the gateway
func NewClientWithLog(log Logger) *http.Client {
	return &http.Client{
		Timeout:   DEFAULT_TIMEOUT,
		Transport: httplogger.NewLoggedTransport(http.DefaultTransport, &httpLogger{log: log}),
	}
}
