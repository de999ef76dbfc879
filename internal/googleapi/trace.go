package googleapi

import (
	"log/slog"
	"net/http"
	"time"
)

// traceTransport logs each request and its outcome through slog while
// delegating the round trip. Header values are never logged.
type traceTransport struct {
	delegate http.RoundTripper
}

func (t *traceTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	slog.Debug("http request", "method", req.Method, "url", req.URL.Redacted(), "auth", req.Header.Get("Authorization") != "")
	resp, err := t.delegate.RoundTrip(req)
	if err != nil {
		slog.Debug("http error", "method", req.Method, "url", req.URL.Redacted(), "err", err, "elapsed", time.Since(start))
		return resp, err
	}
	slog.Debug("http response", "method", req.Method, "url", req.URL.Redacted(), "status", resp.StatusCode, "elapsed", time.Since(start))
	return resp, nil
}

func WrapTrace(d http.RoundTripper) http.RoundTripper {
	if d == nil {
		d = http.DefaultTransport
	}
	return &traceTransport{delegate: d}
}
