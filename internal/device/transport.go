// Package device talks to the relay board over its local HTTP API.
package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"light_control/internal/logger"
)

// DefaultTimeout bounds a whole request when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// Response is a completed HTTP exchange, whatever its status.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport issues one request against the board. It never retries.
type Transport interface {
	Do(ctx context.Context, method, path string, body any) (*Response, error)
}

// HTTPTransport resolves paths against a fixed base URL.
type HTTPTransport struct {
	base   *url.URL
	client *http.Client
	log    *logger.Logger
}

// NewHTTPTransport builds a transport for baseURL (e.g. "http://192.168.29.17").
// A zero timeout selects DefaultTimeout.
func NewHTTPTransport(baseURL string, timeout time.Duration, log *logger.Logger) (*HTTPTransport, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url %q: missing host", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &HTTPTransport{
		base:   base,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}, nil
}

// BaseURL returns the configured device address.
func (t *HTTPTransport) BaseURL() string {
	return t.base.String()
}

func (t *HTTPTransport) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse path %q: %w", path, err)
	}
	return t.base.ResolveReference(ref).String(), nil
}

// Do sends method to path. Only transport failures are returned as errors
// (*NetworkError); any HTTP status is a Response.
func (t *HTTPTransport) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodDelete:
	default:
		return nil, fmt.Errorf("unsupported method %q", method)
	}

	target, err := t.resolve(path)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	t.log.Debugw("device_request", "method", method, "url", target, "body", string(payload))
	res, err := t.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Method: method, Path: path, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &NetworkError{Method: method, Path: path, Err: fmt.Errorf("read body: %w", err)}
	}
	t.log.Debugw("device_response", "method", method, "url", target, "status", res.StatusCode,
		"body", strings.TrimSpace(string(data)))

	return &Response{StatusCode: res.StatusCode, Body: data}, nil
}
