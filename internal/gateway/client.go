package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Headers copied from the inbound request to the backend.
var forwardedHeaders = []string{"Content-Type", "Idempotency-Key", "X-Request-Id"}

// Upstream names a backend service and where it listens.
type Upstream struct {
	Name        string
	DisplayName string
	BaseURL     string
}

type QueryParam struct {
	Key   string
	Value string
}

// Outbound describes one request to forward. Query parameters are sent in slice order.
type Outbound struct {
	Method string
	Path   string
	Query  []QueryParam
	Body   []byte
	Header http.Header
}

type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

type Client struct {
	upstream Upstream
	http     *http.Client
}

// NewClient returns a client for upstream whose requests are traced and
// bounded by timeout.
func NewClient(upstream Upstream, timeout time.Duration) *Client {
	return NewClientWithHTTP(upstream, &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

func NewClientWithHTTP(upstream Upstream, httpClient *http.Client) *Client {
	upstream.BaseURL = strings.TrimRight(upstream.BaseURL, "/")
	return &Client{upstream: upstream, http: httpClient}
}

func (c *Client) Upstream() Upstream {
	return c.upstream
}

// Forward sends out to the upstream. It returns a *Response for statuses
// below 400 and a *ProxyError otherwise.
func (c *Client) Forward(ctx context.Context, out Outbound) (*Response, error) {
	req, err := c.newRequest(ctx, out)
	if err != nil {
		return nil, &ProxyError{Kind: InternalError, Service: c.upstream.Name, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ProxyError{Kind: UpstreamUnavailable, Service: c.upstream.Name, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProxyError{Kind: UpstreamUnavailable, Service: c.upstream.Name, Err: fmt.Errorf("read response body: %w", err)}
	}

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &ProxyError{
			Kind:        UpstreamBusinessError,
			Service:     c.upstream.Name,
			StatusCode:  resp.StatusCode,
			Body:        body,
			ContentType: contentType,
		}
	}

	return &Response{StatusCode: resp.StatusCode, ContentType: contentType, Body: body}, nil
}

func (c *Client) newRequest(ctx context.Context, out Outbound) (*http.Request, error) {
	target, err := url.Parse(c.upstream.BaseURL + out.Path)
	if err != nil {
		return nil, fmt.Errorf("build upstream url: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("build upstream url: %q is not absolute", c.upstream.BaseURL)
	}
	target.RawQuery = encodeQuery(out.Query)

	var body io.Reader
	if out.Body != nil {
		body = bytes.NewReader(out.Body)
	}

	req, err := http.NewRequestWithContext(ctx, out.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	for _, name := range forwardedHeaders {
		if value := out.Header.Get(name); value != "" {
			req.Header.Set(name, value)
		}
	}
	if out.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func encodeQuery(params []QueryParam) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}
	return strings.Join(parts, "&")
}
