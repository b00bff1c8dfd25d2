package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	method  string
	path    string
	rawPath string
	query  string
	body   string
	header http.Header
}

// backend is a stub order service that records every call it receives.
type backend struct {
	mu     sync.Mutex
	calls  []call
	status int
	body   string
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.calls = append(b.calls, call{method: r.Method, path: r.URL.Path, rawPath: r.URL.EscapedPath(), query: r.URL.RawQuery, body: string(raw), header: r.Header.Clone()})
	status, body := b.status, b.body
	b.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (b *backend) recorded() []call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]call(nil), b.calls...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newGateway(t *testing.T, baseURL string) *httptest.Server {
	t.Helper()
	client := NewClient(Upstream{Name: "order-service", DisplayName: "Order Service", BaseURL: baseURL}, 2*time.Second)
	router := NewRouter(NewProxy(client, discardLogger(), nil), RouterConfig{
		ServiceName:   "api-gateway",
		AllowedOrigin: "*",
		Logger:        discardLogger(),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func newStubbedGateway(t *testing.T, b *backend) *httptest.Server {
	t.Helper()
	stub := httptest.NewServer(b)
	t.Cleanup(stub.Close)
	return newGateway(t, stub.URL)
}

func send(t *testing.T, method, url, body string, header map[string]string) (*http.Response, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func TestCreateOrderForwardsBodyVerbatim(t *testing.T) {
	b := &backend{status: http.StatusCreated, body: `{"orderId":"ORD-42","status":"created"}`}
	gw := newStubbedGateway(t, b)

	payload := `{"customerName": "Ana",  "items": [{"name":"Pizza","quantity":2,"price":12.5}], "note": "ring twice"}`
	resp, body := send(t, http.MethodPost, gw.URL+"/orders", payload, map[string]string{
		"Content-Type":    "application/json",
		"Idempotency-Key": "key-1",
	})

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, `{"orderId":"ORD-42","status":"created"}`, body)

	calls := b.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].method)
	assert.Equal(t, "/orders", calls[0].path)
	assert.Equal(t, payload, calls[0].body)
	assert.Equal(t, "key-1", calls[0].header.Get("Idempotency-Key"))
	assert.NotEmpty(t, calls[0].header.Get("X-Request-Id"))
}

func TestCreateOrderValidationMakesNoUpstreamCall(t *testing.T) {
	b := &backend{}
	gw := newStubbedGateway(t, b)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing customer name", `{"items":[{"name":"Pizza"}]}`, "customerName is required"},
		{"blank customer name", `{"customerName":"","items":[{"name":"Pizza"}]}`, "customerName is required"},
		{"missing items", `{"customerName":"Ana"}`, "items is required"},
		{"empty items", `{"customerName":"Ana","items":[]}`, "items must contain at least 1 item(s)"},
		{"not json", `customerName=Ana`, "invalid JSON payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := send(t, http.MethodPost, gw.URL+"/orders", tt.body, map[string]string{"Content-Type": "application/json"})

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var decoded map[string]string
			require.NoError(t, json.Unmarshal([]byte(body), &decoded))
			assert.Equal(t, tt.wantErr, decoded["error"])
		})
	}

	assert.Empty(t, b.recorded())
}

func TestUnavailableUpstreamAnswers503OnEveryRoute(t *testing.T) {
	stub := httptest.NewServer(http.NotFoundHandler())
	baseURL := stub.URL
	stub.Close()
	gw := newGateway(t, baseURL)

	requests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/orders", ""},
		{http.MethodGet, "/orders/ORD-1/status", ""},
		{http.MethodPost, "/orders", `{"customerName":"Ana","items":[{"name":"Pizza"}]}`},
		{http.MethodPatch, "/orders/ORD-1/status", `{"status":"ready"}`},
		{http.MethodGet, "/orders/ORD-1", ""},
	}

	for _, req := range requests {
		t.Run(req.method+" "+req.path, func(t *testing.T) {
			resp, body := send(t, req.method, gw.URL+req.path, req.body, map[string]string{"Content-Type": "application/json"})

			assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
			assert.JSONEq(t, `{"error":"Order Service unavailable","message":"could not connect to order-service","service":"order-service"}`, body)
		})
	}
}

func TestStatusRouteTakesPrecedenceOverID(t *testing.T) {
	b := &backend{body: `{"orderId":"ORD-1","status":"ready"}`}
	gw := newStubbedGateway(t, b)

	resp, body := send(t, http.MethodGet, gw.URL+"/orders/ORD-1/status", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"orderId":"ORD-1","status":"ready"}`, body)

	send(t, http.MethodGet, gw.URL+"/orders/ORD-1", "", nil)

	calls := b.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, "/orders/ORD-1/status", calls[0].path)
	assert.Equal(t, "/orders/ORD-1", calls[1].path)
}

func TestListForwardsOnlyLimitAndSkip(t *testing.T) {
	b := &backend{body: `{"orders":[],"limit":5,"skip":10,"count":0}`}
	gw := newStubbedGateway(t, b)

	send(t, http.MethodGet, gw.URL+"/orders?skip=10&status=ready&limit=5", "", nil)
	send(t, http.MethodGet, gw.URL+"/orders?skip=3", "", nil)
	send(t, http.MethodGet, gw.URL+"/orders", "", nil)

	calls := b.recorded()
	require.Len(t, calls, 3)
	assert.Equal(t, "limit=5&skip=10", calls[0].query)
	assert.Equal(t, "skip=3", calls[1].query)
	assert.Equal(t, "", calls[2].query)
}

func TestBusinessErrorsAreRelayed(t *testing.T) {
	b := &backend{status: http.StatusNotFound, body: `{"error":"order not found"}`}
	gw := newStubbedGateway(t, b)

	resp, body := send(t, http.MethodGet, gw.URL+"/orders/ORD-404", "", nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, `{"error":"order not found"}`, body)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestBadUpstreamURLIsInternalError(t *testing.T) {
	gw := newGateway(t, "order-service:3001")

	resp, body := send(t, http.MethodGet, gw.URL+"/orders", "", nil)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &decoded))
	assert.Equal(t, "internal server error", decoded["error"])
}

func TestHealthIsAnsweredLocally(t *testing.T) {
	b := &backend{}
	gw := newStubbedGateway(t, b)

	resp, body := send(t, http.MethodGet, gw.URL+"/health", "", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","service":"api-gateway"}`, body)
	assert.Empty(t, b.recorded())
}

func TestCORSPreflight(t *testing.T) {
	gw := newStubbedGateway(t, &backend{})

	resp, _ := send(t, http.MethodOptions, gw.URL+"/orders", "", map[string]string{
		"Origin":                         "https://shop.example.com",
		"Access-Control-Request-Method":  http.MethodPost,
		"Access-Control-Request-Headers": "Content-Type",
	})

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestRoutesAreOrderedBySpecificity(t *testing.T) {
	p := NewProxy(NewClient(Upstream{Name: "order-service"}, time.Second), discardLogger(), nil)

	var names []string
	for _, r := range p.Routes() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"list_orders", "get_order_status", "create_order", "update_order_status", "get_order"}, names)
}

func TestFailTreatsUnknownErrorsAsInternal(t *testing.T) {
	p := NewProxy(NewClient(Upstream{Name: "order-service"}, time.Second), discardLogger(), nil)
	rec := httptest.NewRecorder()

	p.fail(rec, httptest.NewRequest(http.MethodGet, "/orders", nil).WithContext(context.Background()), "list_orders", io.ErrUnexpectedEOF)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestOrderIDIsEscapedOnce(t *testing.T) {
	b := &backend{body: `{}`}
	gw := newStubbedGateway(t, b)

	send(t, http.MethodGet, gw.URL+"/orders/a%2Fb", "", nil)
	send(t, http.MethodGet, gw.URL+"/orders/ORD%201/status", "", nil)

	calls := b.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, "/orders/a%2Fb", calls[0].rawPath)
	assert.Equal(t, "/orders/a/b", calls[0].path)
	assert.Equal(t, "/orders/ORD%201/status", calls[1].rawPath)
}
